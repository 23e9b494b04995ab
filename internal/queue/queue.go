package queue

import (
	"math/rand"
	"time"
)

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Cycle returns the next mode in Off -> All -> One -> Off order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Queue holds the canonical play order plus playback position state.
//
// The shuffle ordering is a derived permutation of canonical indices and
// never overwrites the canonical order, so disabling shuffle restores the
// original sequence. While shuffle is active the permutation is a bijection
// over the canonical indices. The cursor indexes the active ordering
// (canonical or shuffled) and is -1 iff nothing is selected.
type Queue struct {
	tracks  []Track
	order   []int // shuffled ordering: permutation of canonical indices
	cursor  int   // index into the active ordering, -1 if unset
	repeat  RepeatMode
	shuffle bool
	rng     *rand.Rand
}

// New creates a new empty queue.
func New() *Queue {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a queue with a deterministic shuffle seed.
func NewSeeded(seed int64) *Queue {
	return &Queue{
		cursor: -1,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// canonicalAt maps an index in the active ordering to a canonical index.
func (q *Queue) canonicalAt(i int) int {
	if q.shuffle {
		return q.order[i]
	}
	return i
}

// Current returns the track under the cursor, or nil if none.
func (q *Queue) Current() *Track {
	if q.cursor < 0 || q.cursor >= len(q.tracks) {
		return nil
	}
	return &q.tracks[q.canonicalAt(q.cursor)]
}

// CurrentIndex returns the cursor position in the active ordering (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.cursor
}

// CanonicalIndex returns the canonical position of the current track (-1 if none).
func (q *Queue) CanonicalIndex() int {
	if q.cursor < 0 || q.cursor >= len(q.tracks) {
		return -1
	}
	return q.canonicalAt(q.cursor)
}

// Tracks returns a copy of the canonical order.
func (q *Queue) Tracks() []Track {
	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// ActiveTracks returns a copy of the tracks in the active ordering.
func (q *Queue) ActiveTracks() []Track {
	out := make([]Track, len(q.tracks))
	for i := range q.tracks {
		out[i] = q.tracks[q.canonicalAt(i)]
	}
	return out
}

// JumpTo moves the cursor to the given position in the active ordering.
// Returns the track at that position, or nil if the index is invalid.
func (q *Queue) JumpTo(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.cursor = index
	return q.Current()
}

// Next advances the cursor for a manual skip. Wraps only with RepeatAll.
// Returns nil with the cursor unchanged when there is nothing to advance to.
func (q *Queue) Next() *Track {
	if q.IsEmpty() {
		return nil
	}
	if q.cursor < 0 {
		q.cursor = 0
		return q.Current()
	}
	if q.cursor == len(q.tracks)-1 {
		if q.repeat != RepeatAll {
			return nil
		}
		q.cursor = 0
		return q.Current()
	}
	q.cursor++
	return q.Current()
}

// Prev retreats the cursor for a manual skip. Wraps only with RepeatAll.
// Returns nil with the cursor unchanged when there is nothing to retreat to.
func (q *Queue) Prev() *Track {
	if q.IsEmpty() {
		return nil
	}
	if q.cursor < 0 {
		q.cursor = 0
		return q.Current()
	}
	if q.cursor == 0 {
		if q.repeat != RepeatAll {
			return nil
		}
		q.cursor = len(q.tracks) - 1
		return q.Current()
	}
	q.cursor--
	return q.Current()
}

// NextAfterEnd resolves what plays after the current track finishes.
// RepeatOne replays the current track; RepeatAll wraps at the end;
// RepeatOff at the last track returns nil (playback should stop).
func (q *Queue) NextAfterEnd() *Track {
	if q.IsEmpty() || q.cursor < 0 {
		return nil
	}
	if q.repeat == RepeatOne {
		return q.Current()
	}
	if q.cursor == len(q.tracks)-1 {
		if q.repeat != RepeatAll {
			return nil
		}
		q.cursor = 0
		return q.Current()
	}
	q.cursor++
	return q.Current()
}

// Add appends tracks to the canonical order. While shuffled the new tracks
// are appended to the end of the shuffled ordering as well.
func (q *Queue) Add(tracks ...Track) {
	base := len(q.tracks)
	q.tracks = append(q.tracks, tracks...)
	if q.shuffle {
		for i := range tracks {
			q.order = append(q.order, base+i)
		}
	}
}

// Insert places tracks at the given canonical position (clamped to bounds).
// While shuffled the canonical order records the requested position but the
// new tracks play at the end of the shuffled ordering.
func (q *Queue) Insert(pos int, tracks ...Track) {
	if len(tracks) == 0 {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(q.tracks) {
		pos = len(q.tracks)
	}
	n := len(tracks)
	tail := append(append([]Track{}, tracks...), q.tracks[pos:]...)
	q.tracks = append(q.tracks[:pos], tail...)
	if q.shuffle {
		for i := range q.order {
			if q.order[i] >= pos {
				q.order[i] += n
			}
		}
		for i := range n {
			q.order = append(q.order, pos+i)
		}
		return
	}
	if q.cursor >= pos {
		q.cursor += n
	}
}

// RemoveAt removes the track at the given position in the active ordering.
// Reports whether the removed track was the current one; when it was, the
// cursor now points at the track that followed it in the active ordering
// (clamped, or -1 if the queue emptied).
func (q *Queue) RemoveAt(index int) (removedCurrent, ok bool) {
	if index < 0 || index >= len(q.tracks) {
		return false, false
	}
	canonical := q.canonicalAt(index)
	q.tracks = append(q.tracks[:canonical], q.tracks[canonical+1:]...)
	if q.shuffle {
		q.order = append(q.order[:index], q.order[index+1:]...)
		for i := range q.order {
			if q.order[i] > canonical {
				q.order[i]--
			}
		}
	}
	removedCurrent = index == q.cursor
	if q.cursor > index {
		q.cursor--
	} else if removedCurrent && q.cursor >= len(q.tracks) {
		q.cursor = len(q.tracks) - 1
	}
	return removedCurrent, true
}

// Replace clears the queue, adds tracks, and sets the cursor to the first.
// Returns the track to play, or nil if the new queue is empty.
func (q *Queue) Replace(tracks ...Track) *Track {
	q.tracks = append(q.tracks[:0], tracks...)
	q.cursor = -1
	if q.shuffle {
		q.order = q.permutation()
	}
	if len(q.tracks) == 0 {
		return nil
	}
	q.cursor = 0
	return q.Current()
}

// Clear removes all tracks and unsets the cursor.
func (q *Queue) Clear() {
	q.tracks = q.tracks[:0]
	q.order = q.order[:0]
	q.cursor = -1
}

// Shuffle returns whether shuffle is enabled.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// SetShuffle enables or disables shuffle. Enabling pins the current track
// to the front of the shuffled ordering so playback does not jump;
// disabling restores the canonical order with the cursor following the
// current track.
func (q *Queue) SetShuffle(on bool) {
	if on == q.shuffle {
		return
	}
	if on {
		q.order = q.permutation()
		q.shuffle = true
		if q.cursor >= 0 {
			q.cursor = 0
		}
		return
	}
	cur := q.CanonicalIndex()
	q.shuffle = false
	q.order = q.order[:0]
	q.cursor = cur
}

// ToggleShuffle flips the shuffle state and returns the new value.
func (q *Queue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffle)
	return q.shuffle
}

// permutation returns a uniform random shuffle of the canonical indices
// with the current track (if any) kept first. Must be called while the
// cursor still refers to the canonical ordering.
func (q *Queue) permutation() []int {
	n := len(q.tracks)
	cur := -1
	if q.cursor >= 0 && q.cursor < n {
		cur = q.cursor
	}
	rest := make([]int, 0, n)
	for i := range n {
		if i != cur {
			rest = append(rest, i)
		}
	}
	q.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	if cur < 0 {
		return rest
	}
	return append([]int{cur}, rest...)
}

// Repeat returns the current repeat mode.
func (q *Queue) Repeat() RepeatMode {
	return q.repeat
}

// SetRepeat sets the repeat mode.
func (q *Queue) SetRepeat(mode RepeatMode) {
	q.repeat = mode
}

// CycleRepeat advances to the next repeat mode and returns it.
func (q *Queue) CycleRepeat() RepeatMode {
	q.repeat = q.repeat.Cycle()
	return q.repeat
}
