package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/avrille/cadenza/internal/db"
	"github.com/avrille/cadenza/internal/queue"
)

// QueueState is the persisted queue: tracks in canonical order, the
// canonical index of the current track, and the playback modes. The shuffle
// permutation itself is not saved; restoring with shuffle enabled draws a
// fresh one pinned on the current track.
type QueueState struct {
	CurrentIndex int // canonical index, -1 if none
	RepeatMode   int
	Shuffle      bool
	Volume       int
	Tracks       []queue.Track
}

// Restore rebuilds a queue from the saved state.
func (s *QueueState) Restore(q *queue.Queue) {
	q.Replace(s.Tracks...)
	if s.CurrentIndex >= 0 && s.CurrentIndex < q.Len() {
		q.JumpTo(s.CurrentIndex)
	}
	q.SetRepeat(queue.RepeatMode(s.RepeatMode))
	q.SetShuffle(s.Shuffle)
}

func getQueue(db *sql.DB) (*QueueState, error) {
	var currentIndex, repeatMode, volume int
	var shuffle bool
	row := db.QueryRow(`SELECT current_index, repeat_mode, shuffle, volume FROM queue_state WHERE id = 1`)
	err := row.Scan(&currentIndex, &repeatMode, &shuffle, &volume)
	if errors.Is(err, sql.ErrNoRows) {
		return &QueueState{CurrentIndex: -1, Volume: 100}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT track_id, title, artist, album, duration_ms
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []queue.Track
	for rows.Next() {
		var t queue.Track
		var artist, album sql.NullString
		var durationMS int64

		if err := rows.Scan(&t.ID, &t.Title, &artist, &album, &durationMS); err != nil {
			return nil, err
		}

		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.Duration = time.Duration(durationMS) * time.Millisecond
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueueState{
		CurrentIndex: currentIndex,
		RepeatMode:   repeatMode,
		Shuffle:      shuffle,
		Volume:       volume,
		Tracks:       tracks,
	}, nil
}

func saveQueue(sqlDB *sql.DB, state QueueState) error {
	return dbutil.WithTx(sqlDB, func(tx *sql.Tx) error {
		// Clear existing queue
		if _, err := tx.Exec(`DELETE FROM queue_tracks`); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO queue_state (id, current_index, repeat_mode, shuffle, volume)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				repeat_mode = excluded.repeat_mode,
				shuffle = excluded.shuffle,
				volume = excluded.volume
		`, state.CurrentIndex, state.RepeatMode, state.Shuffle, state.Volume)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, track_id, title, artist, album, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range state.Tracks {
			_, err = stmt.Exec(i, t.ID, t.Title, t.Artist, t.Album, t.Duration.Milliseconds())
			if err != nil {
				return err
			}
		}
		return nil
	})
}
