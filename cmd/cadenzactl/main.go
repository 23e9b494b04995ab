// Command cadenzactl drives a running cadenza player through its control
// socket. One command per invocation; the reply status is printed as JSON.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/avrille/cadenza/internal/remote"
)

const usage = `usage: cadenzactl [-socket path] <command> [args]

commands:
  play | pause | toggle | stop | next | prev
  jump <index>
  seek <seconds>          absolute position
  seek-by <seconds>       signed offset
  volume <percent>
  add <track-id>...
  remove <index>
  clear
  shuffle [on|off]
  repeat [off|all|one]
  reconnect
  status
  watch                   stream status updates until interrupted
`

func main() {
	socket := flag.String("socket", defaultSocket(), "control socket path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(*socket, req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultSocket() string {
	return filepath.Join(xdg.RuntimeDir, "cadenza", "control.sock")
}

func buildRequest(args []string) (remote.Request, error) {
	cmd, rest := args[0], args[1:]
	req := remote.Request{Op: cmd}

	switch cmd {
	case remote.OpPlay, remote.OpPause, remote.OpToggle, remote.OpStop,
		remote.OpNext, remote.OpPrev, remote.OpClear, remote.OpReconnect,
		remote.OpStatus, remote.OpWatch:
		return req, nil

	case remote.OpJump, remote.OpRemove:
		if len(rest) != 1 {
			return req, fmt.Errorf("%s requires an index", cmd)
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil {
			return req, fmt.Errorf("bad index %q", rest[0])
		}
		req.Index = &idx
		return req, nil

	case remote.OpSeek, remote.OpSeekBy:
		if len(rest) != 1 {
			return req, fmt.Errorf("%s requires seconds", cmd)
		}
		secs, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return req, fmt.Errorf("bad seconds %q", rest[0])
		}
		ms := int64(secs * 1000)
		req.Ms = &ms
		return req, nil

	case remote.OpVolume:
		if len(rest) != 1 {
			return req, fmt.Errorf("volume requires a percentage")
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil {
			return req, fmt.Errorf("bad volume %q", rest[0])
		}
		req.Volume = &v
		return req, nil

	case remote.OpAdd:
		if len(rest) == 0 {
			return req, fmt.Errorf("add requires at least one track id")
		}
		for _, id := range rest {
			req.Tracks = append(req.Tracks, remote.TrackSpec{ID: id})
		}
		return req, nil

	case remote.OpShuffle:
		if len(rest) == 1 {
			on := rest[0] == "on"
			if !on && rest[0] != "off" {
				return req, fmt.Errorf("shuffle takes on or off")
			}
			req.On = &on
		}
		return req, nil

	case remote.OpRepeat:
		if len(rest) == 1 {
			req.Mode = rest[0]
		}
		return req, nil
	}

	return req, fmt.Errorf("unknown command %q", cmd)
}

func run(socket string, req remote.Request) error {
	conn, err := net.DialTimeout("unix", socket, 3*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w (is cadenza running?)", socket, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	for scanner.Scan() {
		var resp remote.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return fmt.Errorf("bad response: %w", err)
		}
		if !resp.OK && resp.Error != "" {
			fmt.Fprintln(os.Stderr, resp.Error)
			if req.Op != remote.OpWatch {
				os.Exit(1)
			}
		}
		if resp.Status != nil {
			if err := out.Encode(resp.Status); err != nil {
				return err
			}
		}
		if req.Op != remote.OpWatch {
			return nil
		}
	}
	return scanner.Err()
}
