package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"genrecast/internal/stage"
)

const defaultPoll = 250 * time.Millisecond

// TailOptions controls Tail.
type TailOptions struct {
	// Lines is the number of trailing lines printed first. Zero prints the
	// whole file; negative prints nothing before following.
	Lines  int
	Follow bool
	Poll   time.Duration
}

// Tail calls emit for the last lines of path and, when following, for every
// line appended afterwards. Following ends without error when ctx is done.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(string) error) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stage.Wrap(stage.ErrNotFound, "logs", "tail", path, err)
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	lines, partial, err := lastLines(reader, opts.Lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := emit(line); err != nil {
			return err
		}
	}
	if !opts.Follow {
		if partial != "" {
			return emit(partial)
		}
		return nil
	}
	return follow(ctx, reader, partial, opts.Poll, emit)
}

// lastLines reads r to EOF and keeps the trailing limit complete lines in a
// ring. An unterminated final line is returned separately.
func lastLines(r *bufio.Reader, limit int) ([]string, string, error) {
	var all []string
	var ring []string
	if limit > 0 {
		ring = make([]string, limit)
	}
	count, idx := 0, 0
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if limit <= 0 {
				return all, line, nil
			}
			out := make([]string, count)
			start := (idx - count + limit) % limit
			for i := range count {
				out[i] = ring[(start+i)%limit]
			}
			return out, line, nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("read log file: %w", err)
		}
		line = line[:len(line)-1]
		switch {
		case limit == 0:
			all = append(all, line)
		case limit > 0:
			ring[idx] = line
			idx = (idx + 1) % limit
			count = min(count+1, limit)
		}
	}
}

func follow(ctx context.Context, r *bufio.Reader, pending string, poll time.Duration, emit func(string) error) error {
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		for {
			chunk, err := r.ReadString('\n')
			pending += chunk
			if err == nil {
				if emitErr := emit(pending[:len(pending)-1]); emitErr != nil {
					return emitErr
				}
				pending = ""
				continue
			}
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read log file: %w", err)
			}
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
