package config

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// closureState is what the watcher last delivered.
type closureState struct {
	delivered bool
	present   bool
	sum       [sha256.Size]byte
	// rejected is the content of the last file that failed to parse, reported once.
	rejected [sha256.Size]byte
}

// WatchClosures delivers the closed days of path now and again whenever the file's
// content changes. Removing the file reopens every day at the next poll. A file that
// fails to parse is reported to onError and the last good days stay in effect.
// Only the initial load can fail the call.
func WatchClosures(ctx context.Context, path string, interval time.Duration, loc *time.Location,
	onUpdate func([]time.Time), onError func(error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if onError == nil {
		onError = func(error) {}
	}

	var st closureState
	days, err := st.reload(path, loc)
	if err != nil {
		return err
	}
	onUpdate(days)
	if path == "" {
		return nil
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				days, err := st.reload(path, loc)
				if err != nil {
					onError(err)
					continue
				}
				if days != nil {
					onUpdate(days)
				}
			}
		}
	}()
	return nil
}

// reload returns the new days, or nil when nothing changed since the last call.
func (st *closureState) reload(path string, loc *time.Location) ([]time.Time, error) {
	if path == "" {
		return []time.Time{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if st.delivered && !st.present {
			return nil, nil
		}
		*st = closureState{delivered: true}
		return []time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	if (st.present && sum == st.sum) || (st.delivered && sum == st.rejected) {
		return nil, nil
	}
	days, err := parseClosures(path, data, loc)
	if err != nil {
		st.rejected = sum
		return nil, err
	}
	*st = closureState{delivered: true, present: true, sum: sum}
	return days, nil
}

func parseClosures(path string, data []byte, loc *time.Location) ([]time.Time, error) {
	c, err := decodeClosures(path, data)
	if err != nil {
		return nil, err
	}
	days, err := c.Days(loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return days, nil
}
