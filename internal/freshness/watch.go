package freshness

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports that a session file under a watched project root was
// created, written, or removed.
type ChangeEvent struct {
	Path string
	Kind ChangeKind
}

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeWritten ChangeKind = "written"
	ChangeRemoved ChangeKind = "removed"
)

// Watch starts an fsnotify watch over root and every subdirectory,
// emitting a debounced ChangeEvent per .jsonl file change. Callers use
// this to re-run Decide without polling the filesystem on every query.
// Rapid writes to the same file are debounced behind a single timer before
// an event is emitted.
func Watch(root string, logger *slog.Logger) (<-chan ChangeEvent, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := addWatchTree(watcher, root); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	events := make(chan ChangeEvent, 32)
	stop := make(chan struct{})

	go func() {
		defer watcher.Close()
		defer close(events)

		debounceTimers := make(map[string]*time.Timer)
		const debounceDelay = 150 * time.Millisecond

		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addWatchTree(watcher, event.Name); err != nil {
							logger.Warn("freshness: watch new directory failed", "path", event.Name, "error", err)
						}
						continue
					}
				}
				if !strings.HasSuffix(event.Name, ".jsonl") {
					continue
				}

				lastEvent := event
				if timer, ok := debounceTimers[lastEvent.Name]; ok {
					timer.Stop()
				}
				debounceTimers[lastEvent.Name] = time.AfterFunc(debounceDelay, func() {
					var kind ChangeKind
					switch {
					case lastEvent.Op&fsnotify.Create != 0:
						kind = ChangeCreated
					case lastEvent.Op&fsnotify.Remove != 0, lastEvent.Op&fsnotify.Rename != 0:
						kind = ChangeRemoved
					default:
						kind = ChangeWritten
					}
					select {
					case events <- ChangeEvent{Path: lastEvent.Name, Kind: kind}:
					default:
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("freshness: watch error", "error", err)
			}
		}
	}()

	return events, func() { close(stop) }, nil
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
}
