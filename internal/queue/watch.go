package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"adintel/internal/logging"
)

// debounceWindow coalesces rapid successive writes to one queue file.
const debounceWindow = 500 * time.Millisecond

// Watch blocks watching the queue directory and invokes onChange with the
// affected queue file path after writes settle. Returns when ctx is done.
func (q *Queue) Watch(ctx context.Context, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("queue: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(q.dir); err != nil {
		return fmt.Errorf("queue: watch %s: %w", q.dir, err)
	}
	logging.Queue("watching %s", q.dir)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, "_queue.json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounceWindow, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				onChange(path)
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.QueueWarn("watcher error: %v", err)
		}
	}
}
