package discussion

import (
	"sync"
	"time"

	"github.com/kohaku-io/agora/internal/message"
)

// Watcher polls one discussion log and invokes its callback with the
// tail slice whenever the last seq grows.
type Watcher struct {
	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// Watch starts polling id every interval. The callback runs on the
// watcher goroutine; it must not block for long.
func (s *Store) Watch(id string, interval time.Duration, fn func(tail []message.Message)) *Watcher {
	w := &Watcher{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastSeq := 0
		for {
			select {
			case <-w.quit:
				return
			case <-ticker.C:
				msgs, err := s.ReadAll(id)
				if err != nil || len(msgs) == 0 {
					continue
				}
				newest := msgs[len(msgs)-1].Seq
				if newest <= lastSeq {
					continue
				}

				var tail []message.Message
				for _, m := range msgs {
					if m.Seq > lastSeq {
						tail = append(tail, m)
					}
				}
				lastSeq = newest
				fn(tail)
			}
		}
	}()

	return w
}

// Stop halts polling and waits for the watcher goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.done
}
