package content

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/usecases"
)

const defaultDebounce = 250 * time.Millisecond

// Reloader keeps the fallback selector in sync with an override file.
// A broken file never replaces a working catalog.
type Reloader struct {
	path     string
	selector *usecases.FallbackSelector
	watcher  ports.FileWatcher
	log      logrus.FieldLogger
	debounce time.Duration

	mu       sync.Mutex
	checksum string
}

// NewReloader creates a reloader. watcher may be nil for a one-shot load.
func NewReloader(path string, selector *usecases.FallbackSelector, watcher ports.FileWatcher, log logrus.FieldLogger) *Reloader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reloader{
		path:     path,
		selector: selector,
		watcher:  watcher,
		log:      log.WithField("content_path", path),
		debounce: defaultDebounce,
	}
}

// Reload loads the file and swaps the catalog when its content changed.
func (r *Reloader) Reload() error {
	loaded, err := Load(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if loaded.Checksum == r.checksum {
		return nil
	}
	r.selector.Swap(loaded.Catalog)
	r.checksum = loaded.Checksum
	r.log.WithField("checksum", loaded.Checksum).Info("fallback content loaded")
	return nil
}

// Reset restores the built-in catalog.
func (r *Reloader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selector.Swap(usecases.DefaultCatalog())
	r.checksum = ""
	r.log.Info("fallback content reset to defaults")
}

// Run watches the file's directory until ctx is done. Bursts of events are
// coalesced into one reload.
func (r *Reloader) Run(ctx context.Context) error {
	if r.watcher == nil {
		<-ctx.Done()
		return nil
	}
	events, err := r.watcher.Watch(ctx, filepath.Dir(r.path))
	if err != nil {
		return err
	}
	defer func() {
		if err := r.watcher.Stop(); err != nil {
			r.log.WithError(err).Warn("failed to stop file watcher")
		}
	}()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		deleted bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			deleted = ev.Operation == ports.FileDeleted
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if deleted {
				r.Reset()
				continue
			}
			if err := r.Reload(); err != nil {
				r.log.WithError(err).Error("fallback content reload failed, keeping previous content")
			}
		}
	}
}
