// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// WebhookCall is one outbound request to the automation webhook.
type WebhookCall struct {
	Endpoint string
	Payload  any
	Timeout  time.Duration
}

// WebhookDispatcher sends a single request upstream. It never retries.
type WebhookDispatcher interface {
	// Dispatch returns the raw response for any HTTP status.
	// It fails with *entities.TimeoutError when the budget is exceeded
	// and *entities.NetworkError when no response arrives.
	Dispatch(ctx context.Context, call WebhookCall) (*entities.WebhookResponse, error)
}

// AuditLog keeps the live/fallback outcome of every reply.
type AuditLog interface {
	// Record stores one outcome.
	Record(ctx context.Context, rec entities.AuditRecord) error

	// Summary counts outcomes created at or after since.
	Summary(ctx context.Context, since time.Time) ([]entities.AuditCount, error)
}

// RecommendationCache holds live recommendation results for a while.
type RecommendationCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (entry *entities.CachedRecommendation, ok bool, err error)

	Set(ctx context.Context, key string, entry entities.CachedRecommendation, ttl time.Duration) error
}

// RandomSource feeds the presentation-only product fields.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
