package auditlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// DefaultMemoryCapacity bounds the in-memory log.
const DefaultMemoryCapacity = 10000

// InMemoryAuditLog keeps the most recent records in process.
// Open-Closed: Can be replaced with the SQL adapter without changing usecases.
type InMemoryAuditLog struct {
	mu       sync.RWMutex
	records  []entities.AuditRecord
	capacity int
}

// NewInMemoryAuditLog creates a log holding at most capacity records.
func NewInMemoryAuditLog(capacity int) *InMemoryAuditLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryAuditLog{capacity: capacity}
}

// Record stores one outcome, dropping the oldest when full.
func (l *InMemoryAuditLog) Record(ctx context.Context, rec entities.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) >= l.capacity {
		l.records = append(l.records[:0], l.records[1:]...)
	}
	l.records = append(l.records, rec)
	return nil
}

// Summary counts outcomes created at or after since.
func (l *InMemoryAuditLog) Summary(ctx context.Context, since time.Time) ([]entities.AuditCount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	type key struct {
		domain entities.Domain
		kind   entities.SourceKind
		reason entities.FallbackReason
	}
	counts := make(map[key]int)
	for _, rec := range l.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		counts[key{rec.Domain, rec.SourceKind, rec.FallbackReason}]++
	}

	out := make([]entities.AuditCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, entities.AuditCount{Domain: k.domain, SourceKind: k.kind, FallbackReason: k.reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		if out[i].SourceKind != out[j].SourceKind {
			return out[i].SourceKind < out[j].SourceKind
		}
		return out[i].FallbackReason < out[j].FallbackReason
	})
	return out, nil
}

// Len returns the number of stored records.
func (l *InMemoryAuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
