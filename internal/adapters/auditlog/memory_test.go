package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

func TestInMemoryAuditLog_Summary(t *testing.T) {
	log := NewInMemoryAuditLog(0)
	ctx := context.Background()
	now := time.Now()

	log.Record(ctx, record("1", entities.DomainChat, entities.SourceLive, "", now))
	log.Record(ctx, record("2", entities.DomainChat, entities.SourceFallback, entities.ReasonProcessing, now))
	log.Record(ctx, record("3", entities.DomainChat, entities.SourceFallback, entities.ReasonProcessing, now))
	log.Record(ctx, record("4", entities.DomainChat, entities.SourceLive, "", now.Add(-time.Hour)))

	counts, err := log.Summary(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 groups, got %+v", counts)
	}
	if counts[0].SourceKind != entities.SourceFallback || counts[0].Count != 2 {
		t.Errorf("unexpected group %+v", counts[0])
	}
	if counts[1].SourceKind != entities.SourceLive || counts[1].Count != 1 {
		t.Errorf("unexpected group %+v", counts[1])
	}
}

func TestInMemoryAuditLog_Capacity(t *testing.T) {
	log := NewInMemoryAuditLog(2)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"1", "2", "3"} {
		log.Record(ctx, record(id, entities.DomainChat, entities.SourceLive, "", now))
	}
	if log.Len() != 2 {
		t.Errorf("expected 2 records, got %d", log.Len())
	}
	if log.records[0].ID != "2" {
		t.Errorf("oldest record should be dropped, first is %s", log.records[0].ID)
	}
}
