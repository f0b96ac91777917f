package auditlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

func newTestStore(t *testing.T) *SQLAuditLog {
	t.Helper()
	dir, _ := os.MkdirTemp("", "audit-test-*")
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := NewSQLAuditLog(DriverSQLite, filepath.Join(dir, "nested", "audit.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id string, domain entities.Domain, kind entities.SourceKind, reason entities.FallbackReason, at time.Time) entities.AuditRecord {
	return entities.AuditRecord{
		ID:             id,
		Domain:         domain,
		Category:       "food",
		SourceKind:     kind,
		FallbackReason: reason,
		ConversationID: "conv-" + id,
		UserEmail:      "a@b.com",
		LatencyMS:      12,
		CreatedAt:      at,
	}
}

func TestSQLAuditLog_RecordAndSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []entities.AuditRecord{
		record("1", entities.DomainChat, entities.SourceLive, "", now),
		record("2", entities.DomainChat, entities.SourceLive, "", now),
		record("3", entities.DomainChat, entities.SourceFallback, entities.ReasonTimeout, now),
		record("4", entities.DomainRecommendations, entities.SourceFallback, entities.ReasonError, now),
		record("5", entities.DomainChat, entities.SourceFallback, entities.ReasonTimeout, now.Add(-2*time.Hour)),
	}
	for _, r := range recs {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	counts, err := store.Summary(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 groups, got %+v", counts)
	}
	if counts[0].Domain != entities.DomainChat || counts[0].SourceKind != entities.SourceFallback || counts[0].Count != 1 {
		t.Errorf("unexpected first group %+v", counts[0])
	}
	if counts[1].SourceKind != entities.SourceLive || counts[1].Count != 2 {
		t.Errorf("unexpected second group %+v", counts[1])
	}
	if counts[2].Domain != entities.DomainRecommendations || counts[2].FallbackReason != entities.ReasonError {
		t.Errorf("unexpected third group %+v", counts[2])
	}

	all, _ := store.Summary(ctx, time.Time{})
	total := 0
	for _, c := range all {
		total += c.Count
	}
	if total != len(recs) {
		t.Errorf("expected %d records, got %d", len(recs), total)
	}
}

func TestSQLAuditLog_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	r := record("dup", entities.DomainChat, entities.SourceLive, "", time.Now())
	if err := store.Record(ctx, r); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := store.Record(ctx, r); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestNewSQLAuditLog_UnknownDriver(t *testing.T) {
	if _, err := NewSQLAuditLog("postgres", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMySQLDSN(t *testing.T) {
	for _, host := range []string{"tcp(127.0.0.1:3306)", "127.0.0.1:3306"} {
		dsn := MySQLDSN("user", "secret", host, "support")
		if !strings.HasPrefix(dsn, "user:secret@tcp(127.0.0.1:3306)/support") {
			t.Errorf("unexpected dsn for %s: %s", host, dsn)
		}
		if !strings.Contains(dsn, "parseTime=true") {
			t.Errorf("dsn should parse times: %s", dsn)
		}
	}
}
