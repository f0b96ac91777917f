// Package auditlog provides reply audit adapters.
// Clean Architecture: Adapter implementing ports.AuditLog.
// SQLite is the default for single-node deployments; MySQL for shared ones.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS reply_audit (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			category TEXT NOT NULL,
			source_kind TEXT NOT NULL,
			fallback_reason TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL DEFAULT '',
			user_email TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reply_audit_created_at ON reply_audit(created_at)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS reply_audit (
			id CHAR(26) PRIMARY KEY,
			domain VARCHAR(32) NOT NULL,
			category VARCHAR(64) NOT NULL,
			source_kind VARCHAR(16) NOT NULL,
			fallback_reason VARCHAR(32) NOT NULL DEFAULT '',
			conversation_id VARCHAR(128) NOT NULL DEFAULT '',
			user_email VARCHAR(255) NOT NULL DEFAULT '',
			latency_ms BIGINT NOT NULL,
			created_at DATETIME(3) NOT NULL,
			INDEX idx_reply_audit_created_at (created_at)
		) DEFAULT CHARSET=utf8mb4`,
	},
}

// SQLAuditLog implements ports.AuditLog on database/sql.
type SQLAuditLog struct {
	db     *sql.DB
	driver string
}

// NewSQLAuditLog opens the database and creates the table if needed.
// For sqlite3 the DSN is a file path whose directory is created.
func NewSQLAuditLog(driver, dsn string) (*SQLAuditLog, error) {
	statements, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}

	if driver == DriverSQLite {
		if dsn == "" {
			dsn = "./data/audit.db"
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time avoids "database is locked" under load
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	return &SQLAuditLog{db: db, driver: driver}, nil
}

// Record stores one reply outcome.
func (s *SQLAuditLog) Record(ctx context.Context, rec entities.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reply_audit (id, domain, category, source_kind, fallback_reason, conversation_id, user_email, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		string(rec.Domain),
		rec.Category,
		string(rec.SourceKind),
		string(rec.FallbackReason),
		rec.ConversationID,
		rec.UserEmail,
		rec.LatencyMS,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// Summary counts outcomes created at or after since.
func (s *SQLAuditLog) Summary(ctx context.Context, since time.Time) ([]entities.AuditCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, source_kind, fallback_reason, COUNT(*)
		FROM reply_audit
		WHERE created_at >= ?
		GROUP BY domain, source_kind, fallback_reason
		ORDER BY domain, source_kind, fallback_reason
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying audit summary: %w", err)
	}
	defer rows.Close()

	var counts []entities.AuditCount
	for rows.Next() {
		var c entities.AuditCount
		var domain, kind, reason string
		if err := rows.Scan(&domain, &kind, &reason, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.Domain = entities.Domain(domain)
		c.SourceKind = entities.SourceKind(kind)
		c.FallbackReason = entities.FallbackReason(reason)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Close closes the database connection.
func (s *SQLAuditLog) Close() error {
	return s.db.Close()
}

// MySQLDSN builds a DSN from discrete settings. host may be a bare
// "host:port" or the driver's "tcp(host:port)" form.
func MySQLDSN(user, password, host, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = strings.TrimSuffix(strings.TrimPrefix(host, "tcp("), ")")
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
