package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/marksync/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS backups (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    schedule_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    timestamp TEXT NOT NULL, -- RFC3339Nano, UTC
    content_ref TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_backups_schedule ON backups(schedule_id);
`

// dbRecord is used for scanning rows where the timestamp is stored as TEXT.
type dbRecord struct {
	Seq        int64  `db:"seq"`
	ID         string `db:"id"`
	Type       string `db:"type"`
	ScheduleID string `db:"schedule_id"`
	Status     string `db:"status"`
	Timestamp  string `db:"timestamp"`
	ContentRef string `db:"content_ref"`
}

// SQLiteLog keeps the backup log in a local SQLite database.
type SQLiteLog struct {
	db     *sqlx.DB
	dbPath string
}

// OpenSQLiteLog opens (or creates) the log at dbPath. Use db.MemoryPath for a throwaway log.
func OpenSQLiteLog(ctx context.Context, dbPath string) (*SQLiteLog, error) {
	conn, err := db.NewSqliteDb(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open backup log: %w", err)
	}

	if err := db.Migrate(ctx, conn, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize backup log schema: %w", err)
	}

	return &SQLiteLog{db: conn, dbPath: dbPath}, nil
}

func (s *SQLiteLog) Append(ctx context.Context, rec *Record) error {
	row := dbRecord{
		ID:         rec.ID,
		Type:       string(rec.Type),
		ScheduleID: rec.ScheduleID,
		Status:     string(rec.Status),
		Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339Nano),
		ContentRef: rec.ContentRef,
	}

	query := `INSERT INTO backups (id, type, schedule_id, status, timestamp, content_ref)
	          VALUES (:id, :type, :schedule_id, :status, :timestamp, :content_ref)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("append backup %s: %w", rec.ID, err)
	}
	slog.Debug("backup log append", "id", rec.ID, "schedule", rec.ScheduleID)
	return nil
}

func (s *SQLiteLog) List(ctx context.Context) ([]*Record, error) {
	var rows []dbRecord
	err := s.db.SelectContext(ctx, &rows, "SELECT seq, id, type, schedule_id, status, timestamp, content_ref FROM backups ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.Timestamp)
		if err != nil {
			// a corrupt row must not hide the rest of the log
			slog.Error("backup log", "id", row.ID, "timestamp", row.Timestamp, "error", err)
			continue
		}
		out = append(out, &Record{
			ID:         row.ID,
			Type:       Type(row.Type),
			ScheduleID: row.ScheduleID,
			Status:     Status(row.Status),
			Timestamp:  ts,
			ContentRef: row.ContentRef,
		})
	}
	return out, nil
}

// Remove deletes ids in one transaction.
func (s *SQLiteLog) Remove(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("DELETE FROM backups WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete backups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete backups: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteLog) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close backup log", "path", s.dbPath, "error", err)
		return err
	}
	return nil
}

var _ LogBackend = (*SQLiteLog)(nil)
