package catalog

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists the mutation journal. The annotation document itself
// lives in the JSON store, never here.
type Repository interface {
	AppendJournal(ctx context.Context, entry *JournalEntry) error
	ListJournal(ctx context.Context, video string, limit int) ([]*JournalEntry, error)

	CreateReconcileRun(ctx context.Context, run *ReconcileRun) error
	ListReconcileRuns(ctx context.Context, limit int) ([]*ReconcileRun, error)
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) AppendJournal(ctx context.Context, e *JournalEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal (id, action, video, start_time, end_time, position, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Action, e.Video, nullFloat(e.Start), nullFloat(e.End), nullInt(e.Position), e.Detail,
		e.CreatedAt.UTC().Format(timeLayout))
	return err
}

// ListJournal returns the newest entries first. An empty video lists all videos.
func (r *SQLiteRepository) ListJournal(ctx context.Context, video string, limit int) ([]*JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, video, start_time, end_time, position, detail, created_at
		FROM journal WHERE (? = '' OR video = ?)
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, video, video, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		var start, end sql.NullFloat64
		var position sql.NullInt64
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Action, &e.Video, &start, &end, &position, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		if start.Valid {
			e.Start = &start.Float64
		}
		if end.Valid {
			e.End = &end.Float64
		}
		if position.Valid {
			p := int(position.Int64)
			e.Position = &p
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) CreateReconcileRun(ctx context.Context, run *ReconcileRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, applied, keys_before, keys_after, merged, renamed, duplicates_dropped, backup_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, boolToInt(run.Applied), run.KeysBefore, run.KeysAfter, run.Merged, run.Renamed,
		run.DuplicatesDropped, run.BackupPath, run.CreatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) ListReconcileRuns(ctx context.Context, limit int) ([]*ReconcileRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, applied, keys_before, keys_after, merged, renamed, duplicates_dropped, backup_path, created_at
		FROM reconcile_runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*ReconcileRun{}
	for rows.Next() {
		var run ReconcileRun
		var applied int
		var createdAt string
		if err := rows.Scan(&run.ID, &applied, &run.KeysBefore, &run.KeysAfter, &run.Merged, &run.Renamed,
			&run.DuplicatesDropped, &run.BackupPath, &createdAt); err != nil {
			return nil, err
		}
		run.Applied = applied == 1
		run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
