// Package sqlite implements the project repository on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/cpm/core/model"
	"github.com/kilianp07/cpm/core/project"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    start_date INTEGER NOT NULL,
    finish_date INTEGER
);
CREATE TABLE IF NOT EXISTS activities (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    original_duration INTEGER NOT NULL CHECK (original_duration >= 0),
    remaining_duration INTEGER NOT NULL CHECK (remaining_duration >= 0),
    early_start INTEGER,
    early_finish INTEGER,
    late_start INTEGER,
    late_finish INTEGER,
    total_float INTEGER,
    free_float INTEGER,
    is_critical INTEGER,
    PRIMARY KEY (project_id, id)
);
CREATE TABLE IF NOT EXISTS relationships (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    predecessor_id TEXT NOT NULL,
    successor_id TEXT NOT NULL,
    type TEXT NOT NULL,
    lag INTEGER NOT NULL,
    PRIMARY KEY (project_id, id)
);`

// Store is a project.Repository backed by SQLite. Every write runs inside a
// single transaction.
type Store struct {
	db *sql.DB
}

var _ project.Repository = (*Store)(nil)

// Open opens or creates the database at dsn and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps in-memory
	// databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;` + schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadSnapshot(ctx context.Context, projectID string) (project.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return project.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var snap project.Snapshot
	p, err := loadProject(ctx, tx, projectID)
	if err != nil {
		return snap, err
	}
	snap.Project = p
	if snap.Activities, err = loadActivities(ctx, tx, projectID); err != nil {
		return snap, err
	}
	if snap.Relationships, err = loadRelationships(ctx, tx, projectID); err != nil {
		return snap, err
	}
	return snap, tx.Commit()
}

func (s *Store) SaveSchedule(ctx context.Context, projectID string, finish time.Time, activities []model.Activity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE projects SET finish_date = ? WHERE id = ?`, finish.UnixNano(), projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", project.ErrProjectNotFound, projectID)
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE activities SET
        early_start = ?, early_finish = ?, late_start = ?, late_finish = ?,
        total_float = ?, free_float = ?, is_critical = ?
        WHERE project_id = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, a := range activities {
		res, err := stmt.ExecContext(ctx,
			unixNano(a.EarlyStart), unixNano(a.EarlyFinish), unixNano(a.LateStart), unixNano(a.LateFinish),
			nullInt(a.TotalFloat), nullInt(a.FreeFloat), nullBool(a.IsCritical),
			projectID, a.ID)
		if err != nil {
			return fmt.Errorf("update activity %s: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("activity %s does not belong to project %s", a.ID, projectID)
		}
	}
	return tx.Commit()
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, start_date, finish_date FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Import replaces the project and its network.
func (s *Store) Import(ctx context.Context, snap project.Snapshot) error {
	if snap.Project.ID == "" {
		return fmt.Errorf("project id is required")
	}
	for _, a := range snap.Activities {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	p := snap.Project
	for _, table := range []string{"relationships", "activities"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = ?`, p.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, name, start_date, finish_date) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.StartDate.UnixNano(), unixNano(p.FinishDate)); err != nil {
		return err
	}
	for i, a := range snap.Activities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO activities (
            project_id, id, seq, name, original_duration, remaining_duration,
            early_start, early_finish, late_start, late_finish, total_float, free_float, is_critical)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, a.ID, i, a.Name, a.OriginalDuration, a.RemainingDuration,
			unixNano(a.EarlyStart), unixNano(a.EarlyFinish), unixNano(a.LateStart), unixNano(a.LateFinish),
			nullInt(a.TotalFloat), nullInt(a.FreeFloat), nullBool(a.IsCritical)); err != nil {
			return fmt.Errorf("insert activity %s: %w", a.ID, err)
		}
	}
	for i, r := range snap.Relationships {
		if _, err := tx.ExecContext(ctx, `INSERT INTO relationships (
            project_id, id, seq, predecessor_id, successor_id, type, lag) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, r.ID, i, r.PredecessorID, r.SuccessorID, r.Type.String(), r.Lag); err != nil {
			return fmt.Errorf("insert relationship %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func loadProject(ctx context.Context, tx *sql.Tx, id string) (model.Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, name, start_date, finish_date FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("%w: %s", project.ErrProjectNotFound, id)
	}
	return p, err
}

func scanProject(row scanner) (model.Project, error) {
	var (
		p      model.Project
		start  int64
		finish sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &start, &finish); err != nil {
		return p, err
	}
	p.StartDate = fromUnixNano(start)
	p.FinishDate = timePtr(finish)
	return p, nil
}

func loadActivities(ctx context.Context, tx *sql.Tx, projectID string) ([]model.Activity, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, original_duration, remaining_duration,
        early_start, early_finish, late_start, late_finish, total_float, free_float, is_critical
        FROM activities WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Activity
	for rows.Next() {
		var (
			a              model.Activity
			es, ef, ls, lf sql.NullInt64
			tf, ff         sql.NullInt64
			crit           sql.NullBool
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.OriginalDuration, &a.RemainingDuration,
			&es, &ef, &ls, &lf, &tf, &ff, &crit); err != nil {
			return nil, err
		}
		a.ProjectID = projectID
		a.EarlyStart, a.EarlyFinish = timePtr(es), timePtr(ef)
		a.LateStart, a.LateFinish = timePtr(ls), timePtr(lf)
		a.TotalFloat, a.FreeFloat = intPtr(tf), intPtr(ff)
		if crit.Valid {
			c := crit.Bool
			a.IsCritical = &c
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func loadRelationships(ctx context.Context, tx *sql.Tx, projectID string) ([]model.Relationship, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, predecessor_id, successor_id, type, lag
        FROM relationships WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Relationship
	for rows.Next() {
		var (
			r   model.Relationship
			typ string
		)
		if err := rows.Scan(&r.ID, &r.PredecessorID, &r.SuccessorID, &typ, &r.Lag); err != nil {
			return nil, err
		}
		if r.Type, err = model.ParseRelationshipType(typ); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func unixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnixNano(v.Int64)
	return &t
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
