package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ruleboard/internal/model"

	_ "modernc.org/sqlite"
)

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL allows the web dashboard and CLI to read while one writes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLiteState(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLiteState(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			requires_input INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS buckets (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS instances (
			id TEXT PRIMARY KEY,
			bucket TEXT NOT NULL REFERENCES buckets(name) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			template_id TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_instances_bucket ON instances(bucket, position);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			submitted_at_unixms INTEGER NOT NULL,
			target TEXT NOT NULL,
			status INTEGER NOT NULL,
			message TEXT NOT NULL,
			document_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_time ON submissions(submitted_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func sqliteInitialized(ctx context.Context, db *sql.DB) (bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = 'initialized'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(v) == "1", nil
}

// saveAssignment uses a replace-all strategy inside one transaction; the state is small.
func saveAssignment(ctx context.Context, db *sql.DB, a model.Assignment) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range []string{"instances", "buckets", "templates"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}

	nowMs := time.Now().UTC().UnixMilli()
	for i, tpl := range a.Catalog {
		raw, err := json.Marshal(tpl)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO templates(id, position, label, requires_input, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			tpl.ID, i, tpl.Label, boolToInt(tpl.RequiresInput), string(raw), nowMs); err != nil {
			return fmt.Errorf("save template %q: %w", tpl.ID, err)
		}
	}
	for bi, b := range a.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO buckets(name, position) VALUES(?, ?)`, b.Name, bi); err != nil {
			return fmt.Errorf("save bucket %q: %w", b.Name, err)
		}
		for ii, it := range b.Instances {
			raw, err := json.Marshal(it)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO instances(id, bucket, position, template_id, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
				it.InstanceID, b.Name, ii, it.TemplateID, string(raw), nowMs); err != nil {
				return fmt.Errorf("save instance %q: %w", it.InstanceID, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES('initialized', '1')`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES('updated_at_unixms', ?)`, fmt.Sprintf("%d", nowMs)); err != nil {
		return err
	}
	return tx.Commit()
}

func loadAssignment(ctx context.Context, db *sql.DB) (model.Assignment, error) {
	out := model.Assignment{Catalog: []model.TemplateItem{}, Buckets: []model.Bucket{}}

	tpls, err := readJSONRows[model.TemplateItem](ctx, db, `SELECT json FROM templates ORDER BY position`)
	if err != nil {
		return model.Assignment{}, err
	}
	if tpls != nil {
		out.Catalog = tpls
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM buckets ORDER BY position`)
	if err != nil {
		return model.Assignment{}, err
	}
	index := map[string]int{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return model.Assignment{}, err
		}
		index[name] = len(out.Buckets)
		out.Buckets = append(out.Buckets, model.Bucket{Name: name, Instances: []model.ItemInstance{}})
	}
	if err := rows.Close(); err != nil {
		return model.Assignment{}, err
	}

	irows, err := db.QueryContext(ctx, `SELECT bucket, json FROM instances ORDER BY bucket, position`)
	if err != nil {
		return model.Assignment{}, err
	}
	defer irows.Close()
	for irows.Next() {
		var bucket, js string
		if err := irows.Scan(&bucket, &js); err != nil {
			return model.Assignment{}, err
		}
		i, ok := index[bucket]
		if !ok {
			continue
		}
		var it model.ItemInstance
		if err := json.Unmarshal([]byte(js), &it); err != nil {
			return model.Assignment{}, err
		}
		out.Buckets[i].Instances = append(out.Buckets[i].Instances, it)
	}
	return out, irows.Err()
}

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
