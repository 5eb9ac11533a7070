package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ruleboard/internal/model"

	"github.com/google/uuid"
)

const localTarget = "local"

// Submission is one recorded submit with the document that was sent.
type Submission struct {
	model.SubmitResult
	Document model.Document `json:"document"`
}

// SubmitAssignment implements editor.Submitter for offline workspaces: the document is only
// recorded in the submissions table.
func (s Store) SubmitAssignment(ctx context.Context, doc model.Document) (model.SubmitResult, error) {
	return s.RecordSubmission(ctx, doc, model.SubmitResult{Target: localTarget})
}

// RecordSubmission stores doc together with res. Empty ID and SubmittedAt are filled in.
func (s Store) RecordSubmission(ctx context.Context, doc model.Document, res model.SubmitResult) (model.SubmitResult, error) {
	if strings.TrimSpace(res.ID) == "" {
		res.ID = "sub-" + uuid.NewString()
	}
	if res.SubmittedAt.IsZero() {
		res.SubmittedAt = time.Now().UTC()
	}
	if strings.TrimSpace(res.Target) == "" {
		res.Target = localTarget
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return model.SubmitResult{}, err
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.SubmitResult{}, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `INSERT INTO submissions(id, submitted_at_unixms, target, status, message, document_json) VALUES(?, ?, ?, ?, ?, ?)`,
		res.ID, res.SubmittedAt.UTC().UnixMilli(), res.Target, res.Status, res.Message, string(raw)); err != nil {
		return model.SubmitResult{}, err
	}
	return res, nil
}

// ListSubmissions returns the most recent submissions first. limit <= 0 means all.
func (s Store) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT id, submitted_at_unixms, target, status, message, document_json FROM submissions ORDER BY submitted_at_unixms DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		var (
			sub  Submission
			ms   int64
			docJ string
		)
		if err := rows.Scan(&sub.ID, &ms, &sub.Target, &sub.Status, &sub.Message, &docJ); err != nil {
			return nil, err
		}
		sub.SubmittedAt = time.UnixMilli(ms).UTC()
		if err := json.Unmarshal([]byte(docJ), &sub.Document); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
