package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-practice/internal/model"
)

// ResultRepository persists finalized practice results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

var resultColumns = []string{
	"id", "session_id", "student_id", "run_id", "day",
	"score_percent", "grade", "correct_count", "total_count",
	"time_spent_seconds", "per_subject", "completed_at",
}

func resultRow(r *model.ArchivedResult) ([]any, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("result id %q: %w", r.ID, err)
	}
	var runID *uuid.UUID
	if r.RunID != nil {
		parsed, err := uuid.Parse(*r.RunID)
		if err != nil {
			return nil, fmt.Errorf("run id %q: %w", *r.RunID, err)
		}
		runID = &parsed
	}
	perSubject, err := json.Marshal(r.Result.PerSubject)
	if err != nil {
		return nil, fmt.Errorf("marshal per subject: %w", err)
	}

	return []any{
		id, r.Result.SessionID, r.StudentID, runID, r.Day,
		r.Result.ScorePercent, string(r.Result.Grade), r.Result.CorrectCount, r.Result.TotalCount,
		r.Result.TimeSpentSeconds, perSubject, r.CompletedAt,
	}, nil
}

// BulkInsert writes a batch with COPY. A single conflicting row fails the
// whole batch; callers fall back to Insert.
func (r *ResultRepository) BulkInsert(ctx context.Context, batch []*model.ArchivedResult) error {
	rows := make([][]any, 0, len(batch))
	for _, res := range batch {
		row, err := resultRow(res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"practice_results"}, resultColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert writes one result, ignoring a duplicate of an already archived session.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ArchivedResult) error {
	row, err := resultRow(res)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO practice_results (id, session_id, student_id, run_id, day,
		     score_percent, grade, correct_count, total_count,
		     time_spent_seconds, per_subject, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12)
		 ON CONFLICT (student_id, session_id) DO NOTHING`,
		row...,
	)
	return err
}

// ListByStudent returns one page of a student's results, newest first, and
// the total count.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID, page, perPage int) ([]model.ArchivedResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM practice_results WHERE student_id = $1`, studentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, student_id, run_id, day,
		        score_percent::float8, grade, correct_count, total_count,
		        time_spent_seconds, per_subject, completed_at, archived_at
		 FROM practice_results
		 WHERE student_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2 OFFSET $3`, studentID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]model.ArchivedResult, 0, perPage)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// ListByRun returns every archived day of a comprehensive run in day order.
func (r *ResultRepository) ListByRun(ctx context.Context, studentID int, runID string) ([]model.ArchivedResult, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", runID, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, student_id, run_id, day,
		        score_percent::float8, grade, correct_count, total_count,
		        time_spent_seconds, per_subject, completed_at, archived_at
		 FROM practice_results
		 WHERE student_id = $1 AND run_id = $2
		 ORDER BY day ASC`, studentID, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ArchivedResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanResult(rows pgx.Rows) (model.ArchivedResult, error) {
	var (
		res        model.ArchivedResult
		id         uuid.UUID
		runID      *uuid.UUID
		day        *int16
		grade      string
		perSubject []byte
	)
	err := rows.Scan(
		&id, &res.Result.SessionID, &res.StudentID, &runID, &day,
		&res.Result.ScorePercent, &grade, &res.Result.CorrectCount, &res.Result.TotalCount,
		&res.Result.TimeSpentSeconds, &perSubject, &res.CompletedAt, &res.ArchivedAt,
	)
	if err != nil {
		return res, err
	}

	res.ID = id.String()
	if runID != nil {
		s := runID.String()
		res.RunID = &s
	}
	if day != nil {
		d := int(*day)
		res.Day = &d
	}
	res.Result.Grade = model.Grade(grade)
	res.Result.PerSubject = []model.SubjectScore{}
	if len(perSubject) > 0 {
		if err := json.Unmarshal(perSubject, &res.Result.PerSubject); err != nil {
			return res, fmt.Errorf("unmarshal per subject: %w", err)
		}
	}
	return res, nil
}
