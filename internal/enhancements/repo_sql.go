package enhancements

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Dialect selects placeholder syntax for SQLRepo.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// SQLRepo implements Repo on database/sql. Postgres (pgx) stores list fields as
// JSONB, SQLite as TEXT; queries are shared.
type SQLRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewPGRepo returns a repository backed by Postgres.
func NewPGRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{DB: db, Dialect: DialectPostgres}
}

// NewSQLiteRepo returns a repository backed by SQLite.
func NewSQLiteRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{DB: db, Dialect: DialectSQLite}
}

const recordColumns = `id, owner_id, source_document_id, original_content, status, enhanced_content,
       suggestions, keyword_analysis, format_suggestions, skill_suggestions,
       overall_feedback, score, processed_at, created_at, updated_at`

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// bind rewrites $n placeholders for SQLite. Every query uses each $n once, in order.
func (r *SQLRepo) bind(query string) string {
	if r.Dialect == DialectSQLite {
		return placeholderPattern.ReplaceAllString(query, "?")
	}
	return query
}

// Create inserts a new record.
func (r *SQLRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO resume_enhancements (
	id, owner_id, source_document_id, original_content, status, enhanced_content,
	suggestions, keyword_analysis, format_suggestions, skill_suggestions,
	overall_feedback, score, processed_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	lists, err := marshalLists(rec.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.bind(query),
		rec.ID,
		rec.OwnerID,
		rec.SourceDocumentID,
		rec.OriginalContent,
		string(rec.Status),
		rec.EnhancedContent,
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		rec.OverallFeedback,
		rec.Score,
		nullTime(rec.ProcessedAt),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

// Transition applies a compare-and-set status change.
func (r *SQLRepo) Transition(ctx context.Context, id string, from, to Status, result *Result, processedAt *time.Time) (Record, error) {
	if !from.CanTransitionTo(to) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	now := time.Now().UTC()

	var query string
	var args []any
	if result == nil {
		query = `
UPDATE resume_enhancements
SET status = $1, processed_at = COALESCE($2, processed_at), updated_at = $3
WHERE id = $4 AND status = $5`
		args = []any{string(to), nullTime(processedAt), now, id, string(from)}
	} else {
		query = `
UPDATE resume_enhancements
SET status = $1, enhanced_content = $2, suggestions = $3, keyword_analysis = $4,
    format_suggestions = $5, skill_suggestions = $6, overall_feedback = $7, score = $8,
    processed_at = $9, updated_at = $10
WHERE id = $11 AND status = $12`
		lists, err := marshalLists(*result)
		if err != nil {
			return Record{}, err
		}
		args = []any{
			string(to),
			result.EnhancedContent,
			lists[0],
			lists[1],
			lists[2],
			lists[3],
			result.OverallFeedback,
			result.Score,
			nullTime(processedAt),
			now,
			id,
			string(from),
		}
	}

	// SQLite reports no declared column types for RETURNING output, so timestamps
	// would come back as text; re-read the row instead.
	if r.Dialect == DialectSQLite {
		res, err := r.DB.ExecContext(ctx, r.bind(query), args...)
		if err != nil {
			return Record{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Record{}, err
		}
		if n == 0 {
			return Record{}, r.staleTransition(ctx, id, from)
		}
		return r.GetByID(ctx, id)
	}

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, r.bind(query+"\nRETURNING "+recordColumns), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, r.staleTransition(ctx, id, from)
	}
	return rec, err
}

func (r *SQLRepo) staleTransition(ctx context.Context, id string, from Status) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: record is %s, not %s", ErrInvalidTransition, current.Status, from)
}

// GetByID returns a record by ID.
func (r *SQLRepo) GetByID(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM resume_enhancements
WHERE id = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, r.bind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ListByOwner lists an owner's records ordered newest-first.
func (r *SQLRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	limit, offset = normalizePage(limit, offset)
	const query = `
SELECT ` + recordColumns + `
FROM resume_enhancements
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	return r.query(ctx, query, ownerID, limit, offset)
}

// ListBySource lists every record of a source document ordered newest-first.
func (r *SQLRepo) ListBySource(ctx context.Context, sourceDocumentID string) ([]Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM resume_enhancements
WHERE source_document_id = $1
ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, sourceDocumentID)
}

func (r *SQLRepo) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, r.bind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var status string
	var suggestions, keywords, formats, skills sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.SourceDocumentID,
		&rec.OriginalContent,
		&status,
		&rec.EnhancedContent,
		&suggestions,
		&keywords,
		&formats,
		&skills,
		&rec.OverallFeedback,
		&rec.Score,
		&processedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	if rec.Suggestions, err = unmarshalItems(suggestions); err != nil {
		return Record{}, fmt.Errorf("decode suggestions: %w", err)
	}
	if rec.KeywordAnalysis, err = unmarshalItems(keywords); err != nil {
		return Record{}, fmt.Errorf("decode keyword_analysis: %w", err)
	}
	if rec.FormatSuggestions, err = unmarshalItems(formats); err != nil {
		return Record{}, fmt.Errorf("decode format_suggestions: %w", err)
	}
	if rec.SkillSuggestions, err = unmarshalItems(skills); err != nil {
		return Record{}, fmt.Errorf("decode skill_suggestions: %w", err)
	}
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		rec.ProcessedAt = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func marshalLists(res Result) ([4]string, error) {
	var out [4]string
	for i, items := range [][]Item{res.Suggestions, res.KeywordAnalysis, res.FormatSuggestions, res.SkillSuggestions} {
		if items == nil {
			items = []Item{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return out, fmt.Errorf("encode items: %w", err)
		}
		out[i] = string(data)
	}
	return out, nil
}

func unmarshalItems(raw sql.NullString) ([]Item, error) {
	if !raw.Valid || raw.String == "" {
		return []Item{}, nil
	}
	items := []Item{}
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
