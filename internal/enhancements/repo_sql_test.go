package enhancements

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-enhancer/internal/shared/storage/sqlite"
)

var sqlColumns = []string{
	"id", "owner_id", "source_document_id", "original_content", "status", "enhanced_content",
	"suggestions", "keyword_analysis", "format_suggestions", "skill_suggestions",
	"overall_feedback", "score", "processed_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPGRepo(db), mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rec := newPendingRecord("enh-1", "owner-1", "doc-1", now)

	mock.ExpectExec("INSERT INTO resume_enhancements").
		WithArgs(
			rec.ID,
			rec.OwnerID,
			rec.SourceDocumentID,
			rec.OriginalContent,
			"pending",
			rec.EnhancedContent,
			"[]",
			"[]",
			"[]",
			"[]",
			"",
			0.0,
			sqlmock.AnyArg(), // processed_at
			now,
			now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionWithResult(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	result := Result{
		EnhancedContent:   "better",
		Suggestions:       []Item{{Key: "suggestion", Text: "s"}},
		KeywordAnalysis:   []Item{{Key: "keyword", Text: "k"}},
		FormatSuggestions: []Item{{Key: "suggestion", Text: "f"}},
		SkillSuggestions:  []Item{{Key: "skill", Text: "go"}},
		OverallFeedback:   "good",
		Score:             8,
	}

	mock.ExpectQuery("UPDATE resume_enhancements").
		WithArgs(
			"completed",
			"better",
			`[{"suggestion":"s"}]`,
			`[{"keyword":"k"}]`,
			`[{"suggestion":"f"}]`,
			`[{"skill":"go"}]`,
			"good",
			8.0,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"enh-1",
			"processing",
		).
		WillReturnRows(sqlmock.NewRows(sqlColumns).AddRow(
			"enh-1", "owner-1", "doc-1", "orig", "completed", "better",
			`[{"suggestion":"s"}]`, `[{"keyword":"k"}]`, `[{"suggestion":"f"}]`, `[{"skill":"go"}]`,
			"good", 8.0, now, now, now,
		))

	rec, err := repo.Transition(context.Background(), "enh-1", StatusProcessing, StatusCompleted, &result, &now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, result, rec.Result)
	require.NotNil(t, rec.ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionStaleStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE resume_enhancements").
		WillReturnRows(sqlmock.NewRows(sqlColumns))
	mock.ExpectQuery("SELECT (.+) FROM resume_enhancements").
		WithArgs("enh-1").
		WillReturnRows(sqlmock.NewRows(sqlColumns).AddRow(
			"enh-1", "owner-1", "doc-1", "orig", "completed", "orig",
			"[]", "[]", "[]", "[]", "", 0.0, nil, now, now,
		))

	_, err := repo.Transition(context.Background(), "enh-1", StatusPending, StatusProcessing, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoTransitionRejectsIllegalStep(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.Transition(context.Background(), "enh-1", StatusPending, StatusFailed, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM resume_enhancements").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListByOwnerClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM resume_enhancements (.+) ORDER BY created_at DESC").
		WithArgs("owner-1", maxListLimit, 0).
		WillReturnRows(sqlmock.NewRows(sqlColumns).
			AddRow("b", "owner-1", "doc-1", "two", "processing", "two", "[]", "[]", "[]", "[]", "", 0.0, nil, now, now).
			AddRow("a", "owner-1", "doc-1", "one", "failed", "one", nil, nil, nil, nil, "x", 0.0, now, now, now))

	recs, err := repo.ListByOwner(context.Background(), "owner-1", 500, -1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Nil(t, recs[0].ProcessedAt)
	assert.NotNil(t, recs[1].SkillSuggestions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "enh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, _ := newTestService(staticLLM(`{"enhanced_content":"better","skill_suggestions":["Go"],"score":"7/10"}`))
	repo := NewSQLiteRepo(db)
	svc.Repo = repo

	rec, err := svc.Enhance(ctx, "doc-1", "owner-1", "plain")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)

	stored, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "better", stored.EnhancedContent)
	assert.Equal(t, []Item{{Key: "skill", Text: "Go"}}, stored.SkillSuggestions)
	assert.Equal(t, 7.0, stored.Score)
	require.NotNil(t, stored.ProcessedAt)

	_, err = repo.Transition(ctx, rec.ID, StatusProcessing, StatusFailed, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	bySource, err := repo.ListBySource(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, rec.ID, bySource[0].ID)
}
