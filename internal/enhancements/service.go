package enhancements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-enhancer/internal/llm"
	"resume-enhancer/internal/shared/metrics"
	"resume-enhancer/internal/shared/telemetry"
)

// DefaultJobTimeout bounds one enhancement run, independent of the client's own timeouts.
const DefaultJobTimeout = 300 * time.Second

const failedItemText = "Enhancement failed; no suggestions are available."

// Service coordinates enhancement runs: it owns one record per request from
// creation to its terminal state. It performs no retries.
type Service struct {
	Repo       Repo
	LLM        llm.Client
	JobTimeout time.Duration

	now      func() time.Time
	newID    func() string
	inflight sync.WaitGroup
}

// Enhance runs a full enhancement synchronously. Once the record exists the
// returned record is always terminal; a non-nil error alongside it means the
// terminal state could not be persisted.
func (s *Service) Enhance(ctx context.Context, sourceDocumentID, ownerID, content string) (Record, error) {
	rec, err := s.begin(ctx, sourceDocumentID, ownerID, content)
	if err != nil {
		return Record{}, err
	}
	return s.complete(ctx, rec)
}

// Start creates the record and moves it to processing synchronously, then
// finishes the run in the background. Use Wait to drain background runs.
func (s *Service) Start(ctx context.Context, sourceDocumentID, ownerID, content string) (Record, error) {
	rec, err := s.begin(ctx, sourceDocumentID, ownerID, content)
	if err != nil {
		return Record{}, err
	}
	bg := WithRequestID(context.Background(), requestIDFromContext(ctx))
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_, _ = s.complete(bg, rec)
	}()
	return rec, nil
}

// Wait blocks until every run started with Start has finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Get returns a record by ID.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	return s.Repo.GetByID(ctx, id)
}

// ListByOwner returns an owner's records ordered newest-first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: ownerId is required", ErrValidation)
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}

// ListBySource returns all records created for a source document ordered newest-first.
func (s *Service) ListBySource(ctx context.Context, sourceDocumentID string) ([]Record, error) {
	if strings.TrimSpace(sourceDocumentID) == "" {
		return nil, fmt.Errorf("%w: sourceDocumentId is required", ErrValidation)
	}
	return s.Repo.ListBySource(ctx, sourceDocumentID)
}

func (s *Service) begin(ctx context.Context, sourceDocumentID, ownerID, content string) (Record, error) {
	switch {
	case strings.TrimSpace(sourceDocumentID) == "":
		return Record{}, fmt.Errorf("%w: sourceDocumentId is required", ErrValidation)
	case strings.TrimSpace(ownerID) == "":
		return Record{}, fmt.Errorf("%w: ownerId is required", ErrValidation)
	case strings.TrimSpace(content) == "":
		return Record{}, fmt.Errorf("%w: content is required", ErrValidation)
	}

	now := s.clock()
	rec := Record{
		ID:               s.nextID(),
		OwnerID:          ownerID,
		SourceDocumentID: sourceDocumentID,
		OriginalContent:  content,
		Status:           StatusPending,
		Result:           pendingResult(content),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("create enhancement: %w", err)
	}
	s.logTransition(ctx, rec, StatusPending, "", nil)

	processing, err := s.Repo.Transition(ctx, rec.ID, StatusPending, StatusProcessing, nil, nil)
	if err != nil {
		return Record{}, fmt.Errorf("set processing: %w", err)
	}
	metrics.IncEnhancementStarted()
	s.logTransition(ctx, processing, StatusProcessing, "pending->processing", nil)
	return processing, nil
}

func (s *Service) complete(ctx context.Context, rec Record) (out Record, err error) {
	startedAt := s.clock()
	persistCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			out, err = s.fail(persistCtx, rec, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	if s.LLM == nil {
		return s.fail(persistCtx, rec, &llm.ConfigurationError{Reason: "no enhancement client configured"}, startedAt)
	}

	timeout := s.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	raw, callErr := s.LLM.Analyze(callCtx, rec.OriginalContent)
	cancel()
	if callErr != nil {
		return s.fail(persistCtx, rec, callErr, startedAt)
	}

	fields, tier := Extract(raw)
	metrics.IncExtractionTier(string(tier))
	if tier == TierFallback {
		telemetry.Warn("enhancement.unstructured_response", map[string]any{
			"request_id":     requestIDFromContext(ctx),
			"enhancement_id": rec.ID,
			"raw_preview":    telemetry.Truncate(raw, 200),
		})
	}
	result := Finalize(fields, rec.OriginalContent)

	processedAt := s.clock()
	done, err := s.Repo.Transition(persistCtx, rec.ID, StatusProcessing, StatusCompleted, &result, &processedAt)
	if err != nil {
		rec.Status = StatusCompleted
		rec.Result = result
		rec.ProcessedAt = &processedAt
		telemetry.Error("enhancement.persist_failed", map[string]any{
			"enhancement_id": rec.ID,
			"status":         StatusCompleted,
			"error":          err,
		})
		return rec, fmt.Errorf("set completed: %w", err)
	}
	metrics.IncEnhancementCompleted()
	metrics.ObserveEnhancementDurationMs(durationMs(startedAt, processedAt))
	s.logTransition(ctx, done, StatusCompleted, "processing->completed", map[string]any{
		"extraction_tier": string(tier),
		"score":           done.Score,
		"duration_ms":     durationMs(startedAt, processedAt),
	})
	return done, nil
}

func (s *Service) fail(ctx context.Context, rec Record, cause error, startedAt time.Time) (Record, error) {
	kind := llm.FailureKind(cause)
	result := failureResult(rec.OriginalContent, cause)
	processedAt := s.clock()

	metrics.IncEnhancementFailed(kind)
	metrics.ObserveEnhancementDurationMs(durationMs(startedAt, processedAt))

	failed, err := s.Repo.Transition(ctx, rec.ID, StatusProcessing, StatusFailed, &result, &processedAt)
	if err != nil {
		rec.Status = StatusFailed
		rec.Result = result
		rec.ProcessedAt = &processedAt
		telemetry.Error("enhancement.persist_failed", map[string]any{
			"enhancement_id": rec.ID,
			"status":         StatusFailed,
			"error":          err,
			"cause":          sanitizeError(cause),
		})
		return rec, fmt.Errorf("set failed: %w", err)
	}
	s.logTransition(ctx, failed, StatusFailed, "processing->failed", map[string]any{
		"failure_kind": kind,
		"error":        sanitizeError(cause),
		"duration_ms":  durationMs(startedAt, processedAt),
	})
	return failed, nil
}

// failureResult is the output stored for a failed run: original content kept,
// every list a single failure placeholder, zero score.
func failureResult(original string, cause error) Result {
	failedList := func(key string) []Item {
		return []Item{{Key: itemKeys[key], Text: failedItemText}}
	}
	return Result{
		EnhancedContent:   original,
		Suggestions:       failedList(KeyEnhancementSuggestions),
		KeywordAnalysis:   failedList(KeyKeywordAnalysis),
		FormatSuggestions: failedList(KeyFormatSuggestions),
		SkillSuggestions:  failedList(KeySkillSuggestions),
		OverallFeedback:   failureFeedback(cause),
		Score:             0,
	}
}

func failureFeedback(cause error) string {
	var reason string
	switch llm.FailureKind(cause) {
	case llm.KindConfiguration:
		reason = "the enhancement service is not configured"
	case llm.KindNetwork:
		reason = "the enhancement service could not be reached or returned an error"
	case llm.KindUpstreamFormat:
		reason = "the enhancement service returned an unexpected response"
	default:
		reason = "an internal error occurred"
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "the enhancement service did not respond in time"
	}
	return fmt.Sprintf("Resume enhancement failed: %s. Cause: %s", reason, sanitizeError(cause))
}

func (s *Service) logTransition(ctx context.Context, rec Record, status Status, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":         requestIDFromContext(ctx),
		"enhancement_id":     rec.ID,
		"owner_id":           rec.OwnerID,
		"source_document_id": rec.SourceDocumentID,
		"status":             string(status),
		"status_transition":  transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("enhancement.status", fields)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) nextID() string {
	if s.newID != nil {
		return s.newID()
	}
	return uuid.NewString()
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
