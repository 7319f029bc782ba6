package enhancements

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Record)}
}

// Create stores the record.
func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[rec.ID]; exists {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	r.byID[rec.ID] = cloneRecord(rec)
	return nil
}

// Transition applies a status change if the stored status matches from.
func (r *MemoryRepo) Transition(ctx context.Context, id string, from, to Status, result *Result, processedAt *time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !from.CanTransitionTo(to) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != from {
		return Record{}, fmt.Errorf("%w: record is %s, not %s", ErrInvalidTransition, rec.Status, from)
	}
	rec.Status = to
	if result != nil {
		rec.Result = *result
	}
	if processedAt != nil {
		t := *processedAt
		rec.ProcessedAt = &t
	}
	rec.UpdatedAt = time.Now().UTC()
	r.byID[id] = rec
	return cloneRecord(rec), nil
}

// GetByID returns a record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// ListByOwner returns records for an owner, newest first, with limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	limit, offset = normalizePage(limit, offset)
	out, err := r.filter(ctx, func(rec Record) bool { return rec.OwnerID == ownerID })
	if err != nil {
		return nil, err
	}
	if offset >= len(out) {
		return []Record{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// ListBySource returns every record for a source document, newest first.
func (r *MemoryRepo) ListBySource(ctx context.Context, sourceDocumentID string) ([]Record, error) {
	return r.filter(ctx, func(rec Record) bool { return rec.SourceDocumentID == sourceDocumentID })
}

func (r *MemoryRepo) filter(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if keep(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneRecord(rec Record) Record {
	rec.Suggestions = cloneItems(rec.Suggestions)
	rec.KeywordAnalysis = cloneItems(rec.KeywordAnalysis)
	rec.FormatSuggestions = cloneItems(rec.FormatSuggestions)
	rec.SkillSuggestions = cloneItems(rec.SkillSuggestions)
	if rec.ProcessedAt != nil {
		t := *rec.ProcessedAt
		rec.ProcessedAt = &t
	}
	return rec
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
