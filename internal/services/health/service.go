package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	Store         string
	DB            Pinger
	LLMConfigured bool
	Timeout       time.Duration
}

// Report is the health payload.
type Report struct {
	OK            bool   `json:"ok"`
	Store         string `json:"store"`
	StoreError    string `json:"storeError,omitempty"`
	LLMConfigured bool   `json:"llmConfigured"`
}

// NewService constructs a new health service.
func NewService(store string, db Pinger, llmConfigured bool) *Service {
	return &Service{Store: store, DB: db, LLMConfigured: llmConfigured, Timeout: 2 * time.Second}
}

// Status pings the database, if any. A missing upstream credential is reported
// but does not make the service unhealthy: runs still reach a terminal state.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Store: s.Store, LLMConfigured: s.LLMConfigured}
	if s.DB == nil {
		return report
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		report.OK = false
		report.StoreError = err.Error()
	}
	return report
}
