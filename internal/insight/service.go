package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"quy/internal/cache"
	"quy/internal/core"
	"quy/internal/log"
)

// Report is the outcome of one analysis.
type Report struct {
	Text        string    `json:"text"`
	Failed      bool      `json:"failed"`
	Records     int       `json:"records"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// State is what a poller sees: whether an analysis is running and the last
// finished report.
type State struct {
	Busy   bool    `json:"busy"`
	Report *Report `json:"report,omitempty"`
}

// Service runs analyses and remembers the latest result.
type Service struct {
	analyzer Analyzer
	timeout  time.Duration
	reports  cache.Cache[Report]

	mu      sync.Mutex
	running int
	last    *Report

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithCache reuses successful reports for a ledger whose analyzed content has
// not changed. Failed reports are never cached.
func WithCache(c cache.Cache[Report]) Option {
	return func(s *Service) { s.reports = c }
}

// NewService wraps analyzer. A nil analyzer makes every run fail over to the
// fallback message.
func NewService(analyzer Analyzer, timeout time.Duration, opts ...Option) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s := &Service{analyzer: analyzer, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run analyzes ledger synchronously. An empty ledger makes no remote call
// and returns false.
func (s *Service) Run(ctx context.Context, ledger []core.Transaction) (Report, bool) {
	if len(ledger) == 0 {
		return Report{}, false
	}

	s.mu.Lock()
	s.running++
	s.mu.Unlock()

	key := fingerprint(ledger)
	r, hit := s.cached(key)
	if !hit {
		r = s.analyze(ctx, ledger)
		if !r.Failed && s.reports != nil && key != "" {
			s.reports.Set(key, r)
		}
	}

	s.mu.Lock()
	s.running--
	s.last = &r
	s.mu.Unlock()
	return r, true
}

// Start runs the analysis in the background. It reports false, and does
// nothing, for an empty ledger.
func (s *Service) Start(ledger []core.Transaction) bool {
	if len(ledger) == 0 {
		return false
	}
	snapshot := append([]core.Transaction{}, ledger...)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(context.Background(), snapshot)
	}()
	return true
}

// Current returns the busy flag and the most recent report.
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Busy: s.running > 0}
	if s.last != nil {
		r := *s.last
		st.Report = &r
	}
	return st
}

// Wait blocks until background analyses have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) cached(key string) (Report, bool) {
	if s.reports == nil || key == "" {
		return Report{}, false
	}
	r, ok := s.reports.Get(key)
	if ok {
		log.For(log.ComponentInsight).Debug("AI analysis served from cache", "records", r.Records)
	}
	return r, ok
}

// fingerprint identifies the part of the ledger the model sees. It returns ""
// when the prompt cannot be built.
func fingerprint(ledger []core.Transaction) string {
	prompt, err := BuildPrompt(ledger)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (s *Service) analyze(ctx context.Context, ledger []core.Transaction) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r := Report{Records: len(ledger)}
	if s.analyzer == nil {
		log.For(log.ComponentInsight).WarnContext(ctx, "Insight analyzer not configured")
		r.Text, r.Failed = FallbackMessage, true
		r.GeneratedAt = time.Now()
		return r
	}

	text, err := s.analyzer.Analyze(ctx, ledger)
	r.GeneratedAt = time.Now()
	if err != nil {
		log.For(log.ComponentInsight).ErrorContext(ctx, "AI analysis failed",
			log.FieldError, err,
			log.FieldOperation, log.OpAnalyze,
			log.FieldRecords, len(ledger))
		r.Text, r.Failed = FallbackMessage, true
		return r
	}
	log.For(log.ComponentInsight).InfoContext(ctx, "AI analysis completed", "records", len(ledger), "length", len(text))
	r.Text = text
	return r
}
