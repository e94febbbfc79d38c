package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"arxivdigest/internal/database"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Fetcher retrieves raw Atom payloads. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, params url.Values) ([]byte, error)
}

// Notifier delivers a finished digest.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Config holds the digest settings.
type Config struct {
	Category         string
	Keywords         []string
	MaxResults       int
	AbstractMaxChars int
}

// Service exposes the fetch, star, list and search operations.
type Service struct {
	cfg      Config
	fetcher  Fetcher
	stars    *database.StarStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewService wires the pipeline. notifier may be nil, in which case only dry
// fetches succeed.
func NewService(cfg Config, fetcher Fetcher, stars *database.StarStore, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		fetcher:  fetcher,
		stars:    stars,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchDigest searches the configured category over the last sinceHours
// hours, filters by keyword and formats the digest. Unless dryRun is set the
// digest is delivered; a missing notifier then yields ErrConfiguration along
// with the formatted result.
func (s *Service) FetchDigest(ctx context.Context, sinceHours int, dryRun bool) (*DigestResult, error) {
	to := s.now().UTC()
	from := to.Add(-time.Duration(sinceHours) * time.Hour)
	query := BuildRangeQuery(s.cfg.Category, from, to)

	s.logger.Info("fetching papers",
		zap.String("category", s.cfg.Category),
		zap.Int("since_hours", sinceHours),
		zap.String("query", query))

	body, err := s.fetcher.Fetch(ctx, RangeParams(query, s.cfg.MaxResults))
	if err != nil {
		return nil, fmt.Errorf("error fetching papers: %w", err)
	}
	papers, err := Parse(body)
	if err != nil {
		return nil, err
	}
	papers = s.dropAPIErrors(papers)

	matches := NewKeywordFilter(s.cfg.Keywords).Filter(papers)
	s.logger.Info("filtered papers", zap.Int("fetched", len(papers)), zap.Int("matched", len(matches)))

	digest := Digest{
		Category:         s.cfg.Category,
		Keywords:         s.cfg.Keywords,
		WindowHours:      sinceHours,
		AbstractMaxChars: s.cfg.AbstractMaxChars,
	}
	result := &DigestResult{
		Query:   query,
		Fetched: len(papers),
		Matches: matches,
		Text:    digest.Format(matches),
	}

	if dryRun {
		return result, nil
	}
	if s.notifier == nil {
		return result, fmt.Errorf("%w: no webhook URL set (SLACK_WEBHOOK_URL)", ErrConfiguration)
	}
	if err := s.notifier.Notify(ctx, result.Text); err != nil {
		return result, fmt.Errorf("error delivering digest: %w", err)
	}
	result.Delivered = true
	return result, nil
}

func (s *Service) dropAPIErrors(papers []Paper) []Paper {
	kept := papers[:0:0]
	for _, p := range papers {
		if isAPIError(p) {
			s.logger.Warn("arXiv rejected query", zap.String("message", p.Summary))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Star looks id up and saves it to the star store, replacing any earlier
// copy. ErrNotFound is returned, and the store left untouched, when the
// lookup yields no paper.
func (s *Service) Star(ctx context.Context, id string) (database.Star, error) {
	body, err := s.fetcher.Fetch(ctx, IDParams(id))
	if err != nil {
		return database.Star{}, fmt.Errorf("error looking up %s: %w", id, err)
	}
	papers, err := Parse(body)
	if err != nil {
		return database.Star{}, err
	}
	papers = s.dropAPIErrors(papers)
	if len(papers) == 0 || papers[0].ID == "" {
		return database.Star{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	p := papers[0]
	star, err := s.stars.Upsert(ctx, database.Star{
		ID:       p.ID,
		Title:    p.Title,
		URL:      p.URL,
		Abstract: p.Summary,
	})
	if err != nil {
		return database.Star{}, err
	}
	s.logger.Info("starred paper", zap.String("id", star.ID))
	return star, nil
}

func (s *Service) ListStars(ctx context.Context) ([]database.Star, error) {
	return s.stars.List(ctx)
}

func (s *Service) SearchStars(ctx context.Context, query string) ([]database.Star, error) {
	return s.stars.Search(ctx, query)
}

// Start runs FetchDigest on schedule, a standard five-field cron
// expression. A run that is still going when the next one is due causes
// that next run to be skipped.
func (s *Service) Start(schedule string, sinceHours int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	logger := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		cron.WithLogger(logger),
	)
	if _, err := c.AddFunc(schedule, func() { s.runScheduled(sinceHours) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	s.logger.Info("starting digest scheduler", zap.String("schedule", schedule))
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the scheduler and waits for a running digest to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("digest scheduler stopped")
}

func (s *Service) runScheduled(sinceHours int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.FetchDigest(ctx, sinceHours, false)
	if err != nil {
		s.logger.Error("scheduled digest failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled digest sent", zap.Int("matches", len(result.Matches)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
