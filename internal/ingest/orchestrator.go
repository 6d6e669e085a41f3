// Package ingest runs the ingestion pipeline: collect references, extract details, persist articles.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/extractor"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/metrics"
)

const (
	DefaultTargetCount   = 20
	DefaultDetailWorkers = 1

	recordTimeout = 10 * time.Second
)

// ReferenceSource discovers article references.
type ReferenceSource interface {
	Fetch(ctx context.Context, targetCount int) []domain.ArticleReference
}

// DetailSource extracts one article's details.
type DetailSource interface {
	Extract(ctx context.Context, ref domain.ArticleReference) (*domain.RawArticleDetails, error)
}

// ArticleStore upserts articles by id.
type ArticleStore interface {
	Upsert(ctx context.Context, article *domain.Article) (created bool, err error)
}

// RunRecorder persists run reports.
type RunRecorder interface {
	Create(ctx context.Context, report *domain.RunReport) error
}

// RunLocker keeps runs from overlapping.
type RunLocker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockRefresher is implemented by lockers whose hold expires. The orchestrator calls
// Refresh every RefreshInterval while a run holds the lock.
type LockRefresher interface {
	Refresh(ctx context.Context) error
	RefreshInterval() time.Duration
}

// Observer receives per-item and per-run outcomes.
type Observer interface {
	ObserveDetail(outcome string)
	ObservePersist(result string)
	ObserveRun(report *domain.RunReport)
}

// Config configures an Orchestrator.
type Config struct {
	TargetCount int
	// DetailWorkers bounds concurrent detail extractions. 1 keeps the run strictly sequential.
	DetailWorkers int
}

// Orchestrator sequences the listing fetcher, the detail extractor and the article store.
type Orchestrator struct {
	refs     ReferenceSource
	details  DetailSource
	store    ArticleStore
	cfg      Config
	log      logger.Logger
	recorder RunRecorder
	locker   RunLocker
	observer Observer
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder persists every run report.
func WithRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLocker skips a run when another one holds the lock.
func WithLocker(l RunLocker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithObserver attaches metrics.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(refs ReferenceSource, details DetailSource, store ArticleStore, cfg Config, log logger.Logger, opts ...Option) *Orchestrator {
	if cfg.TargetCount <= 0 {
		cfg.TargetCount = DefaultTargetCount
	}
	if cfg.DetailWorkers <= 0 {
		cfg.DetailWorkers = DefaultDetailWorkers
	}

	o := &Orchestrator{
		refs:    refs,
		details: details,
		store:   store,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one ingestion run. Empty runs and per-article failures are not errors;
// an error is returned only for a lock backend failure or a cancelled context.
// When another run holds the lock the report comes back with Skipped set.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:            uuid.NewString(),
		StartedAt:     o.now().UTC(),
		TerminalState: domain.StateCollecting,
	}
	log := o.log.With(logger.String("run_id", report.ID))

	if o.locker != nil {
		acquired, err := o.locker.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire ingestion lock: %w", err)
		}
		if !acquired {
			report.Skipped = true
			log.Info("Ingestion already running, skipping")
			o.finish(ctx, log, report)
			return report, nil
		}
		defer func() {
			if unlockErr := o.locker.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
				log.Warn("Failed to release ingestion lock", logger.Error(unlockErr))
			}
		}()
		if refresher, ok := o.locker.(LockRefresher); ok {
			stop := keepLock(ctx, log, refresher)
			defer stop()
		}
	}

	log.Info("Ingestion started",
		logger.Int("target_count", o.cfg.TargetCount),
		logger.Int("detail_workers", o.cfg.DetailWorkers),
	)

	runErr := o.run(ctx, log, report)
	o.finish(ctx, log, report)

	return report, runErr
}

// keepLock refreshes the lock in the background until stop is called.
func keepLock(ctx context.Context, log logger.Logger, refresher LockRefresher) (stop func()) {
	interval := refresher.RefreshInterval()
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresher.Refresh(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Failed to refresh ingestion lock", logger.Error(err))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (o *Orchestrator) run(ctx context.Context, log logger.Logger, report *domain.RunReport) error {
	refs := dedupe(o.refs.Fetch(ctx, o.cfg.TargetCount))
	report.ReferencesFound = len(refs)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collecting references: %w", err)
	}
	if len(refs) == 0 {
		log.Info("No article references found")
		return nil
	}

	report.TerminalState = domain.StateExtracting
	articles := o.extractAll(ctx, log, refs)
	report.DetailsExtracted = len(articles)
	report.DetailsFailed = len(refs) - len(articles)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extracting details: %w", err)
	}
	if len(articles) == 0 {
		log.Info("No valid article details extracted", logger.Int("references", len(refs)))
		return nil
	}

	report.TerminalState = domain.StatePersisting
	if err := o.persistAll(ctx, log, articles, report); err != nil {
		return err
	}

	report.TerminalState = domain.StateDone
	return nil
}

// extractAll runs the detail extractor over refs on a bounded pool and returns the
// complete articles in reference order.
func (o *Orchestrator) extractAll(ctx context.Context, log logger.Logger, refs []domain.ArticleReference) []*domain.Article {
	results := make([]*domain.Article, len(refs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(o.cfg.DetailWorkers, len(refs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.extractOne(ctx, log, refs[i])
			}
		}()
	}

dispatch:
	for i := range refs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	articles := make([]*domain.Article, 0, len(refs))
	for _, a := range results {
		if a != nil {
			articles = append(articles, a)
		}
	}
	return articles
}

func (o *Orchestrator) extractOne(ctx context.Context, log logger.Logger, ref domain.ArticleReference) *domain.Article {
	details, err := o.details.Extract(ctx, ref)
	if err != nil {
		outcome := metrics.DetailFetchFailed
		if errors.Is(err, extractor.ErrMissingElement) {
			outcome = metrics.DetailIncomplete
		}
		o.observeDetail(outcome)
		log.Warn("Dropping article",
			logger.String("article_id", ref.ID),
			logger.String("url", ref.URL),
			logger.String("reason", outcome),
			logger.Error(err),
		)
		return nil
	}

	article, ok := details.Article()
	if !ok {
		o.observeDetail(metrics.DetailIncomplete)
		log.Warn("Dropping incomplete article",
			logger.String("article_id", ref.ID),
			logger.Strings("missing", details.Missing()),
		)
		return nil
	}
	article.ID = ref.ID
	if article.URL == "" {
		article.URL = ref.URL
	}

	o.observeDetail(metrics.DetailExtracted)
	return article
}

// persistAll writes articles one at a time. A failed write is counted and skipped.
func (o *Orchestrator) persistAll(ctx context.Context, log logger.Logger, articles []*domain.Article, report *domain.RunReport) error {
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("persisting articles: %w", err)
		}

		created, err := o.store.Upsert(ctx, article)
		switch {
		case err != nil:
			report.PersistFailed++
			o.observePersist(metrics.PersistFailed)
			log.Error("Failed to persist article",
				logger.String("article_id", article.ID),
				logger.String("url", article.URL),
				logger.Error(err),
			)
		case created:
			report.Created++
			o.observePersist(metrics.PersistCreated)
		default:
			report.Updated++
			o.observePersist(metrics.PersistUpdated)
		}
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, log logger.Logger, report *domain.RunReport) {
	report.FinishedAt = o.now().UTC()

	if o.observer != nil {
		o.observer.ObserveRun(report)
	}

	if o.recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := o.recorder.Create(recordCtx, report); err != nil {
			log.Error("Failed to record ingestion run", logger.Error(err))
		}
	}

	log.Info("Ingestion finished",
		logger.String("terminal_state", string(report.TerminalState)),
		logger.Bool("skipped", report.Skipped),
		logger.Int("references_found", report.ReferencesFound),
		logger.Int("details_extracted", report.DetailsExtracted),
		logger.Int("details_failed", report.DetailsFailed),
		logger.Int("created", report.Created),
		logger.Int("updated", report.Updated),
		logger.Int("persist_failed", report.PersistFailed),
		logger.Duration("duration", report.Duration()),
	)
}

func (o *Orchestrator) observeDetail(outcome string) {
	if o.observer != nil {
		o.observer.ObserveDetail(outcome)
	}
}

func (o *Orchestrator) observePersist(result string) {
	if o.observer != nil {
		o.observer.ObservePersist(result)
	}
}

// dedupe keeps the first reference for each id.
func dedupe(refs []domain.ArticleReference) []domain.ArticleReference {
	seen := make(map[string]struct{}, len(refs))
	out := make([]domain.ArticleReference, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref)
	}
	return out
}
