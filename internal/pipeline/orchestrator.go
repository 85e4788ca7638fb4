// Package pipeline drives the extraction flow for single URLs and batches:
// validate, fetch, run the heuristic stages, enrich, and persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/crawl"
	"github.com/strykerlabs/webstryker/internal/enrich"
	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/fetch"
	"github.com/strykerlabs/webstryker/internal/metrics"
	"github.com/strykerlabs/webstryker/internal/stages"
	"github.com/strykerlabs/webstryker/internal/state"
)

// Orchestrator runs the full pipeline for one URL.
type Orchestrator struct {
	states   extraction.StateRegistry
	fetcher  extraction.Fetcher
	company  *stages.CompanyStage
	contact  *stages.ContactStage
	crawler  *crawl.Crawler
	enricher *enrich.Enricher
	store    extraction.CompanyStore
	counters *state.Counters
	oplog    extraction.OperationLogger
	clock    extraction.Clock
	ids      extraction.IDGenerator
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	states extraction.StateRegistry,
	fetcher extraction.Fetcher,
	company *stages.CompanyStage,
	contact *stages.ContactStage,
	crawler *crawl.Crawler,
	enricher *enrich.Enricher,
	store extraction.CompanyStore,
	counters *state.Counters,
	oplog extraction.OperationLogger,
	clock extraction.Clock,
	ids extraction.IDGenerator,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		states:   states,
		fetcher:  fetcher,
		company:  company,
		contact:  contact,
		crawler:  crawler,
		enricher: enricher,
		store:    store,
		counters: counters,
		oplog:    oplog,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Extract generates an extraction ID and runs the pipeline for rawURL.
func (o *Orchestrator) Extract(ctx context.Context, rawURL string) (string, extraction.Result) {
	id, err := o.ids.NewID()
	if err != nil {
		id = fmt.Sprintf("ext-%d", o.clock.Now().UnixNano())
	}
	return id, o.Run(ctx, rawURL, id)
}

// Run executes the pipeline for rawURL under the given extraction ID. A
// failure of any kind yields a Result with Success false; stage errors short
// of fetch failure degrade the record instead of failing the run.
func (o *Orchestrator) Run(ctx context.Context, rawURL, extractionID string) extraction.Result {
	started := o.clock.Now()
	result := o.run(ctx, rawURL, extractionID)
	result.DurationMs = o.clock.Now().Sub(started).Milliseconds()

	o.counters.IncProcessed()
	if result.Success {
		o.counters.IncSuccess()
	} else {
		o.counters.IncFail()
	}
	metrics.ObserveExtraction(time.Duration(result.DurationMs)*time.Millisecond, result.Success)

	status := "success"
	if !result.Success {
		status = "failed"
	}
	o.oplog.LogOperation(rawURL, extractionID, "Pipeline", status, "", time.Duration(result.DurationMs)*time.Millisecond)
	return result
}

func (o *Orchestrator) run(ctx context.Context, rawURL, extractionID string) (result extraction.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &extraction.ProcessingError{URL: rawURL, Err: fmt.Errorf("panic: %v", r)}
			o.oplog.LogError(rawURL, extractionID, "ProcessingError", err.Error(), "")
			o.failRecord(ctx, rawURL)
			result = extraction.Result{Success: false, Err: err}
		}
	}()

	url := extraction.EnsureScheme(rawURL)
	if err := extraction.ValidateURL(url); err != nil {
		o.oplog.LogError(rawURL, extractionID, "ValidationError", err.Error(), "")
		return extraction.Result{Success: false, Err: err}
	}

	o.states.Create(extractionID, url)
	o.states.UpdateProgress(extractionID, 5, "Validated")

	if err := o.checkStop(extractionID); err != nil {
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 10, "Fetching content")
	content, err := o.fetcher.Fetch(ctx, url, extractionID)
	if err != nil {
		o.failRecord(ctx, url)
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 15, "Content retrieved")

	rec := extraction.CompanyRecord{
		URL:         url,
		ExtractedAt: o.clock.Now(),
		Status:      extraction.StatusInProgress,
	}

	if err := o.checkStop(extractionID); err != nil {
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 25, "Extracting company info")
	o.company.Extract(content, url, &rec)

	if err := o.checkStop(extractionID); err != nil {
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 40, "Extracting contact info")
	o.contact.Extract(ctx, content, url, &rec)

	if err := o.checkStop(extractionID); err != nil {
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 60, "Extracting products")
	rec.Products = o.crawler.Crawl(ctx, content, url, extractionID)

	if err := o.checkStop(extractionID); err != nil {
		return extraction.Result{Success: false, Err: err}
	}
	o.states.UpdateProgress(extractionID, 80, "Enriching")
	o.enricher.Enrich(ctx, &rec)

	o.observe(rec)

	rec.Status = extraction.StatusCompleted
	if _, err := o.store.Store(ctx, rec); err != nil {
		// Persistence is best-effort; the extraction itself succeeded.
		o.oplog.LogError(url, extractionID, "StoreError",
			fmt.Sprintf("error storing record: %v", err), "")
		o.logger.Warn("store failed", zap.String("url", url), zap.Error(err))
	}

	o.states.UpdateProgress(extractionID, 100, "Completed")
	return extraction.Result{Success: true, Record: &rec}
}

func (o *Orchestrator) checkStop(extractionID string) error {
	if o.states.IsStopped(extractionID) {
		return extraction.ErrStopped
	}
	return nil
}

// failRecord marks any existing record for the URL as failed. Errors are
// logged and swallowed.
func (o *Orchestrator) failRecord(ctx context.Context, url string) {
	if err := o.store.UpdateStatus(ctx, url, extraction.StatusFailed); err != nil && !fetch.IsCancelled(err) {
		o.logger.Debug("status update failed", zap.String("url", url), zap.Error(err))
	}
}

// observe feeds the extraction tallies from the finished record.
func (o *Orchestrator) observe(rec extraction.CompanyRecord) {
	o.counters.ObserveCompany(
		rec.Name != "",
		rec.Description != "",
		rec.Type != "",
		len(rec.Emails), len(rec.Phones), len(rec.Addresses),
	)
	categories := make(map[string]struct{})
	for _, p := range rec.Products {
		o.counters.ObserveProduct(len(p.Images), p.Description != "")
		for _, cat := range []string{p.MainCategory, p.SubCategory, p.ProductFamily} {
			if cat != "" {
				categories[cat] = struct{}{}
			}
		}
	}
	o.counters.AddCategories(len(categories))
}
