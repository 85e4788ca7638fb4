// Package enrich applies the optional classification services to a
// completed record. Enrichment is best-effort: a failed or disabled service
// leaves the record as extracted.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/state"
)

// Generic types the context classifier is allowed to overwrite. The entity
// lookup only replaces "Other".
var contextReplaceableTypes = map[string]struct{}{
	"":           {},
	"Other":      {},
	"Technology": {},
}

var entityReplaceableTypes = map[string]struct{}{
	"":      {},
	"Other": {},
}

// Enricher runs both classification services against a record.
type Enricher struct {
	classifier extraction.ContextClassifier
	lookup     extraction.EntityLookup
	counters   *state.Counters
	logger     *zap.Logger
}

// New constructs an Enricher. counters may be nil.
func New(
	classifier extraction.ContextClassifier,
	lookup extraction.EntityLookup,
	counters *state.Counters,
	logger *zap.Logger,
) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		classifier: classifier,
		lookup:     lookup,
		counters:   counters,
		logger:     logger,
	}
}

// Enrich mutates rec in place. The context classifier may replace a generic
// company type and fill empty product categories; the entity lookup may
// replace an Other/empty type and a shorter description.
func (e *Enricher) Enrich(ctx context.Context, rec *extraction.CompanyRecord) {
	e.applyContext(ctx, rec)
	e.applyEntity(ctx, rec)
}

func (e *Enricher) applyContext(ctx context.Context, rec *extraction.CompanyRecord) {
	if e.classifier == nil || !e.classifier.Enabled() {
		return
	}
	input := extraction.ClassifyInput{
		Name:        rec.Name,
		Description: rec.Description,
		Type:        rec.Type,
	}
	for _, p := range rec.Products {
		input.ProductNames = append(input.ProductNames, p.Name)
	}

	result, err := e.classifier.Classify(ctx, input)
	e.observeContext(err == nil)
	if err != nil {
		e.logger.Warn("context classification failed",
			zap.String("url", rec.URL), zap.Error(err))
		return
	}

	if result.RefinedType != "" {
		if _, replaceable := contextReplaceableTypes[rec.Type]; replaceable {
			rec.Type = result.RefinedType
		}
	}
	if result.ProductCategory != "" {
		for i := range rec.Products {
			if rec.Products[i].MainCategory == "" {
				rec.Products[i].MainCategory = result.ProductCategory
			}
		}
	}
	if result.TargetMarket != "" {
		e.logger.Debug("target market classified",
			zap.String("url", rec.URL), zap.String("target_market", result.TargetMarket))
	}
}

func (e *Enricher) applyEntity(ctx context.Context, rec *extraction.CompanyRecord) {
	if e.lookup == nil || !e.lookup.Enabled() || rec.Name == "" {
		return
	}
	result, err := e.lookup.Lookup(ctx, rec.Name)
	e.observeEntity(err == nil)
	if err != nil {
		e.logger.Warn("entity lookup failed",
			zap.String("url", rec.URL), zap.String("name", rec.Name), zap.Error(err))
		return
	}

	if result.Type != "" {
		if _, replaceable := entityReplaceableTypes[rec.Type]; replaceable {
			rec.Type = result.Type
		}
	}
	if len(result.Description) > len(rec.Description) {
		rec.Description = result.Description
	}
}

func (e *Enricher) observeContext(ok bool) {
	if e.counters != nil {
		e.counters.ObserveContextCall(ok)
	}
}

func (e *Enricher) observeEntity(ok bool) {
	if e.counters != nil {
		e.counters.ObserveEntityCall(ok)
	}
}
