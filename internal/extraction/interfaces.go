package extraction

import (
	"context"
	"time"
)

// StateRegistry tracks per-extraction progress and the pause/stop flags.
// Implementations must be safe for concurrent use by many runs.
type StateRegistry interface {
	Create(extractionID, url string)
	UpdateProgress(extractionID string, progress int, stage string)
	Pause(extractionID string)
	Resume(extractionID string)
	Stop(extractionID string)
	IsPaused(extractionID string) bool
	IsStopped(extractionID string) bool
	Get(extractionID string) (StateSnapshot, bool)
	Remove(extractionID string)
}

// Fetcher retrieves page content with retry and cooperative pause/stop.
type Fetcher interface {
	Fetch(ctx context.Context, url, extractionID string) (string, error)
}

// CompanyStore persists completed records.
// Store failures must never abort an extraction.
type CompanyStore interface {
	Store(ctx context.Context, record CompanyRecord) (int64, error)
	UpdateStatus(ctx context.Context, url string, status RecordStatus) error
	Get(ctx context.Context, url string) (CompanyRecord, error)
	GetRecent(ctx context.Context, limit int) ([]CompanyRecord, error)
	Search(ctx context.Context, query StoreQuery) ([]CompanyRecord, error)
}

// StoreQuery filters company lookups.
type StoreQuery struct {
	Name        string
	Type        string
	Status      RecordStatus
	HasEmail    bool
	HasProducts bool
	Limit       int
}

// ContextClassifier refines a record from its own extracted context
// (classification service A). Best-effort; may be unconfigured.
type ContextClassifier interface {
	Enabled() bool
	Classify(ctx context.Context, input ClassifyInput) (ClassifyResult, error)
}

// EntityLookup resolves a company name to type/description
// (classification service B). Best-effort; may be unconfigured.
type EntityLookup interface {
	Enabled() bool
	Lookup(ctx context.Context, name string) (EntityResult, error)
}

// ClassifyInput summarizes the record for the context classifier.
type ClassifyInput struct {
	Name         string
	Description  string
	Type         string
	ProductNames []string
}

// ClassifyResult is what the context classifier returns.
type ClassifyResult struct {
	RefinedType     string
	ProductCategory string
	TargetMarket    string
}

// EntityResult is what the entity lookup returns.
type EntityResult struct {
	Type        string
	Description string
}

// OperationLogger is the structured log sink consumed throughout the
// pipeline. Implementations must never fail the caller.
type OperationLogger interface {
	LogOperation(url, extractionID, stage, status, detail string, duration time.Duration)
	LogError(url, extractionID, kind, message, trace string)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces extraction IDs.
type IDGenerator interface {
	NewID() (string, error)
}
