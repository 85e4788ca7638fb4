// Package extraction defines core types shared across subsystems.
package extraction

import (
	"strings"
	"time"
)

// RecordStatus represents the lifecycle state of a stored company record.
type RecordStatus string

// Record status values persisted in the company store.
const (
	StatusInProgress RecordStatus = "in_progress"
	StatusCompleted  RecordStatus = "completed"
	StatusFailed     RecordStatus = "failed"
)

// ProductRecord is the structured product data extracted from one page.
type ProductRecord struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	MainCategory   string   `json:"main_category"`
	SubCategory    string   `json:"sub_category"`
	ProductFamily  string   `json:"product_family"`
	Price          string   `json:"price"`
	Quantity       string   `json:"quantity"`
	Description    string   `json:"description"`
	Specifications string   `json:"specifications"`
	Images         []string `json:"images"`
}

// Valid reports whether the product carries enough data to keep.
func (p ProductRecord) Valid() bool {
	return p.Name != "" || p.URL != ""
}

// CompanyRecord is the structured company data built by one extraction run.
// URL is the unique key.
type CompanyRecord struct {
	URL         string          `json:"url"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Emails      []string        `json:"emails"`
	Phones      []string        `json:"phones"`
	Addresses   []string        `json:"addresses"`
	Logo        string          `json:"logo"`
	Products    []ProductRecord `json:"products"`
	ExtractedAt time.Time       `json:"extracted_at"`
	Status      RecordStatus    `json:"status"`
}

// Valid reports whether the record carries the essential fields.
func (c CompanyRecord) Valid() bool {
	return c.Name != "" && c.URL != ""
}

/// Flatten produces the single-row view used by exports: contact sets joined,
// product columns taken from the first product if any.
func (c CompanyRecord) Flatten() map[string]string {
	row := map[string]string{
		"url":          c.URL,
		"name":         c.Name,
		"description":  c.Description,
		"type":         c.Type,
		"emails":       strings.Join(c.Emails, ", "),
		"phones":       strings.Join(c.Phones, ", "),
		"addresses":    strings.Join(c.Addresses, "; "),
		"logo":         c.Logo,
		"extracted_at": c.ExtractedAt.Format(time.RFC3339),
		"status":       string(c.Status),
	}
	if len(c.Products) > 0 {
		p := c.Products[0]
		row["product_name"] = p.Name
		row["product_url"] = p.URL
		row["product_category"] = p.MainCategory
		row["product_subcategory"] = p.SubCategory
		row["product_family"] = p.ProductFamily
		row["price"] = p.Price
		row["quantity"] = p.Quantity
		row["product_description"] = p.Description
		row["specifications"] = p.Specifications
		row["images"] = strings.Join(p.Images, ", ")
	}
	return row
}

// Result is returned for one URL's pipeline run.
type Result struct {
	Success    bool           `json:"success"`
	Record     *CompanyRecord `json:"record,omitempty"`
	Err        error          `json:"-"`
	DurationMs int64          `json:"duration_ms"`
}

// BatchFailure names one URL that failed inside a batch.
type BatchFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchStatus represents the lifecycle state of a batch.
type BatchStatus string

// Batch status values.
const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

// BatchResult aggregates per-URL outcomes for one batch.
type BatchResult struct {
	BatchID    string         `json:"batch_id"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Failures   []BatchFailure `json:"failures"`
	Success    bool           `json:"success"`
	Status     BatchStatus    `json:"status"`
}

// StateSnapshot is a point-in-time copy of one extraction's control state.
type StateSnapshot struct {
	ExtractionID string    `json:"extraction_id"`
	URL          string    `json:"url"`
	StartedAt    time.Time `json:"started_at"`
	Progress     int       `json:"progress"`
	Stage        string    `json:"stage"`
	Paused       bool      `json:"paused"`
	Stopped      bool      `json:"stopped"`
}

// FetchConfig carries the per-fetch knobs the retry loop honors.
type FetchConfig struct {
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string
}
