package state

import "sync/atomic"

// Counters is the process-wide tally of extraction outcomes. All fields are
// updated atomically; the struct is shared by every concurrent run.
type Counters struct {
	processed atomic.Int64
	remaining atomic.Int64
	success   atomic.Int64
	fail      atomic.Int64

	contextCallSuccess atomic.Int64
	contextCallFail    atomic.Int64
	entityCallSuccess  atomic.Int64
	entityCallFail     atomic.Int64

	companiesFound      atomic.Int64
	emailsFound         atomic.Int64
	phonesFound         atomic.Int64
	addressesFound      atomic.Int64
	descriptionsFound   atomic.Int64
	companyTypesFound   atomic.Int64
	productsFound       atomic.Int64
	productImages       atomic.Int64
	productDescriptions atomic.Int64
	categoriesFound     atomic.Int64
}

// NewCounters constructs a zeroed Counters.
func NewCounters() *Counters {
	return &Counters{}
}

// IncProcessed records one finished URL, successful or not.
func (c *Counters) IncProcessed() { c.processed.Add(1) }

// IncSuccess records one successful extraction.
func (c *Counters) IncSuccess() { c.success.Add(1) }

// IncFail records one failed extraction.
func (c *Counters) IncFail() { c.fail.Add(1) }

// AddRemaining adjusts the remaining gauge; batches add the URL count up
// front and subtract one per completion.
func (c *Counters) AddRemaining(n int64) { c.remaining.Add(n) }

// ObserveContextCall tallies one context-classifier call.
func (c *Counters) ObserveContextCall(ok bool) {
	if ok {
		c.contextCallSuccess.Add(1)
		return
	}
	c.contextCallFail.Add(1)
}

// ObserveEntityCall tallies one entity-lookup call.
func (c *Counters) ObserveEntityCall(ok bool) {
	if ok {
		c.entityCallSuccess.Add(1)
		return
	}
	c.entityCallFail.Add(1)
}

// ObserveCompany tallies per-field extraction results for one record.
func (c *Counters) ObserveCompany(name, description, companyType bool, emails, phones, addresses int) {
	if name {
		c.companiesFound.Add(1)
	}
	if description {
		c.descriptionsFound.Add(1)
	}
	if companyType {
		c.companyTypesFound.Add(1)
	}
	c.emailsFound.Add(int64(emails))
	c.phonesFound.Add(int64(phones))
	c.addressesFound.Add(int64(addresses))
}

// ObserveProduct tallies one extracted product.
func (c *Counters) ObserveProduct(images int, hasDescription bool) {
	c.productsFound.Add(1)
	c.productImages.Add(int64(images))
	if hasDescription {
		c.productDescriptions.Add(1)
	}
}

// AddCategories tallies breadcrumb categories found on one page.
func (c *Counters) AddCategories(n int) { c.categoriesFound.Add(int64(n)) }

// APICallStats reports success/fail totals for one external service.
type APICallStats struct {
	Success int64 `json:"success"`
	Fail    int64 `json:"fail"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Processed int64 `json:"processed"`
	Remaining int64 `json:"remaining"`
	Success   int64 `json:"success"`
	Fail      int64 `json:"fail"`

	APICalls map[string]APICallStats `json:"api_calls"`

	CompanyData map[string]int64 `json:"company_data"`
	ProductData map[string]int64 `json:"product_data"`
}

// Snapshot copies all counters for reporting.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Processed: c.processed.Load(),
		Remaining: c.remaining.Load(),
		Success:   c.success.Load(),
		Fail:      c.fail.Load(),
		APICalls: map[string]APICallStats{
			"context_classifier": {Success: c.contextCallSuccess.Load(), Fail: c.contextCallFail.Load()},
			"entity_lookup":      {Success: c.entityCallSuccess.Load(), Fail: c.entityCallFail.Load()},
		},
		CompanyData: map[string]int64{
			"found":        c.companiesFound.Load(),
			"emails":       c.emailsFound.Load(),
			"phones":       c.phonesFound.Load(),
			"addresses":    c.addressesFound.Load(),
			"descriptions": c.descriptionsFound.Load(),
			"types":        c.companyTypesFound.Load(),
		},
		ProductData: map[string]int64{
			"found":        c.productsFound.Load(),
			"images":       c.productImages.Load(),
			"descriptions": c.productDescriptions.Load(),
			"categories":   c.categoriesFound.Load(),
		},
	}
}
