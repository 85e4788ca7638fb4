package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/crawl"
	"github.com/strykerlabs/webstryker/internal/enrich"
	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/stages"
	"github.com/strykerlabs/webstryker/internal/state"
	"github.com/strykerlabs/webstryker/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(50 * time.Millisecond)
	return c.now
}

type fakeIDs struct {
	mu   sync.Mutex
	next int
}

func (g *fakeIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "id-" + string(rune('0'+g.next)), nil
}

type fakeOpLog struct {
	mu         sync.Mutex
	errorKinds []string
}

func (l *fakeOpLog) LogOperation(_, _, _, _, _ string, _ time.Duration) {}
func (l *fakeOpLog) LogError(_, _, kind, _, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorKinds = append(l.errorKinds, kind)
}

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	active  int
	maxSeen int
}

func (f *fakeFetcher) Fetch(_ context.Context, url, _ string) (string, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.active--
	err := f.errs[url]
	page := f.pages[url]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return page, nil
}

type fixture struct {
	orchestrator *Orchestrator
	states       *state.Registry
	counters     *state.Counters
	store        *memory.Store
	fetcher      *fakeFetcher
	oplog        *fakeOpLog
}

func newFixture(fetcher *fakeFetcher) *fixture {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	states := state.NewRegistry(clk)
	counters := state.NewCounters()
	store := memory.New()
	oplog := &fakeOpLog{}

	company := stages.NewCompanyStage(oplog, nil)
	contact := stages.NewContactStage(nil, oplog, nil)
	discovery := stages.NewDiscoveryStage(oplog, nil)
	detail := stages.NewDetailStage(oplog, nil)
	crawler := crawl.New(fetcher, nil, discovery, detail, states, oplog, crawl.Config{Delay: time.Nanosecond}, nil)
	enricher := enrich.New(nil, nil, counters, nil)

	orchestrator := New(states, fetcher, company, contact, crawler, enricher,
		store, counters, oplog, clk, &fakeIDs{}, nil)
	return &fixture{
		orchestrator: orchestrator,
		states:       states,
		counters:     counters,
		store:        store,
		fetcher:      fetcher,
		oplog:        oplog,
	}
}

const companyPage = `<html><head>
<title>Acme Foods - Home</title>
<meta name="description" content="Acme Foods makes fresh tofu and plant-based products daily.">
</head><body>
Reach us: info@acmefoods.com or (555) 123-4567.
<div class="products"><a href="/product/tofu">Classic Tofu</a></div>
</body></html>`

const tofuPage = `<html><body><h1>Classic Tofu</h1><span class="price">$3.49</span></body></html>`

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeFetcher{pages: map[string]string{
		"https://acmefoods.com":             companyPage,
		"https://acmefoods.com/product/tofu": tofuPage,
	}})

	result := f.orchestrator.Run(context.Background(), "acmefoods.com", "ext-1")
	require.True(t, result.Success)
	require.NotNil(t, result.Record)
	require.Equal(t, "Acme Foods", result.Record.Name)
	require.Equal(t, []string{"info@acmefoods.com"}, result.Record.Emails)
	require.Len(t, result.Record.Products, 1)
	require.Equal(t, "Classic Tofu", result.Record.Products[0].Name)
	require.Equal(t, extraction.StatusCompleted, result.Record.Status)
	require.Positive(t, result.DurationMs)

	snap, ok := f.states.Get("ext-1")
	require.True(t, ok)
	require.Equal(t, 100, snap.Progress)
	require.Equal(t, "Completed", snap.Stage)

	stored, err := f.store.Get(context.Background(), "https://acmefoods.com")
	require.NoError(t, err)
	require.Equal(t, "Acme Foods", stored.Name)

	counters := f.counters.Snapshot()
	require.Equal(t, int64(1), counters.Processed)
	require.Equal(t, int64(1), counters.Success)
	require.Equal(t, int64(1), counters.CompanyData["found"])
	require.Equal(t, int64(1), counters.ProductData["found"])
}

func TestRunRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeFetcher{})
	result := f.orchestrator.Run(context.Background(), "not a url", "ext-1")
	require.False(t, result.Success)
	var ve *extraction.ValidationError
	require.ErrorAs(t, result.Err, &ve)

	// Validation failures never create run state.
	_, ok := f.states.Get("ext-1")
	require.False(t, ok)

	counters := f.counters.Snapshot()
	require.Equal(t, int64(1), counters.Fail)
}

func TestRunFetchFailureMarksRecordFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeFetcher{errs: map[string]error{
		"https://acmefoods.com": &extraction.FetchError{URL: "https://acmefoods.com", Attempts: 3},
	}})

	result := f.orchestrator.Run(context.Background(), "acmefoods.com", "ext-1")
	require.False(t, result.Success)
	var fe *extraction.FetchError
	require.ErrorAs(t, result.Err, &fe)

	stored, err := f.store.Get(context.Background(), "https://acmefoods.com")
	require.NoError(t, err)
	require.Equal(t, extraction.StatusFailed, stored.Status)
}

func TestRunStoppedBeforeStagesReturnsStopped(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{"https://acmefoods.com": companyPage}}
	f := newFixture(fetcher)

	// Stop as soon as the run registers itself.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, ok := f.states.Get("ext-1"); ok {
				f.states.Stop("ext-1")
				return
			}
			time.Sleep(time.Microsecond)
		}
	}()

	result := f.orchestrator.Run(context.Background(), "acmefoods.com", "ext-1")
	<-done
	// The stop may land at any checkpoint; the run must finish cleanly
	// either way and leave its state behind.
	if !result.Success {
		require.ErrorIs(t, result.Err, extraction.ErrStopped)
	}
	snap, ok := f.states.Get("ext-1")
	require.True(t, ok)
	require.True(t, snap.Stopped)
}

func TestExtractGeneratesID(t *testing.T) {
	t.Parallel()

	f := newFixture(&fakeFetcher{pages: map[string]string{"https://acmefoods.com": companyPage}})
	id, result := f.orchestrator.Extract(context.Background(), "acmefoods.com")
	require.NotEmpty(t, id)
	require.True(t, result.Success)
}
