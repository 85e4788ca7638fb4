package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

func record(url, name string, extractedAt time.Time) extraction.CompanyRecord {
	return extraction.CompanyRecord{
		URL:         url,
		Name:        name,
		ExtractedAt: extractedAt,
		Status:      extraction.StatusCompleted,
	}
}

func TestStoreUpsertsByURL(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	id1, err := s.Store(ctx, record("https://acme.com", "Acme", now))
	require.NoError(t, err)

	id2, err := s.Store(ctx, record("https://acme.com", "Acme Updated", now))
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	rec, err := s.Get(ctx, "https://acme.com")
	require.NoError(t, err)
	require.Equal(t, "Acme Updated", rec.Name)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Get(context.Background(), "https://missing.com")
	require.ErrorIs(t, err, extraction.ErrNotFound)
}

func TestUpdateStatusCreatesStub(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpdateStatus(ctx, "https://failed.com", extraction.StatusFailed))
	rec, err := s.Get(ctx, "https://failed.com")
	require.NoError(t, err)
	require.Equal(t, extraction.StatusFailed, rec.Status)
	require.Empty(t, rec.Name)

	// Updating an existing record only touches the status.
	_, err = s.Store(ctx, record("https://acme.com", "Acme", time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, "https://acme.com", extraction.StatusInProgress))
	rec, err = s.Get(ctx, "https://acme.com")
	require.NoError(t, err)
	require.Equal(t, "Acme", rec.Name)
	require.Equal(t, extraction.StatusInProgress, rec.Status)
}

func TestGetRecentOrdersByExtractionTime(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, url := range []string{"https://a.com", "https://b.com", "https://c.com"} {
		_, err := s.Store(ctx, record(url, url, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	recent, err := s.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "https://c.com", recent[0].URL)
	require.Equal(t, "https://b.com", recent[1].URL)
}

func TestSearchFilters(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	acme := record("https://acme.com", "Acme Foods", now)
	acme.Type = "Food & Beverage"
	acme.Emails = []string{"info@acme.com"}
	acme.Products = []extraction.ProductRecord{{Name: "Tofu"}}
	_, err := s.Store(ctx, acme)
	require.NoError(t, err)

	other := record("https://widgets.com", "Widget Co", now)
	other.Type = "Manufacturing"
	_, err = s.Store(ctx, other)
	require.NoError(t, err)

	byName, err := s.Search(ctx, extraction.StoreQuery{Name: "acme"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "Acme Foods", byName[0].Name)

	byType, err := s.Search(ctx, extraction.StoreQuery{Type: "manufacturing"})
	require.NoError(t, err)
	require.Len(t, byType, 1)

	withEmail, err := s.Search(ctx, extraction.StoreQuery{HasEmail: true})
	require.NoError(t, err)
	require.Len(t, withEmail, 1)

	withProducts, err := s.Search(ctx, extraction.StoreQuery{HasProducts: true})
	require.NoError(t, err)
	require.Len(t, withProducts, 1)

	none, err := s.Search(ctx, extraction.StoreQuery{Name: "nomatch"})
	require.NoError(t, err)
	require.Empty(t, none)
}
