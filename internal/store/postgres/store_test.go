package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestStoreUpsertsCompanyAndProducts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rec := extraction.CompanyRecord{
		URL:         "https://acme.com",
		Name:        "Acme",
		Description: "Makes things.",
		Type:        "Manufacturing",
		Emails:      []string{"info@acme.com"},
		Logo:        "https://acme.com/logo.png",
		ExtractedAt: now,
		Status:      extraction.StatusCompleted,
		Products: []extraction.ProductRecord{
			{Name: "Widget", URL: "https://acme.com/product/widget", Price: "$9.99", Images: []string{"https://acme.com/w.jpg"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO companies").
		WithArgs(
			rec.URL, rec.Name, rec.Description, rec.Type,
			[]byte(`["info@acme.com"]`), []byte(`[]`), []byte(`[]`),
			rec.Logo, rec.ExtractedAt, "completed",
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			int64(7), "Widget", "https://acme.com/product/widget", "", "", "",
			"$9.99", "", "", "", []byte(`["https://acme.com/w.jpg"]`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := store.Store(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRequiresURL(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	_, err := store.Store(context.Background(), extraction.CompanyRecord{})
	require.Error(t, err)
}

func TestUpdateStatusUpserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO companies").
		WithArgs("https://acme.com", "failed").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpdateStatus(context.Background(), "https://acme.com", extraction.StatusFailed)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM companies").
		WithArgs("https://missing.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "https://missing.com")
	require.ErrorIs(t, err, extraction.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLoadsProducts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM companies").
		WithArgs("https://acme.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "name", "description", "type",
			"emails", "phones", "addresses", "logo", "extracted_at", "status",
		}).AddRow(
			int64(7), "https://acme.com", "Acme", "Makes things.", "Manufacturing",
			[]byte(`["info@acme.com"]`), []byte(`[]`), []byte(`[]`),
			"https://acme.com/logo.png", now, "completed",
		))
	mock.ExpectQuery("SELECT (.+) FROM products").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"name", "url", "main_category", "sub_category", "product_family",
			"price", "quantity", "description", "specifications", "images",
		}).AddRow(
			"Widget", "https://acme.com/product/widget", "Tools", "", "",
			"$9.99", "", "", "", []byte(`["https://acme.com/w.jpg"]`),
		))

	rec, err := store.Get(context.Background(), "https://acme.com")
	require.NoError(t, err)
	require.Equal(t, "Acme", rec.Name)
	require.Equal(t, []string{"info@acme.com"}, rec.Emails)
	require.Len(t, rec.Products, 1)
	require.Equal(t, "Widget", rec.Products[0].Name)
	require.Equal(t, []string{"https://acme.com/w.jpg"}, rec.Products[0].Images)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchBuildsConditions(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM companies WHERE name ILIKE (.+) AND status = (.+)").
		WithArgs("%acme%", "completed", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "name", "description", "type",
			"emails", "phones", "addresses", "logo", "extracted_at", "status",
		}))

	records, err := store.Search(context.Background(), extraction.StoreQuery{
		Name:   "acme",
		Status: extraction.StatusCompleted,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}
