// Package postgres provides the Postgres-backed CompanyStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store persists company and product rows in Postgres. Companies are keyed
// by URL; products are replaced wholesale on every upsert.
type Store struct {
	pool dbPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertCompanySQL = `
INSERT INTO companies (
	url, name, description, type, emails, phones, addresses, logo, extracted_at, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (url) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	type = EXCLUDED.type,
	emails = EXCLUDED.emails,
	phones = EXCLUDED.phones,
	addresses = EXCLUDED.addresses,
	logo = EXCLUDED.logo,
	extracted_at = EXCLUDED.extracted_at,
	status = EXCLUDED.status
RETURNING id`

const insertProductSQL = `
INSERT INTO products (
	company_id, name, url, main_category, sub_category, product_family,
	price, quantity, description, specifications, images
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

// Store upserts the company row and replaces its product rows in one
// transaction. It returns the company id.
func (s *Store) Store(ctx context.Context, record extraction.CompanyRecord) (int64, error) {
	if record.URL == "" {
		return 0, fmt.Errorf("record url is required")
	}
	emails, phones, addresses, err := marshalContacts(record)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin store tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var companyID int64
	err = tx.QueryRow(ctx, upsertCompanySQL,
		record.URL, record.Name, record.Description, record.Type,
		emails, phones, addresses, record.Logo, record.ExtractedAt, string(record.Status),
	).Scan(&companyID)
	if err != nil {
		return 0, fmt.Errorf("upsert company: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE company_id = $1`, companyID); err != nil {
		return 0, fmt.Errorf("clear products: %w", err)
	}
	for _, p := range record.Products {
		images, err := json.Marshal(p.Images)
		if err != nil {
			return 0, fmt.Errorf("marshal product images: %w", err)
		}
		if _, err := tx.Exec(ctx, insertProductSQL,
			companyID, p.Name, p.URL, p.MainCategory, p.SubCategory, p.ProductFamily,
			p.Price, p.Quantity, p.Description, p.Specifications, images,
		); err != nil {
			return 0, fmt.Errorf("insert product: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit store tx: %w", err)
	}
	return companyID, nil
}

// UpdateStatus upserts a status-only row so failures are visible even when
// the extraction never produced a full record.
func (s *Store) UpdateStatus(ctx context.Context, url string, status extraction.RecordStatus) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO companies (url, extracted_at, status) VALUES ($1, NOW(), $2)
ON CONFLICT (url) DO UPDATE SET status = EXCLUDED.status`, url, string(status))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

const selectCompanySQL = `
SELECT id, url, name, description, type, emails, phones, addresses, logo, extracted_at, status
FROM companies`

// Get returns the record for the URL, including its products.
func (s *Store) Get(ctx context.Context, url string) (extraction.CompanyRecord, error) {
	row := s.pool.QueryRow(ctx, selectCompanySQL+` WHERE url = $1`, url)
	rec, companyID, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return extraction.CompanyRecord{}, extraction.ErrNotFound
		}
		return extraction.CompanyRecord{}, fmt.Errorf("select company: %w", err)
	}
	rec.Products, err = s.loadProducts(ctx, companyID)
	if err != nil {
		return extraction.CompanyRecord{}, err
	}
	return rec, nil
}

// GetRecent returns up to limit records, most recently extracted first.
// Product rows are not loaded for listings.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]extraction.CompanyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, selectCompanySQL+` ORDER BY extracted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent companies: %w", err)
	}
	defer rows.Close()
	return collectCompanies(rows)
}

// Search returns records matching every set field of the query.
func (s *Store) Search(ctx context.Context, query extraction.StoreQuery) ([]extraction.CompanyRecord, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if query.Name != "" {
		conds = append(conds, "name ILIKE "+arg("%"+query.Name+"%"))
	}
	if query.Type != "" {
		conds = append(conds, "type = "+arg(query.Type))
	}
	if query.Status != "" {
		conds = append(conds, "status = "+arg(string(query.Status)))
	}
	if query.HasEmail {
		conds = append(conds, "jsonb_array_length(emails) > 0")
	}
	if query.HasProducts {
		conds = append(conds, "EXISTS (SELECT 1 FROM products WHERE products.company_id = companies.id)")
	}

	sql := selectCompanySQL
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	sql += " ORDER BY extracted_at DESC LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	defer rows.Close()
	return collectCompanies(rows)
}

func (s *Store) loadProducts(ctx context.Context, companyID int64) ([]extraction.ProductRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT name, url, main_category, sub_category, product_family,
	price, quantity, description, specifications, images
FROM products WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []extraction.ProductRecord
	for rows.Next() {
		var (
			p      extraction.ProductRecord
			images []byte
		)
		if err := rows.Scan(&p.Name, &p.URL, &p.MainCategory, &p.SubCategory, &p.ProductFamily,
			&p.Price, &p.Quantity, &p.Description, &p.Specifications, &images); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if len(images) > 0 {
			if err := json.Unmarshal(images, &p.Images); err != nil {
				return nil, fmt.Errorf("unmarshal product images: %w", err)
			}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanCompany(row pgx.Row) (extraction.CompanyRecord, int64, error) {
	var (
		rec                       extraction.CompanyRecord
		companyID                 int64
		emails, phones, addresses []byte
		status                    string
	)
	err := row.Scan(&companyID, &rec.URL, &rec.Name, &rec.Description, &rec.Type,
		&emails, &phones, &addresses, &rec.Logo, &rec.ExtractedAt, &status)
	if err != nil {
		return extraction.CompanyRecord{}, 0, err
	}
	rec.Status = extraction.RecordStatus(status)
	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{emails, &rec.Emails},
		{phones, &rec.Phones},
		{addresses, &rec.Addresses},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return extraction.CompanyRecord{}, 0, fmt.Errorf("unmarshal contact set: %w", err)
		}
	}
	return rec, companyID, nil
}

func collectCompanies(rows pgx.Rows) ([]extraction.CompanyRecord, error) {
	var out []extraction.CompanyRecord
	for rows.Next() {
		rec, _, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

func marshalContacts(record extraction.CompanyRecord) (emails, phones, addresses []byte, err error) {
	for _, pair := range []struct {
		name string
		src  []string
		dst  *[]byte
	}{
		{"emails", record.Emails, &emails},
		{"phones", record.Phones, &phones},
		{"addresses", record.Addresses, &addresses},
	} {
		values := pair.src
		if values == nil {
			values = []string{}
		}
		*pair.dst, err = json.Marshal(values)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal %s: %w", pair.name, err)
		}
	}
	return emails, phones, addresses, nil
}
