// Package catalog supplies merchant-scoped products: list and point reads for
// the POS screen, and Priceable conversion for checkout. Reads go through a
// Redis JSON cache keyed per merchant; any write path must invalidate it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cedarpos/backend/internal/cart"
	"github.com/cedarpos/backend/internal/common"
	"github.com/cedarpos/backend/internal/discount"
)

// Product is the catalog row as served to clients. Stock is nil for
// untracked products, MinStock is nil when no low-stock threshold is set.
type Product struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name"`
	Barcode      *string              `json:"barcode,omitempty"`
	UnitPriceUSD float64              `json:"unitPriceUsd"`
	Discount     *discount.Descriptor `json:"discount,omitempty"`
	Stock        *int                 `json:"stock,omitempty"`
	MinStock     *int                 `json:"minStock,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query string
	Page  int
	Limit int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// Service orchestrates catalog queries and caching.
type Service struct {
	pool         *pgxpool.Pool
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Pool         *pgxpool.Pool
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Pool == nil {
		return nil, errors.New("catalog: pool is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 50
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 200
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		pool:         cfg.Pool,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = l
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	return params, nil
}

const productColumns = `
	id, name, barcode, unit_price_usd,
	discount_kind, discount_value, discount_valid_from, discount_valid_until,
	stock, min_stock, updated_at
`

// List returns the merchant's products, newest first. The unfiltered first
// page is served from cache.
func (s *Service) List(ctx context.Context, merchantID uuid.UUID, params ListParams) (ListResult, error) {
	key, useCache := s.listCacheKey(merchantID, params)
	if useCache && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	query := strings.TrimSpace(params.Query)
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE merchant_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR barcode = $2)
	`, merchantID, query).Scan(&total)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE merchant_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR barcode = $2)
		ORDER BY updated_at DESC, id
		LIMIT $3 OFFSET $4
	`, merchantID, query, params.Limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0, params.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}

	result := ListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if useCache && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// Get returns a single product for the merchant.
func (s *Service) Get(ctx context.Context, merchantID, id uuid.UUID) (Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE merchant_id = $1 AND id = $2
	`, merchantID, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Priceables resolves the given product ids into cart priceables. Products
// that do not exist for the merchant are simply absent from the result; the
// caller decides whether that is an error.
func (s *Service) Priceables(ctx context.Context, merchantID uuid.UUID, ids []uuid.UUID) ([]cart.Priceable, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE merchant_id = $1 AND id = ANY($2)
	`, merchantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load priceables: %w", err)
	}
	defer rows.Close()

	out := make([]cart.Priceable, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Priceable())
	}
	return out, rows.Err()
}

// Priceable converts the catalog row into the shape the cart prices.
func (p Product) Priceable() cart.Priceable {
	id := p.ID
	return cart.Priceable{
		ID:           p.ID.String(),
		Name:         p.Name,
		UnitPriceUSD: p.UnitPriceUSD,
		Discount:     p.Discount,
		ProductID:    &id,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var kind *string
	var value *float64
	var from, until *time.Time
	err := row.Scan(
		&p.ID, &p.Name, &p.Barcode, &p.UnitPriceUSD,
		&kind, &value, &from, &until,
		&p.Stock, &p.MinStock, &p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	if kind != nil && value != nil {
		p.Discount = &discount.Descriptor{
			Kind:       discount.Kind(*kind),
			Value:      *value,
			ValidFrom:  from,
			ValidUntil: until,
		}
	}
	return p, nil
}

type cachedList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

func (s *Service) listCacheKey(merchantID uuid.UUID, params ListParams) (string, bool) {
	if params.Page != 1 || params.Limit != s.defaultLimit || params.Query != "" {
		return "", false
	}
	return "catalog:" + merchantID.String() + ":products", true
}

// InvalidateList drops the merchant's cached first page. Callers that mutate
// products must invoke it.
func (s *Service) InvalidateList(ctx context.Context, merchantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "catalog:"+merchantID.String()+":products")
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
