package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// PriceSource returns the current price of a symbol, or zero when unavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) decimal.Decimal
}

// StockCatalog resolves stock codes and names.
type StockCatalog interface {
	Search(query string) []model.Stock
	Name(code string) string
}

// HoldingsService is the per-account stock ledger. Every call takes the resolved subject.
type HoldingsService interface {
	List(ctx context.Context, subject string) ([]model.HoldingView, error)
	Put(ctx context.Context, subject string, h model.Holding) (*model.Holding, error)
	Delete(ctx context.Context, subject, stockCode string) error
	Search(query string) []model.Stock
	Detail(ctx context.Context, stockCode string) (model.StockDetail, error)
}

// HoldingsServiceImpl implements HoldingsService.
type HoldingsServiceImpl struct {
	accounts repository.AccountRepository
	holdings repository.HoldingRepository
	prices   PriceSource
	catalog  StockCatalog
	fanout   int
}

// NewHoldingsService constructs the ledger. fanout bounds concurrent quote lookups.
func NewHoldingsService(accounts repository.AccountRepository, holdings repository.HoldingRepository,
	prices PriceSource, catalog StockCatalog, fanout int) *HoldingsServiceImpl {
	if fanout <= 0 {
		fanout = 4
	}
	return &HoldingsServiceImpl{accounts: accounts, holdings: holdings, prices: prices, catalog: catalog, fanout: fanout}
}

func (s *HoldingsServiceImpl) accountID(ctx context.Context, subject string) (int64, error) {
	a, err := s.accounts.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return 0, errs.ErrAccountNotFound
		}
		return 0, err
	}
	return a.ID, nil
}

// List returns the holdings of subject with current prices.
func (s *HoldingsServiceImpl) List(ctx context.Context, subject string) ([]model.HoldingView, error) {
	id, err := s.accountID(ctx, subject)
	if err != nil {
		return nil, err
	}
	hs, err := s.holdings.List(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]model.HoldingView, len(hs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, h := range hs {
		out[i].Holding = h
		g.Go(func() error {
			out[i].CurrentPrice = s.prices.CurrentPrice(gctx, h.StockCode)
			return nil
		})
	}
	_ = g.Wait() // price lookups never fail
	return out, nil
}

// Put creates or replaces the holding of h.StockCode for subject.
func (s *HoldingsServiceImpl) Put(ctx context.Context, subject string, h model.Holding) (*model.Holding, error) {
	h.StockCode = strings.TrimSpace(h.StockCode)
	h.StockName = strings.TrimSpace(h.StockName)
	switch {
	case h.StockCode == "":
		return nil, fmt.Errorf("stock code is required: %w", errs.ErrValidation)
	case h.StockName == "":
		return nil, fmt.Errorf("stock name is required: %w", errs.ErrValidation)
	case !h.AveragePrice.IsPositive():
		return nil, fmt.Errorf("average price must be positive: %w", errs.ErrValidation)
	case h.Quantity <= 0:
		return nil, fmt.Errorf("quantity must be positive: %w", errs.ErrValidation)
	}

	id, err := s.accountID(ctx, subject)
	if err != nil {
		return nil, err
	}
	h.ID = 0
	h.AccountID = id
	if err := s.holdings.Upsert(ctx, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Delete removes the holding of stockCode for subject.
func (s *HoldingsServiceImpl) Delete(ctx context.Context, subject, stockCode string) error {
	id, err := s.accountID(ctx, subject)
	if err != nil {
		return err
	}
	return s.holdings.Delete(ctx, id, strings.TrimSpace(stockCode))
}

// Search matches query against the stock catalog.
func (s *HoldingsServiceImpl) Search(query string) []model.Stock {
	return s.catalog.Search(query)
}

// Detail returns the catalog name and current price of stockCode.
func (s *HoldingsServiceImpl) Detail(ctx context.Context, stockCode string) (model.StockDetail, error) {
	stockCode = strings.TrimSpace(stockCode)
	if stockCode == "" {
		return model.StockDetail{}, fmt.Errorf("stock code is required: %w", errs.ErrValidation)
	}
	return model.StockDetail{
		Stock:        model.Stock{Code: stockCode, Name: s.catalog.Name(stockCode)},
		CurrentPrice: s.prices.CurrentPrice(ctx, stockCode),
	}, nil
}
