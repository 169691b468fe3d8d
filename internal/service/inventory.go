package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Ledger validates and applies stock changes. Its methods run against the
// product repository they are given, so callers choose the unit of work.
type Ledger struct {
	logger *slog.Logger
}

// NewLedger creates a new inventory ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Reserve checks that qty units of the product are available and returns the
// product. Nothing is held: inside a transaction the product row stays locked
// until commit, outside of one the check can race with other writers.
func (l *Ledger) Reserve(ctx context.Context, products repository.ProductRepository, productID string, qty int) (*domain.Product, error) {
	product, err := products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errProductNotFound(productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.InStock() {
		return nil, errOutOfStock(product)
	}
	if !product.Covers(qty) {
		return nil, errInsufficientStock(product.Name, product.Quantity)
	}
	return product, nil
}

// Take removes qty units only if they are still in stock, in one atomic
// statement, and records the movement against refID.
func (l *Ledger) Take(ctx context.Context, products repository.ProductRepository, productID string, qty int, refID string) (StockChange, error) {
	remaining, ok, err := products.DecrementIfAvailable(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return StockChange{}, errProductNotFound(productID)
		}
		return StockChange{}, fmt.Errorf("decrement stock: %w", err)
	}
	if !ok {
		return StockChange{}, errInsufficientStock(productID, remaining)
	}
	if err := products.RecordMovement(ctx, productID, -qty, ReasonOrder, refID); err != nil {
		return StockChange{}, err
	}
	return StockChange{ProductID: productID, Delta: -qty, Remaining: remaining, Reason: ReasonOrder, RefID: refID}, nil
}

// Decrement applies the raw subtraction with no stock check. The result may
// be negative if the caller skipped validation.
func (l *Ledger) Decrement(ctx context.Context, products repository.ProductRepository, productID string, qty int, reason, refID string) (StockChange, error) {
	remaining, err := products.Decrement(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return StockChange{}, errProductNotFound(productID)
		}
		return StockChange{}, fmt.Errorf("decrement stock: %w", err)
	}
	if remaining < 0 {
		l.logger.WarnContext(ctx, "stock went negative",
			slog.String("product_id", productID),
			slog.Int("remaining", remaining),
		)
	}
	if err := products.RecordMovement(ctx, productID, -qty, reason, refID); err != nil {
		return StockChange{}, err
	}
	return StockChange{ProductID: productID, Delta: -qty, Remaining: remaining, Reason: reason, RefID: refID}, nil
}

// InventoryService exposes the ledger's administrative operations.
type InventoryService struct {
	store  repository.Store
	ledger *Ledger
	events EventPublisher
	logger *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(store repository.Store, ledger *Ledger, events EventPublisher, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		ledger: ledger,
		events: events,
		logger: logger,
	}
}

// GetStock returns the product with its current stock level.
func (s *InventoryService) GetStock(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.store.Repos().Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errProductNotFound(productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// Restock adds qty units to a product.
func (s *InventoryService) Restock(ctx context.Context, productID string, qty int) (StockChange, error) {
	if qty <= 0 {
		return StockChange{}, apperrors.InvalidInput("quantity must be greater than 0")
	}

	var change StockChange
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		remaining, err := repos.Products.Restock(ctx, productID, qty)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errProductNotFound(productID)
			}
			return fmt.Errorf("restock: %w", err)
		}
		if err := repos.Products.RecordMovement(ctx, productID, qty, ReasonRestock, ""); err != nil {
			return err
		}
		change = StockChange{ProductID: productID, Delta: qty, Remaining: remaining, Reason: ReasonRestock}
		return nil
	})
	if err != nil {
		return StockChange{}, err
	}

	s.logger.InfoContext(ctx, "product restocked",
		slog.String("product_id", productID),
		slog.Int("quantity", qty),
		slog.Int("remaining", change.Remaining),
	)
	s.publishStockChanged(ctx, change)
	return change, nil
}

// Decrement removes qty units unconditionally.
func (s *InventoryService) Decrement(ctx context.Context, productID string, qty int) (StockChange, error) {
	if qty <= 0 {
		return StockChange{}, apperrors.InvalidInput("quantity must be greater than 0")
	}

	var change StockChange
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		change, err = s.ledger.Decrement(ctx, repos.Products, productID, qty, ReasonManual, "")
		return err
	})
	if err != nil {
		return StockChange{}, err
	}

	s.logger.InfoContext(ctx, "stock decremented",
		slog.String("product_id", productID),
		slog.Int("quantity", qty),
		slog.Int("remaining", change.Remaining),
	)
	s.publishStockChanged(ctx, change)
	return change, nil
}

func (s *InventoryService) publishStockChanged(ctx context.Context, change StockChange) {
	if err := s.events.PublishStockChanged(ctx, change); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock change event",
			slog.String("product_id", change.ProductID),
			slog.String("error", err.Error()),
		)
	}
}
