package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityInput holds the signed quantity change for a cart line.
type UpdateQuantityInput struct {
	Delta int `json:"delta"`
}

// PriceChange is the new pricing of a product.
type PriceChange struct {
	ProductID    string  `json:"product_id"`
	Price        int64   `json:"price"`
	SpecialPrice int64   `json:"special_price"`
	Discount     float64 `json:"discount"`
}

// CartService implements the cart store. Every mutation runs in one
// transaction that locks the cart, so the running total is always equal to
// the sum of the line totals.
type CartService struct {
	store  repository.Store
	ledger *Ledger
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(store repository.Store, ledger *Ledger, events EventPublisher, logger *slog.Logger) *CartService {
	return &CartService{
		store:  store,
		ledger: ledger,
		events: events,
		logger: logger,
		now:    utcNow,
	}
}

// GetCart returns the user's cart.
func (s *CartService) GetCart(ctx context.Context, user domain.User) (*domain.Cart, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	cart, err := s.store.Repos().Carts.GetByOwnerEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errCartNotFound(user.Email)
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// ListCarts returns a page of all carts.
func (s *CartService) ListCarts(ctx context.Context, params pagination.Params) ([]domain.Cart, int, error) {
	carts, total, err := s.store.Repos().Carts.List(ctx, params.Offset, params.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list carts: %w", err)
	}
	return carts, total, nil
}

// AddItem adds a new line for the product, priced at its current special
// price. The cart is created on the user's first add. A product that is
// already in the cart is rejected rather than merged.
func (s *CartService) AddItem(ctx context.Context, user domain.User, input AddItemInput) (*domain.Cart, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}

	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := s.getOrCreateCart(ctx, repos, user)
		if err != nil {
			return err
		}
		if c.FindItem(input.ProductID) != nil {
			return errDuplicateItem(input.ProductID)
		}

		product, err := s.ledger.Reserve(ctx, repos.Products, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}

		item := domain.CartItem{
			ID:          uuid.New().String(),
			CartID:      c.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    input.Quantity,
			UnitPrice:   product.SpecialPrice,
			Discount:    product.Discount,
			AddedAt:     s.now(),
		}
		if err := repos.Carts.InsertItem(ctx, &item); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				return errDuplicateItem(input.ProductID)
			}
			return fmt.Errorf("insert cart item: %w", err)
		}

		c.AppendItem(item)
		if err := s.saveTotal(ctx, repos, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "add", cart, input.ProductID)
	return cart, nil
}

// UpdateItemQuantity moves the quantity of a line by delta. A line that
// reaches zero is removed. Otherwise the line is re-priced from the product's
// current special price and the total moves by the old/new line difference.
func (s *CartService) UpdateItemQuantity(ctx context.Context, user domain.User, productID string, delta int) (*domain.Cart, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Carts.GetByOwnerEmail(ctx, user.Email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errCartNotFound(user.Email)
			}
			return fmt.Errorf("get cart: %w", err)
		}

		existing := c.FindItem(productID)
		if existing == nil {
			return errItemNotInCart(productID)
		}

		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errProductNotFound(productID)
			}
			return fmt.Errorf("get product: %w", err)
		}

		newQty := existing.Quantity + delta
		if !product.Covers(newQty) {
			return errInsufficientStock(product.Name, product.Quantity)
		}
		if newQty < 0 {
			return errNegativeQuantity()
		}

		if newQty == 0 {
			if err := s.removeItem(ctx, repos, c, productID); err != nil {
				return err
			}
			cart = c
			return nil
		}

		updated := *existing
		updated.Quantity = newQty
		updated.UnitPrice = product.SpecialPrice
		updated.Discount = product.Discount
		if err := s.replaceItem(ctx, repos, c, updated); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "update", cart, productID)
	return cart, nil
}

// RemoveItem deletes the product's line from the cart and subtracts its line
// total.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := s.cartByID(ctx, repos, cartID)
		if err != nil {
			return err
		}
		if err := s.removeItem(ctx, repos, c, productID); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "remove", cart, productID)
	return cart, nil
}

// RepriceItem re-reads the product's live price into the cart line and moves
// the cart total by the difference.
func (s *CartService) RepriceItem(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := s.cartByID(ctx, repos, cartID)
		if err != nil {
			return err
		}

		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errProductNotFound(productID)
			}
			return fmt.Errorf("get product: %w", err)
		}

		existing := c.FindItem(productID)
		if existing == nil {
			return errItemNotInCart(productID)
		}

		updated := *existing
		updated.UnitPrice = product.SpecialPrice
		updated.Discount = product.Discount
		if err := s.replaceItem(ctx, repos, c, updated); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "reprice", cart, productID)
	return cart, nil
}

// RepriceProduct reprices the product in every cart that holds it and
// returns the number of carts updated. Carts that dropped the line in the
// meantime are skipped.
func (s *CartService) RepriceProduct(ctx context.Context, productID string) (int, error) {
	cartIDs, err := s.store.Repos().Carts.ListIDsByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("list carts by product: %w", err)
	}

	repriced := 0
	for _, cartID := range cartIDs {
		if _, err := s.RepriceItem(ctx, cartID, productID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return repriced, err
		}
		repriced++
	}

	s.logger.InfoContext(ctx, "product repriced across carts",
		slog.String("product_id", productID),
		slog.Int("carts", repriced),
	)
	return repriced, nil
}

// ApplyPriceChange stores the product's new pricing and reprices every cart
// holding it.
func (s *CartService) ApplyPriceChange(ctx context.Context, change PriceChange) (int, error) {
	if change.ProductID == "" {
		return 0, apperrors.InvalidInput("product id is required")
	}
	if change.SpecialPrice < 0 || change.Price < 0 {
		return 0, apperrors.InvalidInput("price must not be negative")
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.GetByID(ctx, change.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errProductNotFound(change.ProductID)
			}
			return fmt.Errorf("get product: %w", err)
		}
		product.Price = change.Price
		product.SpecialPrice = change.SpecialPrice
		product.Discount = change.Discount
		product.UpdatedAt = s.now()
		return repos.Products.Save(ctx, product)
	})
	if err != nil {
		return 0, err
	}

	return s.RepriceProduct(ctx, change.ProductID)
}

func (s *CartService) getOrCreateCart(ctx context.Context, repos repository.Repositories, user domain.User) (*domain.Cart, error) {
	cart, err := repos.Carts.GetByOwnerEmail(ctx, user.Email)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart = domain.NewCart(uuid.New().String(), user, s.now())
	err = repos.Carts.Create(ctx, cart)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	// Another request created it first.
	cart, err = repos.Carts.GetByOwnerEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) cartByID(ctx context.Context, repos repository.Repositories, cartID string) (*domain.Cart, error) {
	cart, err := repos.Carts.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart", cartID)
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// removeItem drops a line from cart and persists the line and the new total.
func (s *CartService) removeItem(ctx context.Context, repos repository.Repositories, cart *domain.Cart, productID string) error {
	if _, ok := cart.DropItem(productID); !ok {
		return errItemNotInCart(productID)
	}
	if err := repos.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return s.saveTotal(ctx, repos, cart)
}

func (s *CartService) replaceItem(ctx context.Context, repos repository.Repositories, cart *domain.Cart, item domain.CartItem) error {
	if err := repos.Carts.UpdateItem(ctx, &item); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errItemNotInCart(item.ProductID)
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	cart.ReplaceItem(item)
	return s.saveTotal(ctx, repos, cart)
}

func (s *CartService) saveTotal(ctx context.Context, repos repository.Repositories, cart *domain.Cart) error {
	if err := repos.Carts.UpdateTotal(ctx, cart.ID, cart.TotalPrice); err != nil {
		return fmt.Errorf("update cart total: %w", err)
	}
	cart.UpdatedAt = s.now()
	return nil
}

func (s *CartService) mutated(ctx context.Context, op string, cart *domain.Cart, productID string) {
	CartMutations.WithLabelValues(op).Inc()

	s.logger.InfoContext(ctx, "cart updated",
		slog.String("op", op),
		slog.String("cart_id", cart.ID),
		slog.String("product_id", productID),
		slog.Int64("total_price", cart.TotalPrice),
	)

	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}
