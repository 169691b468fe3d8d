package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const tracerName = "github.com/utafrali/storefront/internal/service"

// PlaceOrderInput holds the payment outcome and address for a new order.
type PlaceOrderInput struct {
	AddressID              string `json:"address_id" validate:"required"`
	PaymentMethod          string `json:"payment_method" validate:"required"`
	GatewayName            string `json:"pg_name"`
	GatewayPaymentID       string `json:"pg_payment_id"`
	GatewayStatus          string `json:"pg_status"`
	GatewayResponseMessage string `json:"pg_response_message"`

	// IdempotencyKey, when set, makes retries of the same request return the
	// order placed by the first attempt.
	IdempotencyKey string `json:"-"`
}

// UpdateStatusInput holds the target status of an order.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// OrderService is the order factory. PlaceOrder converts the user's cart into
// an order, its payment and its line snapshots, then reconciles inventory and
// the cart, all in one transaction.
type OrderService struct {
	store          repository.Store
	reconciler     *Reconciler
	idempotency    repository.IdempotencyStore
	events         EventPublisher
	logger         *slog.Logger
	checkOwnership bool
	now            func() time.Time
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case idempotency keys are ignored. When checkOwnership is set,
// PlaceOrder only accepts addresses owned by the ordering user.
func NewOrderService(
	store repository.Store,
	reconciler *Reconciler,
	idempotency repository.IdempotencyStore,
	events EventPublisher,
	logger *slog.Logger,
	checkOwnership bool,
) *OrderService {
	return &OrderService{
		store:          store,
		reconciler:     reconciler,
		idempotency:    idempotency,
		events:         events,
		logger:         logger,
		checkOwnership: checkOwnership,
		now:            utcNow,
	}
}

// PlaceOrder converts the user's cart into an ACCEPTED order.
func (s *OrderService) PlaceOrder(ctx context.Context, user domain.User, input PlaceOrderInput) (order *domain.Order, err error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if input.AddressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}
	if !domain.IsValidPaymentMethod(input.PaymentMethod) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported payment method %q", input.PaymentMethod))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "OrderService.PlaceOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("order.id", order.ID))
		}
		span.End()
	}()

	if input.IdempotencyKey != "" && s.idempotency != nil {
		orderID, acquired, err := s.idempotency.Acquire(ctx, input.IdempotencyKey)
		if err != nil {
			return nil, apperrors.ServiceUnavailable("idempotency store unavailable", err)
		}
		if !acquired {
			if orderID == "" {
				return nil, apperrors.Conflict(domain.CodeRequestInProgress,
					"a request with this idempotency key is already in progress")
			}
			return s.GetOrder(ctx, user, orderID)
		}
	}

	order, changes, err := s.placeOrder(ctx, user, input)
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		code := apperrors.CodeOf(err)
		if code == "" {
			code = "INTERNAL_ERROR"
		}
		OrderFailures.WithLabelValues(code).Inc()
		return nil, err
	}
	s.completeKey(ctx, input.IdempotencyKey, order.ID)

	OrdersPlaced.Inc()
	units := 0
	for _, c := range changes {
		units -= c.Delta
	}
	UnitsDecremented.Add(float64(units))

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", user.ID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("item_count", len(order.Items)),
	)

	if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	for _, change := range changes {
		if err := s.events.PublishStockChanged(ctx, change); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish stock change event",
				slog.String("product_id", change.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, user domain.User, input PlaceOrderInput) (*domain.Order, []StockChange, error) {
	var (
		order   *domain.Order
		changes []StockChange
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cart, err := repos.Carts.GetByOwnerEmail(ctx, user.Email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return errCartNotFound(user.Email)
			}
			return fmt.Errorf("get cart: %w", err)
		}

		address, err := repos.Addresses.GetByID(ctx, input.AddressID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("address", input.AddressID)
			}
			return fmt.Errorf("get address: %w", err)
		}
		if s.checkOwnership && address.UserID != user.ID {
			return apperrors.NotFound("address", input.AddressID)
		}

		if cart.IsEmpty() {
			return errEmptyCart()
		}

		now := s.now()
		o := &domain.Order{
			ID:              uuid.New().String(),
			UserID:          user.ID,
			Email:           user.Email,
			OrderDate:       domain.OrderDay(now),
			TotalAmount:     cart.TotalPrice,
			Status:          domain.OrderStatusAccepted,
			AddressID:       address.ID,
			ShippingAddress: address.Snapshot(),
			PaymentID:       uuid.New().String(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		payment := &domain.Payment{
			ID:                     o.PaymentID,
			OrderID:                o.ID,
			Method:                 input.PaymentMethod,
			GatewayName:            input.GatewayName,
			GatewayPaymentID:       input.GatewayPaymentID,
			GatewayStatus:          input.GatewayStatus,
			GatewayResponseMessage: input.GatewayResponseMessage,
			CreatedAt:              now,
		}

		if err := repos.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := repos.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		items := make([]domain.OrderItem, len(cart.Items))
		for i, line := range cart.Items {
			items[i] = domain.SnapshotItem(uuid.New().String(), o.ID, i, line)
		}
		if err := repos.Orders.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		changes, err = s.reconciler.Reconcile(ctx, repos, cart, o.ID)
		if err != nil {
			return err
		}

		o.Payment = payment
		o.Items = items
		o.ComputeSavings()
		order = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, changes, nil
}

func (s *OrderService) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release idempotency key",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *OrderService) completeKey(ctx context.Context, key, orderID string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Complete(ctx, key, orderID); err != nil {
		s.logger.WarnContext(ctx, "failed to record idempotency key",
			slog.String("key", key),
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, user domain.User, id string) (*domain.Order, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	order, err := s.store.Repos().Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Email != user.Email {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

// ListOrders returns a page of the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, user domain.User, params pagination.Params) ([]domain.Order, int, error) {
	if err := requireUser(user); err != nil {
		return nil, 0, err
	}

	orders, total, err := s.store.Repos().Orders.ListByEmail(ctx, user.Email, params.Offset, params.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateOrderStatus moves an order along its status machine.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}

	var (
		order    *domain.Order
		previous string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		o, err := repos.Orders.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("order", id)
			}
			return fmt.Errorf("get order: %w", err)
		}
		if !o.CanTransitionTo(status) {
			return apperrors.InvalidState(domain.CodeInvalidTransition,
				fmt.Sprintf("cannot transition order from %s to %s", o.Status, status))
		}
		if err := repos.Orders.UpdateStatus(ctx, id, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		previous = o.Status
		o.Status = status
		o.UpdatedAt = s.now()
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("from", previous),
		slog.String("to", status),
	)
	if err := s.events.PublishOrderStatusChanged(ctx, order, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}
