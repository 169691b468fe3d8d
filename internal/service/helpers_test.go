package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/memory"
)

// --- Recording publisher ---

type recordingPublisher struct {
	mu            sync.Mutex
	cartUpdates   []string
	ordersPlaced  []string
	statusChanges []string
	stockChanges  []StockChange
	err           error
}

func (p *recordingPublisher) PublishCartUpdated(_ context.Context, cart *domain.Cart) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cartUpdates = append(p.cartUpdates, cart.ID)
	return p.err
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ordersPlaced = append(p.ordersPlaced, order.ID)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, order *domain.Order, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanges = append(p.statusChanges, order.Status)
	return p.err
}

func (p *recordingPublisher) PublishStockChanged(_ context.Context, change StockChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stockChanges = append(p.stockChanges, change)
	return p.err
}

// --- Fixture ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	store      *memory.Store
	events     *recordingPublisher
	ledger     *Ledger
	carts      *CartService
	orders     *OrderService
	inventory  *InventoryService
	addresses  *AddressService
	idempotent *memory.IdempotencyStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := newTestLogger()
	store := memory.NewStore()
	events := &recordingPublisher{}
	ledger := NewLedger(logger)
	carts := NewCartService(store, ledger, events, logger)
	idem := memory.NewIdempotencyStore()
	return &fixture{
		store:      store,
		events:     events,
		ledger:     ledger,
		carts:      carts,
		orders:     NewOrderService(store, NewReconciler(ledger, carts), idem, events, logger, false),
		inventory:  NewInventoryService(store, ledger, events, logger),
		addresses:  NewAddressService(store, logger),
		idempotent: idem,
	}
}

var (
	alice = domain.User{ID: "user-alice", Email: "alice@example.com"}
	bob   = domain.User{ID: "user-bob", Email: "bob@example.com"}
)

func (f *fixture) seedProduct(t *testing.T, id string, specialPrice int64, qty int) {
	t.Helper()
	require.NoError(t, f.store.Repos().Products.Save(context.Background(), &domain.Product{
		ID:           id,
		Name:         "Product " + id,
		Price:        specialPrice,
		SpecialPrice: specialPrice,
		Quantity:     qty,
		UpdatedAt:    time.Now().UTC(),
	}))
}

func (f *fixture) setPrice(t *testing.T, id string, specialPrice int64, discount float64) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.Repos().Products.GetByID(ctx, id)
	require.NoError(t, err)
	p.SpecialPrice = specialPrice
	p.Discount = discount
	require.NoError(t, f.store.Repos().Products.Save(ctx, p))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) seedAddress(t *testing.T, owner domain.User) *domain.Address {
	t.Helper()
	a, err := f.addresses.CreateAddress(context.Background(), owner, CreateAddressInput{
		Street:  "1 Analytical Way",
		City:    "London",
		Country: "UK",
		Pincode: "N1 9GU",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) add(t *testing.T, user domain.User, productID string, qty int) *domain.Cart {
	t.Helper()
	cart, err := f.carts.AddItem(context.Background(), user, AddItemInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return cart
}
