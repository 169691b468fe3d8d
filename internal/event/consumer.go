package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/service"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// TopicPriceChanged is consumed to keep cart prices in line with the catalog.
var TopicPriceChanged = pkgkafka.Topic("product", "price_changed")

// PriceUpdater defines the interface required by the price consumer.
type PriceUpdater interface {
	ApplyPriceChange(ctx context.Context, change service.PriceChange) (int, error)
}

// PriceChangedData is the expected payload of a product.price_changed event.
type PriceChangedData struct {
	ProductID    string  `json:"product_id"`
	Price        int64   `json:"price"`
	SpecialPrice int64   `json:"special_price"`
	Discount     float64 `json:"discount"`
}

// Consumer processes incoming Kafka events for the storefront.
type Consumer struct {
	logger  *slog.Logger
	updater PriceUpdater
}

// NewConsumer creates a new event consumer.
func NewConsumer(updater PriceUpdater, logger *slog.Logger) *Consumer {
	return &Consumer{
		updater: updater,
		logger:  logger,
	}
}

// HandlePriceChanged stores the new pricing and reprices every cart holding
// the product.
func (c *Consumer) HandlePriceChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data PriceChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.ProductID == "" {
		data.ProductID = event.AggregateID
	}

	c.logger.InfoContext(ctx, "processing product.price_changed event",
		slog.String("product_id", data.ProductID),
		slog.Int64("special_price", data.SpecialPrice),
	)

	carts, err := c.updater.ApplyPriceChange(ctx, service.PriceChange{
		ProductID:    data.ProductID,
		Price:        data.Price,
		SpecialPrice: data.SpecialPrice,
		Discount:     data.Discount,
	})
	if err != nil {
		return fmt.Errorf("apply price change for product %s: %w", data.ProductID, err)
	}

	c.logger.InfoContext(ctx, "carts repriced",
		slog.String("product_id", data.ProductID),
		slog.Int("carts", carts),
	)
	return nil
}
