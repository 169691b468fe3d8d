package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts orders committed by PlaceOrder.
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	// OrderFailures counts PlaceOrder failures by error code.
	OrderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_failures_total",
			Help: "Total number of failed order placements by error code",
		},
		[]string{"code"},
	)

	// UnitsDecremented counts inventory units taken by committed orders.
	UnitsDecremented = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_inventory_units_decremented_total",
			Help: "Total number of inventory units decremented by orders",
		},
	)

	// CartMutations counts successful cart mutations by operation.
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations by operation",
		},
		[]string{"op"},
	)
)
