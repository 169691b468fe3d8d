package domain

// Error codes surfaced to callers for the cart and order failure modes.
const (
	CodeDuplicateItem     = "DUPLICATE_ITEM"
	CodeOutOfStock        = "OUT_OF_STOCK"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeNegativeQuantity  = "NEGATIVE_QUANTITY"
	CodeEmptyCart         = "EMPTY_CART"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeRequestInProgress = "REQUEST_IN_PROGRESS"
)
