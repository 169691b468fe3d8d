package domain

import "time"

// Payment method constants.
const (
	PaymentMethodCreditCard     = "credit_card"
	PaymentMethodDebitCard      = "debit_card"
	PaymentMethodBankTransfer   = "bank_transfer"
	PaymentMethodWallet         = "wallet"
	PaymentMethodCashOnDelivery = "cash_on_delivery"
)

// Payment records how an order was paid. The gateway fields are supplied by
// the caller as an already decided outcome.
type Payment struct {
	ID                     string    `json:"id"`
	OrderID                string    `json:"order_id"`
	Method                 string    `json:"method"`
	GatewayName            string    `json:"gateway_name"`
	GatewayPaymentID       string    `json:"gateway_payment_id"`
	GatewayStatus          string    `json:"gateway_status"`
	GatewayResponseMessage string    `json:"gateway_response_message"`
	CreatedAt              time.Time `json:"created_at"`
}

// ValidPaymentMethods returns all supported payment methods.
func ValidPaymentMethods() []string {
	return []string{
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodBankTransfer,
		PaymentMethodWallet,
		PaymentMethodCashOnDelivery,
	}
}

// IsValidPaymentMethod checks if a payment method string is supported.
func IsValidPaymentMethod(method string) bool {
	for _, m := range ValidPaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}
