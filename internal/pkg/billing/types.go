package billing

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/PhotoAI/app/models"
)

var (
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrUnknownProvider      = errors.New("unknown payment provider")
	ErrProviderUnconfigured = errors.New("payment provider is not configured")
	ErrProvider             = errors.New("payment provider request failed")
	ErrTransactionNotFound  = errors.New("no pending transaction found")
	ErrPersistence          = errors.New("billing ledger write failed")
	// ErrStoreUnavailable classifies connectivity failures of the ledger store.
	// It is the only error the retry policy retries.
	ErrStoreUnavailable = errors.New("billing store unavailable")
)

// ProviderKind selects a payment provider adapter.
type ProviderKind string

const (
	ProviderStripe   ProviderKind = "stripe"
	ProviderRazorpay ProviderKind = "razorpay"
)

func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderStripe:
		return ProviderStripe, nil
	case ProviderRazorpay:
		return ProviderRazorpay, nil
	default:
		return "", ErrUnknownProvider
	}
}

// Contact is the payer information forwarded to the provider checkout.
type Contact struct {
	Name  string
	Email string
}

// PaymentSession is what a provider returns after creating a checkout
// session or order.
type PaymentSession struct {
	// OrderID is the external identifier the later verification refers to
	// (checkout session id or gateway order id).
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
	// Payload is handed to the client to complete the payment.
	Payload map[string]any

	TransactionID string
}

// VerificationInput carries the provider callback parameters. Card checkout
// uses SessionID; the order gateway uses OrderID, PaymentID and Signature.
type VerificationInput struct {
	SessionID string
	OrderID   string
	PaymentID string
	Signature string
}

// Verification is the provider's authoritative answer for a payment.
type Verification struct {
	Verified  bool
	OrderID   string
	PaymentID string
}

// PurchaseRequest starts a purchase for an authenticated user.
type PurchaseRequest struct {
	UserID   uint
	Plan     string
	Provider ProviderKind
	Contact  Contact
	IsAnnual bool
}

// Completion is the outcome of a settled purchase.
type Completion struct {
	Verified    bool
	Balance     int64
	Transaction models.Transaction
}
