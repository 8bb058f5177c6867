package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const providerHTTPTimeout = 15 * time.Second

// Provider is implemented by each payment gateway adapter.
type Provider interface {
	Kind() ProviderKind
	// CreatePayment creates the provider-side checkout object for plan.
	CreatePayment(ctx context.Context, userID uint, plan Plan, contact Contact) (*PaymentSession, error)
	// VerifyPayment returns Verified=false for a well-formed but unsuccessful
	// payment and an error only for configuration or transport failures.
	VerifyPayment(ctx context.Context, in VerificationInput) (*Verification, error)
}

// Providers maps provider kinds to adapters.
type Providers map[ProviderKind]Provider

func NewProviders(adapters ...Provider) Providers {
	out := make(Providers, len(adapters))
	for _, a := range adapters {
		out[a.Kind()] = a
	}
	return out
}

// NewProvidersFromEnv registers every adapter. Adapters without credentials
// are kept and fail per call with ErrProviderUnconfigured.
func NewProvidersFromEnv() Providers {
	return NewProviders(NewStripeClientFromEnv(), NewRazorpayClientFromEnv())
}

func (p Providers) Get(kind ProviderKind) (Provider, error) {
	a, ok := p[kind]
	if !ok || a == nil {
		return nil, ErrUnknownProvider
	}
	return a, nil
}

func newProviderHTTPClient() *http.Client {
	return &http.Client{Timeout: providerHTTPTimeout}
}

// providerStatusError is a non-2xx answer from a provider API. It matches
// ErrProvider through errors.Is.
type providerStatusError struct {
	what       string
	StatusCode int
	body       string
}

func (e *providerStatusError) Error() string {
	return fmt.Sprintf("%s: %s failed: status=%d body=%s", ErrProvider, e.what, e.StatusCode, e.body)
}

func (e *providerStatusError) Unwrap() error { return ErrProvider }

func isProviderNotFound(err error) bool {
	var se *providerStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// readProviderResponse reads a bounded body and turns non-2xx statuses into
// ErrProvider.
func readProviderResponse(resp *http.Response, what string) ([]byte, error) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providerStatusError{what: what, StatusCode: resp.StatusCode, body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
