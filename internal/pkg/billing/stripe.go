package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
)

const (
	defaultStripeAPIBaseURL = "https://api.stripe.com"
	stripeCurrency          = "usd"
	stripePaidStatus        = "paid"
)

// StripeClient is the card-checkout adapter. It talks to the Checkout
// Sessions REST API directly.
type StripeClient struct {
	SecretKey   string
	FrontendURL string
	APIBaseURL  string

	HTTPClient *http.Client
}

// StripeCheckoutSession is the subset of a checkout session this service reads.
type StripeCheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:   strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		FrontendURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("FRONTEND_URL", "")), "/"),
		APIBaseURL:  strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient:  newProviderHTTPClient(),
	}
}

func (c *StripeClient) Kind() ProviderKind { return ProviderStripe }

func (c *StripeClient) CreatePayment(ctx context.Context, userID uint, plan Plan, contact Contact) (*PaymentSession, error) {
	session, err := c.CreateCheckoutSession(ctx, userID, plan, contact.Email)
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		OrderID:   session.ID,
		PaymentID: session.PaymentIntent,
		Amount:    plan.Price,
		Currency:  stripeCurrency,
		Payload: map[string]any{
			"sessionId": session.ID,
			"id":        session.ID,
			"url":       session.URL,
		},
	}, nil
}

func (c *StripeClient) VerifyPayment(ctx context.Context, in VerificationInput) (*Verification, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return &Verification{Verified: false}, nil
	}
	session, err := c.GetCheckoutSession(ctx, sessionID)
	if isProviderNotFound(err) {
		// Unknown session ids are a failed verification, not an outage.
		return &Verification{Verified: false, OrderID: sessionID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Verification{
		Verified:  session.PaymentStatus == stripePaidStatus,
		OrderID:   session.ID,
		PaymentID: session.PaymentIntent,
	}, nil
}

// CreateCheckoutSession creates a one-time card payment for plan.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, userID uint, plan Plan, email string) (*StripeCheckoutSession, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", stripeCurrency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(plan.Price, 10))
	form.Set("line_items[0][price_data][product_data][name]", plan.Title()+" Plan")
	form.Set("line_items[0][price_data][product_data][description]", fmt.Sprintf("One-time payment for %d credits", plan.Credits))
	form.Set("success_url", c.FrontendURL+"/payment/success?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", c.FrontendURL+"/payment/cancel?session_id={CHECKOUT_SESSION_ID}")
	if e := strings.TrimSpace(email); e != "" {
		form.Set("customer_email", e)
	}
	form.Set("metadata[userId]", strconv.FormatUint(uint64(userID), 10))
	form.Set("metadata[plan]", plan.Key)

	var out StripeCheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("%w: stripe returned a session without id", ErrProvider)
	}
	return &out, nil
}

// GetCheckoutSession re-fetches a session; payment_status is authoritative.
func (c *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*StripeCheckoutSession, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	var out StripeCheckoutSession
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) checkConfigured() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("%w: STRIPE_SECRET_KEY is not set", ErrProviderUnconfigured)
	}
	return nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	endpoint := strings.TrimRight(c.APIBaseURL, "/") + path

	var req *http.Request
	var err error
	if form != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: stripe request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := readProviderResponse(resp, "stripe "+method+" "+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode stripe response: %v", ErrProvider, err)
	}
	return nil
}
