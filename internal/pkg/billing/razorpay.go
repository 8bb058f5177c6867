package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
)

const (
	defaultRazorpayAPIBaseURL = "https://api.razorpay.com"
	razorpayCurrency          = "INR"
	razorpayMerchantName      = "PhotoAI"
	razorpayThemeColor        = "#000000"
)

// RazorpayClient is the order-gateway adapter. Orders are created server
// side; the client completes the payment and posts back a signature.
type RazorpayClient struct {
	KeyID      string
	KeySecret  string
	APIBaseURL string

	HTTPClient *http.Client
	// Now is used for receipt ids; defaults to time.Now.
	Now func() time.Time
}

// RazorpayOrder is the subset of an order object this service reads.
type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewRazorpayClientFromEnv() *RazorpayClient {
	return &RazorpayClient{
		KeyID:      strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_ID", "")),
		KeySecret:  strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("RAZORPAY_API_BASE_URL", defaultRazorpayAPIBaseURL)),
		HTTPClient: newProviderHTTPClient(),
	}
}

func (c *RazorpayClient) Kind() ProviderKind { return ProviderRazorpay }

func (c *RazorpayClient) CreatePayment(ctx context.Context, userID uint, plan Plan, contact Contact) (*PaymentSession, error) {
	order, err := c.CreateOrder(ctx, userID, plan)
	if err != nil {
		return nil, err
	}

	return &PaymentSession{
		OrderID:  order.ID,
		Amount:   plan.Price,
		Currency: razorpayCurrency,
		Payload: map[string]any{
			"key":         c.KeyID,
			"amount":      order.Amount,
			"currency":    order.Currency,
			"name":        razorpayMerchantName,
			"description": fmt.Sprintf("%s Plan - %d Credits", strings.ToUpper(plan.Key), plan.Credits),
			"order_id":    order.ID,
			"prefill": map[string]string{
				"name":  contact.Name,
				"email": contact.Email,
			},
			"notes": map[string]string{
				"userId": strconv.FormatUint(uint64(userID), 10),
				"plan":   plan.Key,
			},
			"theme": map[string]string{
				"color": razorpayThemeColor,
			},
		},
	}, nil
}

// VerifyPayment checks the callback signature locally; no API call is made.
func (c *RazorpayClient) VerifyPayment(_ context.Context, in VerificationInput) (*Verification, error) {
	if strings.TrimSpace(c.KeySecret) == "" {
		return nil, fmt.Errorf("%w: RAZORPAY_KEY_SECRET is not set", ErrProviderUnconfigured)
	}
	return &Verification{
		Verified:  VerifyOrderSignature(in.OrderID, in.PaymentID, in.Signature, c.KeySecret),
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
	}, nil
}

// CreateOrder creates a gateway order for the plan price in paise.
func (c *RazorpayClient) CreateOrder(ctx context.Context, userID uint, plan Plan) (*RazorpayOrder, error) {
	if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.KeySecret) == "" {
		return nil, fmt.Errorf("%w: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set", ErrProviderUnconfigured)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	reqBody := map[string]any{
		"amount":   toMinorUnits(plan.Price),
		"currency": razorpayCurrency,
		"receipt":  "rcpt_" + strconv.FormatInt(now().UnixMilli(), 10),
		"notes": map[string]string{
			"userId": strconv.FormatUint(uint64(userID), 10),
			"plan":   plan.Key,
		},
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", ErrProvider, err)
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := readProviderResponse(resp, "razorpay create order")
	if err != nil {
		return nil, err
	}
	var order RazorpayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: decode razorpay order: %v", ErrProvider, err)
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("%w: razorpay returned an order without id", ErrProvider)
	}
	return &order, nil
}
