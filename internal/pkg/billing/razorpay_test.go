package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRazorpayCreatePayment(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_key" || pass != "rzp_secret" {
			t.Fatalf("basic auth = %q/%q/%v", user, pass, ok)
		}
		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Amount != 400000 || body.Currency != "INR" || body.Receipt != "rcpt_1700000000123" {
			t.Fatalf("unexpected order body %+v", body)
		}
		_, _ = w.Write([]byte(`{"id":"order_1","amount":400000,"currency":"INR","receipt":"rcpt_1700000000123","status":"created"}`))
	}))
	defer srv.Close()

	c := &RazorpayClient{
		KeyID:      "rzp_key",
		KeySecret:  "rzp_secret",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return fixed },
	}
	plan, _ := LookupPlan(PlanBasic)
	session, err := c.CreatePayment(context.Background(), 3, plan, Contact{Name: "Jane Doe", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if session.OrderID != "order_1" || session.Amount != 4000 || session.Currency != "INR" {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.Payload["key"] != "rzp_key" || session.Payload["order_id"] != "order_1" {
		t.Fatalf("unexpected payload %+v", session.Payload)
	}
	if session.Payload["description"] != "BASIC Plan - 500 Credits" {
		t.Fatalf("description = %v", session.Payload["description"])
	}
	if session.Payload["amount"] != int64(400000) {
		t.Fatalf("payload amount = %v", session.Payload["amount"])
	}
}

func TestRazorpayVerifyPayment(t *testing.T) {
	c := &RazorpayClient{KeyID: "rzp_key", KeySecret: "rzp_secret"}
	sig := OrderSignature("order_1", "pay_1", "rzp_secret")

	v, err := c.VerifyPayment(context.Background(), VerificationInput{OrderID: "order_1", PaymentID: "pay_1", Signature: sig})
	if err != nil || !v.Verified {
		t.Fatalf("expected verified, got %+v, %v", v, err)
	}

	v, err = c.VerifyPayment(context.Background(), VerificationInput{OrderID: "order_1", PaymentID: "pay_2", Signature: sig})
	if err != nil || v.Verified {
		t.Fatalf("expected unverified, got %+v, %v", v, err)
	}
}

func TestRazorpayUnconfigured(t *testing.T) {
	c := &RazorpayClient{}
	plan, _ := LookupPlan(PlanBasic)
	if _, err := c.CreatePayment(context.Background(), 1, plan, Contact{}); !errors.Is(err, ErrProviderUnconfigured) {
		t.Fatalf("CreatePayment error = %v", err)
	}
	if _, err := c.VerifyPayment(context.Background(), VerificationInput{}); !errors.Is(err, ErrProviderUnconfigured) {
		t.Fatalf("VerifyPayment error = %v", err)
	}
}

func TestProvidersGet(t *testing.T) {
	p := NewProviders(&StripeClient{}, &RazorpayClient{})
	if a, err := p.Get(ProviderRazorpay); err != nil || a.Kind() != ProviderRazorpay {
		t.Fatalf("Get(razorpay) = %v, %v", a, err)
	}
	if _, err := p.Get("paypal"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Get(paypal) error = %v", err)
	}
}
