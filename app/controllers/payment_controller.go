package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/events"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/usercontext"
)

const (
	paymentRequestTimeout = 20 * time.Second
	sseHeartbeatInterval  = 25 * time.Second
	sseMaxStreamDuration  = 30 * time.Minute
)

// PaymentController handles purchase, verification and credit endpoints.
type PaymentController struct {
	billing *billing.Service
	bus     events.Bus

	heartbeat time.Duration
	maxStream time.Duration
}

// NewPaymentController creates a payment controller. bus may be nil, in which
// case the credit event stream is unavailable.
func NewPaymentController(svc *billing.Service, bus events.Bus) *PaymentController {
	return &PaymentController{
		billing:   svc,
		bus:       bus,
		heartbeat: sseHeartbeatInterval,
		maxStream: sseMaxStreamDuration,
	}
}

type createPaymentRequest struct {
	Plan     string `json:"plan" validate:"required"`
	Method   string `json:"method" validate:"required"`
	IsAnnual bool   `json:"isAnnual"`
}

type verifyCardPaymentRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type verifyOrderPaymentRequest struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type transactionResponse struct {
	models.Transaction
	DisplayAmount string `json:"displayAmount"`
}

// HandleCreatePayment starts a purchase and returns the provider payload the
// client needs to complete the payment.
func (pc *PaymentController) HandleCreatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req createPaymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", validationMessage(err))
	}
	kind, err := billing.ParseProviderKind(req.Method)
	if err != nil {
		return billingError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), paymentRequestTimeout)
	defer cancel()

	session, err := pc.billing.InitiatePurchase(ctx, billing.PurchaseRequest{
		UserID:   userCtx.UserID,
		Plan:     req.Plan,
		Provider: kind,
		Contact:  billing.Contact{Name: userCtx.Name, Email: userCtx.Email},
		IsAnnual: req.IsAnnual,
	})
	if err != nil {
		log.Warnf("[Billing] create payment failed for user=%d method=%s plan=%s: %v", userCtx.UserID, kind, req.Plan, err)
		return billingError(c, err)
	}

	payload := make(fiber.Map, len(session.Payload)+1)
	for k, v := range session.Payload {
		payload[k] = v
	}
	payload["transactionId"] = session.TransactionID
	return c.Status(fiber.StatusOK).JSON(payload)
}

// HandleVerifyCardPayment settles a card checkout session.
func (pc *PaymentController) HandleVerifyCardPayment(c *fiber.Ctx) error {
	var req verifyCardPaymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", validationMessage(err))
	}
	return pc.complete(c, billing.ProviderStripe, billing.VerificationInput{SessionID: req.SessionID})
}

// HandleVerifyOrderPayment settles an order-gateway payment by signature.
func (pc *PaymentController) HandleVerifyOrderPayment(c *fiber.Ctx) error {
	var req verifyOrderPaymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", validationMessage(err))
	}
	return pc.complete(c, billing.ProviderRazorpay, billing.VerificationInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
}

func (pc *PaymentController) complete(c *fiber.Ctx, kind billing.ProviderKind, in billing.VerificationInput) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), paymentRequestTimeout)
	defer cancel()

	result, err := pc.billing.CompletePurchase(ctx, userCtx.UserID, kind, in)
	if err != nil {
		return billingError(c, err)
	}
	if !result.Verified {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Payment verification failed",
			"credits": result.Balance,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":       true,
		"message":       "Payment verified successfully",
		"credits":       result.Balance,
		"transactionId": result.Transaction.ID,
	})
}

// HandleListTransactions returns the caller's transactions, newest first.
func (pc *PaymentController) HandleListTransactions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	txs, err := pc.billing.Transactions(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Errorf("[Billing] list transactions for user=%d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load transactions")
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse{Transaction: t, DisplayAmount: billing.DisplayAmount(t.Amount, t.Currency)})
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// HandleGetCredits returns the caller's credit balance.
func (pc *PaymentController) HandleGetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	balance, err := pc.billing.CreditBalance(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Errorf("[Billing] read credits for user=%d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load credits")
	}
	return c.JSON(fiber.Map{"credits": balance})
}

// HandleCreditEvents streams credit updates for the caller as server-sent
// events. The current balance is sent first; the stream ends after
// maxStream and clients are expected to reconnect.
func (pc *PaymentController) HandleCreditEvents(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}
	if pc.bus == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "events_unavailable", "Credit events are not available")
	}

	balance, err := pc.billing.CreditBalance(c.UserContext(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load credits")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pc.maxStream)
	updates, unsubscribe, err := pc.bus.Subscribe(ctx, userCtx.UserID)
	if err != nil {
		cancel()
		log.Errorf("[Events] subscribe for user=%d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "events_unavailable", "Credit events are not available")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	userID := userCtx.UserID
	heartbeat := pc.heartbeat
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		initial := events.CreditUpdate{UserID: userID, Balance: balance, At: time.Now().UTC()}
		if err := writeCreditEvent(w, initial); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				if err := writeCreditEvent(w, u); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeCreditEvent(w *bufio.Writer, u events.CreditUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: credits\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

var paymentController *PaymentController

// InitializePaymentController initializes the global payment controller
func InitializePaymentController(svc *billing.Service, bus events.Bus) {
	paymentController = NewPaymentController(svc, bus)
}

// GetPaymentController returns the global payment controller instance
func GetPaymentController() *PaymentController {
	if paymentController == nil {
		panic("Payment controller not initialized. Call InitializePaymentController first.")
	}
	return paymentController
}
