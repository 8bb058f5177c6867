package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/events"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// CreditPublisher is notified after a purchase granted credits.
type CreditPublisher interface {
	Publish(ctx context.Context, update events.CreditUpdate) error
}

// OutcomeRecorder counts purchase outcomes.
type OutcomeRecorder interface {
	Add(ctx context.Context, name string) error
}

// Service reconciles purchases between the payment providers and the
// transaction and credit ledgers. It is the only writer of transaction
// status and credit balances.
type Service struct {
	repo      Repository
	providers Providers
	publisher CreditPublisher
	recorder  OutcomeRecorder
	retry     RetryPolicy
	now       func() time.Time
}

type Option func(*Service)

// WithPublisher sets the credit update publisher.
func WithPublisher(p CreditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r OutcomeRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// NewService creates a billing service from an injected repository and
// provider registry.
func NewService(repo Repository, providers Providers, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		providers: providers,
		retry:     DefaultRetryPolicy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, providers Providers, opts ...Option) *Service {
	return NewService(NewRepository(db), providers, opts...)
}

// InitiatePurchase creates the provider payment and records a PENDING
// transaction for it. If the provider call succeeds but the ledger write does
// not, ErrPersistence is returned and the provider session is orphaned.
func (s *Service) InitiatePurchase(ctx context.Context, req PurchaseRequest) (*PaymentSession, error) {
	if req.UserID == 0 {
		return nil, errors.New("user_id is required")
	}
	plan, err := LookupPlan(req.Plan)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	session, err := provider.CreatePayment(ctx, req.UserID, plan, req.Contact)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:   req.UserID,
		Amount:   session.Amount,
		Currency: session.Currency,
		OrderID:  session.OrderID,
		Provider: string(provider.Kind()),
		Plan:     plan.Key,
		Status:   models.TransactionStatusPending,
		IsAnnual: req.IsAnnual,
	}
	if session.PaymentID != "" {
		pid := session.PaymentID
		txn.PaymentID = &pid
	}

	_, err = withRetry(ctx, s.retry, "create transaction", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.CreateTransaction(ctx, txn)
	})
	if err != nil {
		log.Errorf("[Billing] provider=%s order=%s user=%d: payment created but ledger write failed: %v",
			provider.Kind(), session.OrderID, req.UserID, err)
		s.record(ctx, counter.LedgerWriteFailed)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	session.TransactionID = txn.ID
	s.record(ctx, counter.PurchasesStarted)
	log.Infof("[Billing] Pending transaction %s created: user=%d provider=%s plan=%s order=%s",
		txn.ID, req.UserID, provider.Kind(), plan.Key, session.OrderID)
	return session, nil
}

// CompletePurchase verifies a payment with its provider and settles the
// matching PENDING transaction. SUCCESS grants the plan's credits, FAILED
// grants nothing. Without a PENDING row for (order, user) the call fails with
// ErrTransactionNotFound whatever the verification said, which also rejects
// replays of settled orders.
func (s *Service) CompletePurchase(ctx context.Context, userID uint, kind ProviderKind, in VerificationInput) (*Completion, error) {
	provider, err := s.providers.Get(kind)
	if err != nil {
		return nil, err
	}

	verification, err := provider.VerifyPayment(ctx, in)
	if err != nil {
		return nil, err
	}

	orderID := strings.TrimSpace(verification.OrderID)
	if orderID == "" {
		orderID = strings.TrimSpace(firstNonEmpty(in.OrderID, in.SessionID))
	}
	if orderID == "" {
		return nil, ErrTransactionNotFound
	}

	status := models.TransactionStatusFailed
	if verification.Verified {
		status = models.TransactionStatusSuccess
	}
	settleIn := SettleInput{
		UserID:    userID,
		OrderID:   orderID,
		PaymentID: firstNonEmpty(verification.PaymentID, in.PaymentID),
		Status:    status,
		Credits:   creditsForPlan,
	}

	type settleResult struct {
		txn    *models.Transaction
		credit *models.UserCredit
	}
	res, err := withRetry(ctx, s.retry, "settle transaction", func(ctx context.Context) (settleResult, error) {
		txn, credit, err := s.repo.SettlePending(ctx, settleIn)
		return settleResult{txn: txn, credit: credit}, err
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			log.Warnf("[Billing] No pending transaction for order=%s user=%d provider=%s", orderID, userID, kind)
			return nil, err
		}
		if errors.Is(err, ErrInvalidPlan) {
			return nil, err
		}
		log.Errorf("[Billing] Failed to settle order=%s user=%d: %v", orderID, userID, err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	out := &Completion{Verified: verification.Verified, Transaction: *res.txn}
	if res.credit != nil {
		out.Balance = res.credit.Amount
		log.Infof("[Billing] Transaction %s settled SUCCESS: user=%d balance=%d", res.txn.ID, userID, out.Balance)
		s.record(ctx, counter.PurchasesSucceeded)
		s.publishCredit(ctx, userID, out.Balance, res.txn.ID)
		return out, nil
	}

	log.Warnf("[Billing] Transaction %s settled FAILED: user=%d provider=%s", res.txn.ID, userID, kind)
	s.record(ctx, counter.PurchasesFailed)
	if bal, err := s.repo.GetCreditBalance(ctx, userID); err == nil {
		out.Balance = bal
	} else {
		log.Warnf("[Billing] Failed to read balance after failed settlement for user=%d: %v", userID, err)
	}
	return out, nil
}

// CreditBalance returns the user's credit balance, 0 when nothing was granted yet.
func (s *Service) CreditBalance(ctx context.Context, userID uint) (int64, error) {
	return withRetry(ctx, s.retry, "read balance", func(ctx context.Context) (int64, error) {
		return s.repo.GetCreditBalance(ctx, userID)
	})
}

// Transactions lists the user's transactions, newest first.
func (s *Service) Transactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return withRetry(ctx, s.retry, "list transactions", func(ctx context.Context) ([]models.Transaction, error) {
		return s.repo.ListTransactionsByUser(ctx, userID)
	})
}

// StalePending lists PENDING transactions older than age. These are payments
// that were started but never verified.
func (s *Service) StalePending(ctx context.Context, age time.Duration) ([]models.Transaction, error) {
	if age < 0 {
		age = 0
	}
	return s.repo.ListStalePending(ctx, s.now().Add(-age))
}

func (s *Service) record(ctx context.Context, name string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Add(ctx, name); err != nil {
		log.Warnf("[Billing] Failed to record %s: %v", name, err)
	}
}

func (s *Service) publishCredit(ctx context.Context, userID uint, balance int64, transactionID string) {
	if s.publisher == nil {
		return
	}
	update := events.CreditUpdate{
		UserID:        userID,
		Balance:       balance,
		TransactionID: transactionID,
		At:            s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, update); err != nil {
		log.Warnf("[Billing] Failed to publish credit update for user=%d: %v", userID, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
