package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/events"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/metrics/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	kind      ProviderKind
	orderID   string
	createErr error
	verified  bool
	verifyErr error

	createCalls int
}

func (f *fakeProvider) Kind() ProviderKind { return f.kind }

func (f *fakeProvider) CreatePayment(_ context.Context, _ uint, plan Plan, _ Contact) (*PaymentSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &PaymentSession{
		OrderID:  f.orderID,
		Amount:   plan.Price,
		Currency: "INR",
		Payload:  map[string]any{"order_id": f.orderID},
	}, nil
}

func (f *fakeProvider) VerifyPayment(_ context.Context, in VerificationInput) (*Verification, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &Verification{Verified: f.verified, OrderID: in.OrderID, PaymentID: in.PaymentID}, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []events.CreditUpdate
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, u events.CreditUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
	return p.err
}

// flakyRepository fails CreateTransaction with the configured error for the
// first failures calls.
type flakyRepository struct {
	Repository
	failures int
	err      error
	calls    int
}

func (r *flakyRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	return r.Repository.CreateTransaction(ctx, t)
}

func newTestService(t *testing.T, providers ...Provider) (*Service, Repository, *recordingPublisher) {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	pub := &recordingPublisher{}
	svc := NewService(repo, NewProviders(providers...), WithPublisher(pub), WithRetryPolicy(fastRetry))
	return svc, repo, pub
}

func TestInitiatePurchase_PlanIntegrity(t *testing.T) {
	for _, tt := range []struct {
		plan    string
		price   int64
		credits int64
	}{
		{plan: PlanBasic, price: 4000, credits: 500},
		{plan: PlanPremium, price: 8000, credits: 1000},
	} {
		t.Run(tt.plan, func(t *testing.T) {
			p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD-" + tt.plan, verified: true}
			svc, repo, _ := newTestService(t, p)
			ctx := context.Background()

			session, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 9, Plan: tt.plan, Provider: ProviderRazorpay})
			require.NoError(t, err)
			assert.NotEmpty(t, session.TransactionID)

			txs, err := repo.ListTransactionsByUser(ctx, 9)
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
			assert.Equal(t, tt.price, txs[0].Amount)
			assert.Equal(t, tt.plan, txs[0].Plan)

			c, err := svc.CompletePurchase(ctx, 9, ProviderRazorpay, VerificationInput{OrderID: session.OrderID, PaymentID: "PAY"})
			require.NoError(t, err)
			assert.True(t, c.Verified)
			assert.Equal(t, tt.credits, c.Balance)
		})
	}
}

func TestInitiatePurchase_Errors(t *testing.T) {
	p := &fakeProvider{kind: ProviderStripe, orderID: "cs_1"}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: "gold", Provider: ProviderStripe})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Zero(t, p.createCalls)

	p.createErr = ErrProviderUnconfigured
	_, err = svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderStripe})
	assert.ErrorIs(t, err, ErrProviderUnconfigured)
}

func TestCompletePurchase_Idempotent(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: true}
	svc, _, pub := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)

	in := VerificationInput{OrderID: "ORD1", PaymentID: "PAY1", Signature: "sig"}
	c, err := svc.CompletePurchase(ctx, 1, ProviderRazorpay, in)
	require.NoError(t, err)
	assert.Equal(t, int64(500), c.Balance)

	_, err = svc.CompletePurchase(ctx, 1, ProviderRazorpay, in)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	bal, err := svc.CreditBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
	require.Len(t, pub.updates, 1)
	assert.Equal(t, int64(500), pub.updates[0].Balance)
	assert.Equal(t, c.Transaction.ID, pub.updates[0].TransactionID)
}

func TestCompletePurchase_UnverifiedMarksFailed(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: false}
	svc, repo, pub := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanPremium, Provider: ProviderRazorpay})
	require.NoError(t, err)

	c, err := svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD1", PaymentID: "PAY1"})
	require.NoError(t, err)
	assert.False(t, c.Verified)
	assert.Equal(t, models.TransactionStatusFailed, c.Transaction.Status)
	assert.Zero(t, c.Balance)
	assert.Empty(t, pub.updates)

	bal, err := repo.GetCreditBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestCompletePurchase_UnknownOrder(t *testing.T) {
	for _, verified := range []bool{true, false} {
		p := &fakeProvider{kind: ProviderRazorpay, verified: verified}
		svc, _, _ := newTestService(t, p)

		_, err := svc.CompletePurchase(context.Background(), 1, ProviderRazorpay, VerificationInput{OrderID: "NOPE", PaymentID: "PAY1"})
		assert.ErrorIs(t, err, ErrTransactionNotFound, "verified=%v", verified)
	}
}

func TestCompletePurchase_ForgedCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"resource_missing"}}`))
	}))
	defer srv.Close()

	svc, _, pub := newTestService(t, newTestStripeClient(srv))
	_, err := svc.CompletePurchase(context.Background(), 1, ProviderStripe, VerificationInput{SessionID: "cs_forged"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NotErrorIs(t, err, ErrProvider)
	assert.Empty(t, pub.updates)
}

func TestCompletePurchase_ProviderErrorLeavesPending(t *testing.T) {
	p := &fakeProvider{kind: ProviderStripe, orderID: "cs_1"}
	svc, repo, _ := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderStripe})
	require.NoError(t, err)

	p.verifyErr = ErrProvider
	_, err = svc.CompletePurchase(ctx, 1, ProviderStripe, VerificationInput{SessionID: "cs_1"})
	assert.ErrorIs(t, err, ErrProvider)

	txs, err := repo.ListTransactionsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
}

func TestCompletePurchase_ConcurrentCallbacksGrantOnce(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: true}
	svc, repo, _ := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD1", PaymentID: "PAY1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, notFound := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTransactionNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, notFound)

	bal, err := repo.GetCreditBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
}

func TestInitiatePurchase_RetriesTransientLedgerFailure(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1"}
	repo := &flakyRepository{Repository: NewRepository(newTestDB(t)), failures: 2, err: ErrStoreUnavailable}
	svc := NewService(repo, NewProviders(p), WithRetryPolicy(fastRetry))

	session, err := svc.InitiatePurchase(context.Background(), PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)
	assert.Equal(t, "ORD1", session.OrderID)
	assert.Equal(t, 3, repo.calls)
	assert.Equal(t, 1, p.createCalls)
}

func TestInitiatePurchase_LedgerFailureAfterProviderSuccess(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: true}
	inner := NewRepository(newTestDB(t))
	repo := &flakyRepository{Repository: inner, failures: 3, err: ErrStoreUnavailable}
	svc := NewService(repo, NewProviders(p), WithRetryPolicy(fastRetry))
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 3, repo.calls)
	assert.Equal(t, 1, p.createCalls)

	// The provider order exists but has no ledger row: verification cannot settle it.
	_, err = svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD1", PaymentID: "PAY1"})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestInitiatePurchase_PermanentLedgerFailureNotRetried(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1"}
	repo := &flakyRepository{Repository: NewRepository(newTestDB(t)), failures: 5, err: errors.New("constraint failed")}
	svc := NewService(repo, NewProviders(p), WithRetryPolicy(fastRetry))

	_, err := svc.InitiatePurchase(context.Background(), PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 1, repo.calls)
}

func TestCompletePurchase_PublishFailureDoesNotFail(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: true}
	svc, _, pub := newTestService(t, p)
	pub.err = errors.New("redis down")
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)
	c, err := svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD1", PaymentID: "PAY1"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), c.Balance)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Add(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name]++
	return nil
}

func TestService_RecordsOutcomes(t *testing.T) {
	ok := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1", verified: true}
	rec := &countingRecorder{}
	repo := NewRepository(newTestDB(t))
	svc := NewService(repo, NewProviders(ok), WithRecorder(rec), WithRetryPolicy(fastRetry))
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)
	_, err = svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD1", PaymentID: "PAY1"})
	require.NoError(t, err)

	ok.orderID = "ORD2"
	ok.verified = false
	_, err = svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)
	_, err = svc.CompletePurchase(ctx, 1, ProviderRazorpay, VerificationInput{OrderID: "ORD2", PaymentID: "PAY2"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		counter.PurchasesStarted:   2,
		counter.PurchasesSucceeded: 1,
		counter.PurchasesFailed:    1,
	}, rec.counts)
}

func TestStalePending(t *testing.T) {
	p := &fakeProvider{kind: ProviderRazorpay, orderID: "ORD1"}
	svc, _, _ := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: 1, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	txs, err := svc.StalePending(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ORD1", txs[0].OrderID)

	svc.now = time.Now
	txs, err = svc.StalePending(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// Basic plan through the order gateway: order ORD1 for 4000 INR, settled by
// a correct signature for (ORD1, PAY1), replay rejected.
func TestOrderGatewayPurchaseScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ORD1","amount":400000,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	gateway := &RazorpayClient{KeyID: "rzp_key", KeySecret: "rzp_secret", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	svc, repo, _ := newTestService(t, gateway)
	ctx := context.Background()
	const userID uint = 42

	session, err := svc.InitiatePurchase(ctx, PurchaseRequest{UserID: userID, Plan: PlanBasic, Provider: ProviderRazorpay})
	require.NoError(t, err)
	assert.Equal(t, "ORD1", session.OrderID)

	txs, err := repo.ListTransactionsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ORD1", txs[0].OrderID)
	assert.Equal(t, int64(4000), txs[0].Amount)
	assert.Equal(t, "INR", txs[0].Currency)
	assert.Equal(t, models.TransactionStatusPending, txs[0].Status)

	in := VerificationInput{OrderID: "ORD1", PaymentID: "PAY1", Signature: OrderSignature("ORD1", "PAY1", "rzp_secret")}
	c, err := svc.CompletePurchase(ctx, userID, ProviderRazorpay, in)
	require.NoError(t, err)
	assert.True(t, c.Verified)
	assert.Equal(t, models.TransactionStatusSuccess, c.Transaction.Status)
	assert.Equal(t, int64(500), c.Balance)

	_, err = svc.CompletePurchase(ctx, userID, ProviderRazorpay, in)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	bal, err := svc.CreditBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
}
