package billing

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the ledger operations used by the billing service.
type Repository interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	SettlePending(ctx context.Context, in SettleInput) (*models.Transaction, *models.UserCredit, error)
	GetCreditBalance(ctx context.Context, userID uint) (int64, error)
	ListTransactionsByUser(ctx context.Context, userID uint) ([]models.Transaction, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Transaction, error)
}

// SettleInput moves the PENDING transaction of (OrderID, UserID) to Status.
type SettleInput struct {
	UserID    uint
	OrderID   string
	PaymentID string
	Status    string
	// Credits resolves the grant for the transaction's plan. Only consulted
	// for SUCCESS.
	Credits func(plan string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return classifyStoreError(r.db.WithContext(ctx).Create(t).Error)
}

// SettlePending runs lookup, conditional status update and credit increment
// in one database transaction. The update only matches while the row is
// still PENDING, so concurrent settlements of the same order grant once.
func (r *gormRepository) SettlePending(ctx context.Context, in SettleInput) (*models.Transaction, *models.UserCredit, error) {
	if in.Status != models.TransactionStatusSuccess && in.Status != models.TransactionStatusFailed {
		return nil, nil, fmt.Errorf("invalid settlement status %q", in.Status)
	}

	var settled models.Transaction
	var credit *models.UserCredit

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ? AND user_id = ? AND status = ?", in.OrderID, in.UserID, models.TransactionStatusPending).
			Order("created_at ASC").
			First(&settled).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		var grant int64
		if in.Status == models.TransactionStatusSuccess {
			if in.Credits == nil {
				return errors.New("credits resolver is required for SUCCESS")
			}
			c, err := in.Credits(settled.Plan)
			if err != nil {
				return err
			}
			grant = c
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     in.Status,
			"updated_at": now,
		}
		if in.PaymentID != "" {
			updates["payment_id"] = in.PaymentID
		}
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", settled.ID, models.TransactionStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrTransactionNotFound
		}
		settled.Status = in.Status
		settled.UpdatedAt = now
		if in.PaymentID != "" {
			pid := in.PaymentID
			settled.PaymentID = &pid
		}

		if in.Status != models.TransactionStatusSuccess {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"amount":     gorm.Expr("amount + ?", grant),
				"updated_at": now,
			}),
		}).Create(&models.UserCredit{UserID: in.UserID, Amount: grant}).Error; err != nil {
			return err
		}

		var uc models.UserCredit
		if err := tx.Where("user_id = ?", in.UserID).First(&uc).Error; err != nil {
			return err
		}
		credit = &uc
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, nil, err
		}
		return nil, nil, classifyStoreError(err)
	}
	return &settled, credit, nil
}

func (r *gormRepository) GetCreditBalance(ctx context.Context, userID uint) (int64, error) {
	var uc models.UserCredit
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&uc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, classifyStoreError(err)
	}
	return uc.Amount, nil
}

func (r *gormRepository) ListTransactionsByUser(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error
	return txs, classifyStoreError(err)
}

func (r *gormRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.TransactionStatusPending, olderThan).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, classifyStoreError(err)
}

// classifyStoreError marks connectivity failures with ErrStoreUnavailable so
// the retry policy can recognize them. Other errors are returned unchanged.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if isConnectivityError(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

func isConnectivityError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
