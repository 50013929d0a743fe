package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skynestoffc/orderku/internal/models"
	"github.com/skynestoffc/orderku/internal/qris"
	"github.com/skynestoffc/orderku/internal/repository"
)

var (
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrSuffixExhausted = errors.New("no unique suffix available for user")
	ErrFeedUnavailable = errors.New("mutation history unavailable")
)

// PaymentStatus is the lifecycle state reported for a transaction.
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusPaid     PaymentStatus = "paid"
	StatusExpired  PaymentStatus = "expired"
	StatusNotFound PaymentStatus = "not_found"
)

const (
	// Suffix bands: the low band is preferred and recycled quickly,
	// the high band is overflow capacity. Keep the split.
	suffixLowBandMax = 500
	suffixMax        = 999

	// Lost allocation races are retried with a fresh suffix.
	maxAllocateAttempts = 3

	mutationStatusIn = "IN"
)

type GenerateResult struct {
	TransactionID string `json:"transaction_id"`
	BaseAmount    int64  `json:"base_amount"`
	UniqueSuffix  int    `json:"unique_suffix"`
	FinalAmount   int64  `json:"final_amount"`
	QRISString    string `json:"qris_string"`
	ExpiresAt     int64  `json:"expires_at"`
}

type CheckResult struct {
	Status      PaymentStatus `json:"status"`
	FinalAmount int64         `json:"final_amount,omitempty"`
	PaidAt      int64         `json:"paid_at,omitempty"`
	ExpiresIn   int64         `json:"expires_in,omitempty"`
}

type PaymentService interface {
	GeneratePayment(ctx context.Context, username, staticQRIS string, amount int64) (*GenerateResult, error)
	CheckPayment(ctx context.Context, username, token, transactionID string) (*CheckResult, error)
}

type PaymentConfig struct {
	PendingTTL time.Duration // how long a generated QRIS stays payable
	PaidTTL    time.Duration // retention of paid records for idempotent re-checks
}

type paymentService struct {
	pendingRepo repository.PendingTransactionRepository
	paidRepo    repository.PaidTransactionRepository
	okClient    OrderKuotaClient
	idGen       IDGenerator
	pendingTTL  time.Duration
	paidTTL     time.Duration
}

func NewPaymentService(
	pendingRepo repository.PendingTransactionRepository,
	paidRepo repository.PaidTransactionRepository,
	okClient OrderKuotaClient,
	idGen IDGenerator,
	config PaymentConfig,
) PaymentService {
	if config.PendingTTL <= 0 {
		config.PendingTTL = 10 * time.Minute
	}
	if config.PaidTTL <= 0 {
		config.PaidTTL = time.Hour
	}
	return &paymentService{
		pendingRepo: pendingRepo,
		paidRepo:    paidRepo,
		okClient:    okClient,
		idGen:       idGen,
		pendingTTL:  config.PendingTTL,
		paidTTL:     config.PaidTTL,
	}
}

// GeneratePayment turns a static QRIS into a dynamic one for
// amount+suffix, where the suffix makes the final amount unique among
// the user's open transactions. The unique index on (username, suffix)
// is authoritative; losing that race retries with a fresh suffix.
func (s *paymentService) GeneratePayment(ctx context.Context, username, staticQRIS string, amount int64) (*GenerateResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		suffix, err := s.allocateSuffix(ctx, username)
		if err != nil {
			return nil, err
		}

		finalAmount := amount + int64(suffix)
		qrisString, err := qris.MakeDynamic(staticQRIS, finalAmount)
		if err != nil {
			return nil, err
		}

		now := time.Now().Unix()
		tx := &models.PendingTransaction{
			ID:           s.idGen.GenerateUUID(),
			Username:     username,
			BaseAmount:   amount,
			UniqueSuffix: suffix,
			FinalAmount:  finalAmount,
			QRISString:   qrisString,
			CreatedAt:    now,
			ExpiresAt:    now + int64(s.pendingTTL.Seconds()),
		}

		err = s.pendingRepo.Create(ctx, tx)
		if errors.Is(err, repository.ErrConflict) {
			// Concurrent generate took the suffix first.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store pending transaction: %w", err)
		}

		return &GenerateResult{
			TransactionID: tx.ID,
			BaseAmount:    tx.BaseAmount,
			UniqueSuffix:  tx.UniqueSuffix,
			FinalAmount:   tx.FinalAmount,
			QRISString:    tx.QRISString,
			ExpiresAt:     tx.ExpiresAt,
		}, nil
	}

	return nil, fmt.Errorf("suffix allocation kept losing races: %w", lastErr)
}

// CheckPayment reports the transaction's state, matching the pending
// final amount against the freshly fetched mutation history when the
// transaction is still open.
func (s *paymentService) CheckPayment(ctx context.Context, username, token, transactionID string) (*CheckResult, error) {
	paid, err := s.paidRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if paid != nil {
		return &CheckResult{
			Status:      StatusPaid,
			FinalAmount: paid.FinalAmount,
			PaidAt:      paid.PaidAt,
		}, nil
	}

	pending, err := s.pendingRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return &CheckResult{Status: StatusNotFound}, nil
	}

	now := time.Now().Unix()
	if now > pending.ExpiresAt {
		if err := s.pendingRepo.Delete(ctx, transactionID); err != nil {
			return nil, err
		}
		return &CheckResult{Status: StatusExpired}, nil
	}

	mutations, err := s.okClient.GetQRISHistory(ctx, username, token)
	if err != nil {
		// A dead feed means "don't know", never "not paid yet".
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	for _, m := range mutations {
		if m.Status != mutationStatusIn {
			continue
		}
		if parseRupiah(m.Kredit) != pending.FinalAmount {
			continue
		}

		// Delete before insert: a crash in between leaves the
		// transaction regenerable instead of double-paid.
		if err := s.pendingRepo.Delete(ctx, transactionID); err != nil {
			return nil, err
		}

		paidTx := &models.PaidTransaction{
			ID:          transactionID,
			Username:    pending.Username,
			FinalAmount: pending.FinalAmount,
			PaidAt:      now,
			ExpiresAt:   now + int64(s.paidTTL.Seconds()),
		}
		err = s.paidRepo.Create(ctx, paidTx)
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent check already recorded the payment.
			existing, findErr := s.paidRepo.FindByID(ctx, transactionID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return &CheckResult{
					Status:      StatusPaid,
					FinalAmount: existing.FinalAmount,
					PaidAt:      existing.PaidAt,
				}, nil
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		return &CheckResult{
			Status:      StatusPaid,
			FinalAmount: paidTx.FinalAmount,
			PaidAt:      paidTx.PaidAt,
		}, nil
	}

	return &CheckResult{
		Status:      StatusPending,
		FinalAmount: pending.FinalAmount,
		ExpiresIn:   pending.ExpiresAt - now,
	}, nil
}

// allocateSuffix finds the lowest unused suffix for the user, scanning
// the 1..500 band before the 501..999 overflow band.
func (s *paymentService) allocateSuffix(ctx context.Context, username string) (int, error) {
	used, err := s.pendingRepo.UsedSuffixes(ctx, username)
	if err != nil {
		return 0, err
	}

	for i := 1; i <= suffixLowBandMax; i++ {
		if !used[i] {
			return i, nil
		}
	}
	for i := suffixLowBandMax + 1; i <= suffixMax; i++ {
		if !used[i] {
			return i, nil
		}
	}

	return 0, ErrSuffixExhausted
}

func (s *paymentService) purgeExpired(ctx context.Context) error {
	now := time.Now().Unix()
	if err := s.pendingRepo.PurgeExpired(ctx, now); err != nil {
		return err
	}
	return s.paidRepo.PurgeExpired(ctx, now)
}

// parseRupiah parses a rupiah amount string with "." as thousands
// separator ("1.001" -> 1001). Unparseable values never match.
func parseRupiah(s string) int64 {
	cleaned := strings.ReplaceAll(s, ".", "")
	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
