package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/store"
	"github.com/fdygg/growledger/internal/validation"
)

// Direction of a balance adjustment.
type Direction string

const (
	DirectionAdd      Direction = "add"
	DirectionSubtract Direction = "subtract"
)

// LedgerService handles account balances and the transaction log.
type LedgerService struct {
	store store.LedgerStore
}

func NewLedgerService(s store.LedgerStore) *LedgerService {
	return &LedgerService{store: s}
}

// GetBalance returns the balance snapshot for growid. Accounts that have
// never been adjusted read as zero; the row appears on first adjustment.
func (s *LedgerService) GetBalance(ctx context.Context, growid string) (*model.Account, error) {
	if err := validation.GrowID(growid); err != nil {
		return nil, NewValidation(err.Error())
	}

	acct, err := s.store.GetAccount(ctx, growid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &model.Account{GrowID: growid}, nil
		}
		log.Error().Err(err).Str("growid", growid).Msg("failed to get account")
		return nil, NewInternal("Failed to get balance")
	}
	return acct, nil
}

// AdjustInput contains the parameters for one balance adjustment.
type AdjustInput struct {
	GrowID    string
	Amount    int64
	Direction Direction
	Reason    string
	Metadata  map[string]string
}

// AdjustBalance applies a single adjustment atomically. Failed validation
// never writes a transaction; only applied, committed changes do.
func (s *LedgerService) AdjustBalance(ctx context.Context, input AdjustInput) (*model.Account, *model.Transaction, error) {
	if err := validation.GrowID(input.GrowID); err != nil {
		return nil, nil, NewValidation(err.Error())
	}
	if input.Amount <= 0 {
		return nil, nil, NewValidation("amount must be a positive integer")
	}

	var delta int64
	var txType model.TransactionType
	switch input.Direction {
	case DirectionAdd:
		delta = input.Amount
		txType = classifyCredit(input.Reason)
	case DirectionSubtract:
		delta = -input.Amount
		txType = classifyDebit(input.Reason)
	default:
		return nil, nil, NewValidation("transaction_type must be 'add' or 'subtract'")
	}

	acct, txn, err := s.store.Adjust(ctx, store.Adjustment{
		GrowID:   input.GrowID,
		Delta:    delta,
		Type:     txType,
		Reason:   input.Reason,
		Metadata: input.Metadata,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return nil, nil, NewInsufficientFunds("Balance cannot go negative")
		}
		log.Error().Err(err).Str("growid", input.GrowID).Msg("failed to adjust balance")
		return nil, nil, NewInternal("Failed to adjust balance")
	}

	log.Info().
		Str("growid", input.GrowID).
		Int64("amount", input.Amount).
		Str("type", string(txn.Type)).
		Int64("old_balance", txn.OldBalance).
		Int64("new_balance", txn.NewBalance).
		Msg("balance adjusted")

	return acct, txn, nil
}

// classifyCredit maps credits whose reason names a donation to the donation
// type, mirroring the shop's donation flow; everything else is a plain add.
func classifyCredit(reason string) model.TransactionType {
	if strings.Contains(strings.ToLower(reason), "donation") {
		return model.TxTypeDonation
	}
	return model.TxTypeAdd
}

func classifyDebit(reason string) model.TransactionType {
	if strings.Contains(strings.ToLower(reason), "purchase") {
		return model.TxTypePurchase
	}
	return model.TxTypeSubtract
}

// QueryInput contains transaction log filters and pagination. Type and
// Status are free strings from the caller and validated here.
type QueryInput struct {
	GrowID    string
	Type      string
	Status    string
	From      *time.Time
	To        *time.Time
	MinAmount *int64
	MaxAmount *int64
	Limit     int
	Offset    int
}

// QueryTransactions returns a filtered, paginated page of the log with the
// total count of matching rows.
func (s *LedgerService) QueryTransactions(ctx context.Context, input QueryInput) ([]*model.Transaction, int, error) {
	filters, err := buildFilters(input)
	if err != nil {
		return nil, 0, err
	}

	txns, total, err := s.store.ListTransactions(ctx, filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list transactions")
		return nil, 0, NewInternal("Failed to query transactions")
	}
	return txns, total, nil
}

// buildFilters validates the filter at construction time: inverted date or
// amount ranges are rejected, never silently matched as empty.
func buildFilters(input QueryInput) (store.TransactionFilters, error) {
	f := store.TransactionFilters{
		GrowID: input.GrowID,
		From:   input.From,
		To:     input.To,
		Limit:  input.Limit,
		Offset: input.Offset,
	}

	if f.Limit < 1 || f.Limit > 100 {
		return f, NewValidation("limit must be between 1 and 100")
	}
	if f.Offset < 0 {
		return f, NewValidation("offset must not be negative")
	}

	if input.Type != "" {
		t := model.TransactionType(input.Type)
		if !model.ValidTransactionType(t) {
			return f, NewValidation("unknown transaction type")
		}
		f.Type = &t
	}
	if input.Status != "" {
		status := model.TransactionStatus(input.Status)
		if !model.ValidTransactionStatus(status) {
			return f, NewValidation("unknown transaction status")
		}
		f.Status = &status
	}

	if input.From != nil && input.To != nil && input.To.Before(*input.From) {
		return f, NewValidation("end_date must not be before start_date")
	}

	if input.MinAmount != nil {
		if *input.MinAmount < 0 {
			return f, NewValidation("min_amount must not be negative")
		}
		f.MinAmount = input.MinAmount
	}
	if input.MaxAmount != nil {
		if *input.MaxAmount < 0 {
			return f, NewValidation("max_amount must not be negative")
		}
		if input.MinAmount != nil && *input.MaxAmount < *input.MinAmount {
			return f, NewValidation("max_amount must not be below min_amount")
		}
		f.MaxAmount = input.MaxAmount
	}

	return f, nil
}

// Reverse creates the opposite-signed transaction for a committed
// transaction and marks the original reversed.
func (s *LedgerService) Reverse(ctx context.Context, id int64, reason string) (*model.Transaction, error) {
	txn, err := s.store.Reverse(ctx, id, reason)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, NewNotFound("Transaction not found")
		case errors.Is(err, store.ErrAlreadyReversed):
			return nil, NewConflict("Transaction has already been reversed")
		case errors.Is(err, store.ErrNotReversible):
			return nil, NewConflict("Only committed transactions can be reversed")
		case errors.Is(err, store.ErrInsufficientFunds):
			return nil, NewInsufficientFunds("Reversal would drive the balance negative")
		}
		log.Error().Err(err).Int64("transaction_id", id).Msg("failed to reverse transaction")
		return nil, NewInternal("Failed to reverse transaction")
	}

	log.Info().
		Int64("transaction_id", id).
		Int64("reversal_id", txn.ID).
		Str("growid", txn.GrowID).
		Msg("transaction reversed")

	return txn, nil
}
