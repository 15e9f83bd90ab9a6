package store

import (
	"context"
	"errors"
	"time"

	"github.com/fdygg/growledger/internal/model"
)

// Sentinel errors shared by all store implementations. Services translate
// these into domain errors; stores never shape HTTP responses.
var (
	ErrNotFound          = errors.New("store: not found")
	ErrConflict          = errors.New("store: already exists")
	ErrInsufficientFunds = errors.New("store: insufficient funds")
	ErrAlreadyReversed   = errors.New("store: transaction already reversed")
	ErrNotReversible     = errors.New("store: transaction is not reversible")
)

// CredentialStore defines operations for principal credential management.
// Every mutation is durably committed before the call returns.
type CredentialStore interface {
	CreatePrincipal(ctx context.Context, p *model.Principal) error
	GetPrincipal(ctx context.Context, username string) (*model.Principal, error)
	TouchLastUsed(ctx context.Context, username string, at time.Time) error
	ListPrincipals(ctx context.Context, limit, offset int) ([]*model.Principal, int, error)
	CountPrincipals(ctx context.Context) (int, error)
}

// Adjustment describes one balance mutation. Delta is signed: positive
// credits the account, negative debits it.
type Adjustment struct {
	GrowID     string
	Delta      int64
	Type       model.TransactionType
	Reason     string
	Metadata   map[string]string
	ReversesID *int64
}

// LedgerStore defines operations for account balances and the transaction log.
//
// Adjust performs the read-modify-write for a single growid atomically: two
// concurrent adjustments on the same account can never both commit against the
// same old balance. It creates the account on first use and returns
// ErrInsufficientFunds without writing anything when the delta would drive the
// balance negative.
//
// Reverse applies the opposite delta of a committed transaction, records it as
// a new transaction referencing the original, and flips the original's status
// to reversed, all in one atomic step.
type LedgerStore interface {
	GetAccount(ctx context.Context, growid string) (*model.Account, error)
	CountAccounts(ctx context.Context) (int, error)
	Adjust(ctx context.Context, adj Adjustment) (*model.Account, *model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filters TransactionFilters) ([]*model.Transaction, int, error)
	Reverse(ctx context.Context, id int64, reason string) (*model.Transaction, error)
}

// Store combines CredentialStore and LedgerStore.
type Store interface {
	CredentialStore
	LedgerStore
}

// TransactionFilters narrows ListTransactions. Pagination is by Limit/Offset;
// results are ordered by ascending id so concurrent appends never shift rows
// already returned.
type TransactionFilters struct {
	GrowID    string
	Type      *model.TransactionType
	Status    *model.TransactionStatus
	From      *time.Time
	To        *time.Time
	MinAmount *int64
	MaxAmount *int64
	Limit     int
	Offset    int
}
