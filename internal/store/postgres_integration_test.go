//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/growledger/internal/model"
)

func TestPostgresCredentialLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	principal := &model.Principal{
		Username:        "integration_user",
		APIKey:          fmt.Sprintf("integration_user_%s", uuid.NewString()[:8]),
		APISecret:       fmt.Sprintf("sk_integration_user_%s", uuid.NewString()),
		SecretPrefix:    "sk_integrati...",
		RateLimitMax:    120,
		RateLimitWindow: 300,
	}

	if err := pg.CreatePrincipal(ctx, principal); err != nil {
		t.Fatalf("create principal: %v", err)
	}
	if principal.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be populated")
	}

	loaded, err := pg.GetPrincipal(ctx, principal.Username)
	if err != nil {
		t.Fatalf("get principal: %v", err)
	}
	if loaded.APIKey != principal.APIKey || loaded.APISecret != principal.APISecret {
		t.Fatalf("unexpected principal from lookup: %+v", loaded)
	}
	if loaded.LastUsed != nil {
		t.Fatal("expected last_used to start unset")
	}

	dup := *principal
	if err := pg.CreatePrincipal(ctx, &dup); err != ErrConflict {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	used := time.Now().UTC().Truncate(time.Millisecond)
	if err := pg.TouchLastUsed(ctx, principal.Username, used); err != nil {
		t.Fatalf("touch last used: %v", err)
	}
	touched, err := pg.GetPrincipal(ctx, principal.Username)
	if err != nil {
		t.Fatalf("get touched principal: %v", err)
	}
	if touched.LastUsed == nil || !touched.LastUsed.Equal(used) {
		t.Fatalf("unexpected last_used: %v", touched.LastUsed)
	}

	principals, total, err := pg.ListPrincipals(ctx, 20, 0)
	if err != nil {
		t.Fatalf("list principals: %v", err)
	}
	if total != 1 || len(principals) != 1 || principals[0].Username != principal.Username {
		t.Fatalf("unexpected principal list: total=%d %#v", total, principals)
	}

	if _, err := pg.GetPrincipal(ctx, "missing_user"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresLedgerIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	acct, credit, err := pg.Adjust(ctx, Adjustment{
		GrowID: "alice",
		Delta:  100,
		Type:   model.TxTypeDonation,
		Reason: "donation drive",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if acct.Balance != 100 || credit.OldBalance != 0 || credit.NewBalance != 100 {
		t.Fatalf("unexpected credit result: acct=%+v txn=%+v", acct, credit)
	}

	acct, debit, err := pg.Adjust(ctx, Adjustment{
		GrowID: "alice",
		Delta:  -30,
		Type:   model.TxTypePurchase,
		Reason: "shop purchase",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if acct.Balance != 70 || debit.Amount != 30 {
		t.Fatalf("unexpected debit result: acct=%+v txn=%+v", acct, debit)
	}
	if acct.DonationTotal != 100 || acct.PurchaseTotal != 30 {
		t.Fatalf("unexpected derived totals: %+v", acct)
	}

	if _, _, err := pg.Adjust(ctx, Adjustment{
		GrowID: "alice", Delta: -71, Type: model.TxTypeSubtract,
	}); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	loaded, err := pg.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Balance != 70 {
		t.Fatalf("rejected debit moved the balance: %d", loaded.Balance)
	}

	status := model.TxStatusSuccess
	txType := model.TxTypePurchase
	txns, total, err := pg.ListTransactions(ctx, TransactionFilters{
		GrowID: "alice",
		Type:   &txType,
		Status: &status,
		Limit:  20,
	})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 1 || len(txns) != 1 || txns[0].ID != debit.ID {
		t.Fatalf("unexpected filtered list: total=%d %#v", total, txns)
	}

	reversal, err := pg.Reverse(ctx, debit.ID, "order cancelled")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversal.Type != model.TxTypeRefund || reversal.NewBalance != 100 {
		t.Fatalf("unexpected reversal: %+v", reversal)
	}
	if reversal.ReversesID == nil || *reversal.ReversesID != debit.ID {
		t.Fatalf("reversal does not reference original: %+v", reversal)
	}

	original, err := pg.GetTransaction(ctx, debit.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if original.Status != model.TxStatusReversed {
		t.Fatalf("original not marked reversed: %+v", original)
	}

	if _, err := pg.Reverse(ctx, debit.ID, "again"); err != ErrAlreadyReversed {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
}

func setupIntegrationStore(t *testing.T) *Postgres {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	migrationsDir := repoMigrationsDir(t)
	m, err := migrate.New("file://"+migrationsDir, databaseURL)
	if err != nil {
		t.Fatalf("init migrate: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("apply migrations: %v", err)
	}
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		t.Fatalf("close migrator: source=%v database=%v", srcErr, dbErr)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping pg: %v", err)
	}

	if _, err := pool.Exec(context.Background(), `TRUNCATE TABLE transactions, accounts, principals RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPostgres(pool)
}

func repoMigrationsDir(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve test file path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return filepath.Join(root, "migrations")
}
