package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fdygg/growledger/internal/model"
)

func (p *Postgres) GetAccount(ctx context.Context, growid string) (*model.Account, error) {
	var acct model.Account
	err := p.pool.QueryRow(ctx, `
		SELECT a.growid, a.balance, a.created_at, a.updated_at,
		       COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'donation' AND t.status = 'success'), 0),
		       COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'purchase' AND t.status = 'success'), 0)
		FROM accounts a
		LEFT JOIN transactions t ON t.growid = a.growid
		WHERE a.growid = $1
		GROUP BY a.growid
	`, growid).Scan(
		&acct.GrowID, &acct.Balance, &acct.CreatedAt, &acct.UpdatedAt,
		&acct.DonationTotal, &acct.PurchaseTotal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

func (p *Postgres) CountAccounts(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (p *Postgres) Adjust(ctx context.Context, adj Adjustment) (*model.Account, *model.Transaction, error) {
	var acct model.Account
	var txn model.Transaction

	err := pgx.BeginFunc(ctx, p.pool, func(dbtx pgx.Tx) error {
		if _, err := dbtx.Exec(ctx, `
			INSERT INTO accounts (growid) VALUES ($1) ON CONFLICT (growid) DO NOTHING
		`, adj.GrowID); err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}

		// Row lock serializes adjustments per account; other accounts proceed.
		var balance int64
		if err := dbtx.QueryRow(ctx, `
			SELECT balance FROM accounts WHERE growid = $1 FOR UPDATE
		`, adj.GrowID).Scan(&balance); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		newBalance := balance + adj.Delta
		if newBalance < 0 {
			return ErrInsufficientFunds
		}

		if err := dbtx.QueryRow(ctx, `
			UPDATE accounts SET balance = $1, updated_at = NOW()
			WHERE growid = $2
			RETURNING growid, balance, created_at, updated_at
		`, newBalance, adj.GrowID).Scan(&acct.GrowID, &acct.Balance, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		var err error
		txn, err = insertTransaction(ctx, dbtx, adj, balance, newBalance)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, nil, ErrInsufficientFunds
		}
		return nil, nil, err
	}
	return &acct, &txn, nil
}

func insertTransaction(ctx context.Context, dbtx pgx.Tx, adj Adjustment, oldBalance, newBalance int64) (model.Transaction, error) {
	amount := adj.Delta
	if amount < 0 {
		amount = -amount
	}

	metadata := adj.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("marshal metadata: %w", err)
	}

	txn := model.Transaction{
		GrowID:     adj.GrowID,
		Type:       adj.Type,
		Amount:     amount,
		OldBalance: oldBalance,
		NewBalance: newBalance,
		Status:     model.TxStatusSuccess,
		Reason:     adj.Reason,
		ReversesID: adj.ReversesID,
		Metadata:   metadata,
	}
	err = dbtx.QueryRow(ctx, `
		INSERT INTO transactions (
			growid, type, amount, old_balance, new_balance,
			status, reason, reverses_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		txn.GrowID, txn.Type, txn.Amount, txn.OldBalance, txn.NewBalance,
		txn.Status, nullString(txn.Reason), txn.ReversesID, metaJSON,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return txn, nil
}

const transactionColumns = `id, growid, type, amount, old_balance, new_balance,
	status, reason, reverses_id, metadata, created_at`

func (p *Postgres) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	txn, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (p *Postgres) ListTransactions(ctx context.Context, filters TransactionFilters) ([]*model.Transaction, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filters.GrowID != "" {
		where += fmt.Sprintf(" AND growid = $%d", argIdx)
		args = append(args, filters.GrowID)
		argIdx++
	}
	if filters.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, *filters.Type)
		argIdx++
	}
	if filters.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	if filters.From != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.From)
		argIdx++
	}
	if filters.To != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.To)
		argIdx++
	}
	if filters.MinAmount != nil {
		where += fmt.Sprintf(" AND amount >= $%d", argIdx)
		args = append(args, *filters.MinAmount)
		argIdx++
	}
	if filters.MaxAmount != nil {
		where += fmt.Sprintf(" AND amount <= $%d", argIdx)
		args = append(args, *filters.MaxAmount)
		argIdx++
	}

	var total int
	var txns []*model.Transaction

	// Repeatable read keeps the count and the page on one snapshot, so rows
	// appended mid-pagination never shift the result.
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(dbtx pgx.Tx) error {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
		if err := dbtx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}

		pageArgs := append(args, filters.Limit, filters.Offset)
		query := fmt.Sprintf(`
			SELECT `+transactionColumns+` FROM transactions %s
			ORDER BY id
			LIMIT $%d OFFSET $%d
		`, where, argIdx, argIdx+1)

		rows, err := dbtx.Query(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			txn, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			txns = append(txns, txn)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (p *Postgres) Reverse(ctx context.Context, id int64, reason string) (*model.Transaction, error) {
	var reversal model.Transaction

	err := pgx.BeginFunc(ctx, p.pool, func(dbtx pgx.Tx) error {
		rows, err := dbtx.Query(ctx, `
			SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE
		`, id)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}
		if !rows.Next() {
			rows.Close()
			return ErrNotFound
		}
		original, err := scanTransaction(rows)
		rows.Close()
		if err != nil {
			return err
		}

		switch original.Status {
		case model.TxStatusReversed, model.TxStatusCancelled:
			return ErrAlreadyReversed
		case model.TxStatusSuccess:
		default:
			return ErrNotReversible
		}

		delta := original.Amount
		if original.Type.IsCredit() {
			delta = -delta
		}

		var balance int64
		if err := dbtx.QueryRow(ctx, `
			SELECT balance FROM accounts WHERE growid = $1 FOR UPDATE
		`, original.GrowID).Scan(&balance); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		newBalance := balance + delta
		if newBalance < 0 {
			return ErrInsufficientFunds
		}

		if _, err := dbtx.Exec(ctx, `
			UPDATE accounts SET balance = $1, updated_at = NOW() WHERE growid = $2
		`, newBalance, original.GrowID); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		reversal, err = insertTransaction(ctx, dbtx, Adjustment{
			GrowID:     original.GrowID,
			Delta:      delta,
			Type:       model.ReversalType(original.Type),
			Reason:     reason,
			ReversesID: &original.ID,
		}, balance, newBalance)
		if err != nil {
			return err
		}

		if _, err := dbtx.Exec(ctx, `
			UPDATE transactions SET status = $1 WHERE id = $2
		`, model.TxStatusReversed, original.ID); err != nil {
			return fmt.Errorf("mark reversed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reversal, nil
}

func scanTransaction(rows pgx.Rows) (*model.Transaction, error) {
	var txn model.Transaction
	var reason *string
	var metaJSON []byte

	err := rows.Scan(
		&txn.ID, &txn.GrowID, &txn.Type, &txn.Amount,
		&txn.OldBalance, &txn.NewBalance,
		&txn.Status, &reason, &txn.ReversesID, &metaJSON, &txn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if reason != nil {
		txn.Reason = *reason
	}
	if err := json.Unmarshal(metaJSON, &txn.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &txn, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
