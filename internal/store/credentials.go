package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fdygg/growledger/internal/model"
)

const principalColumns = `username, api_key, api_secret, secret_prefix,
	rate_limit_max, rate_limit_window, created_at, last_used`

func (p *Postgres) CreatePrincipal(ctx context.Context, principal *model.Principal) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO principals (
			username, api_key, api_secret, secret_prefix,
			rate_limit_max, rate_limit_window
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		principal.Username, principal.APIKey, principal.APISecret, principal.SecretPrefix,
		principal.RateLimitMax, principal.RateLimitWindow,
	).Scan(&principal.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (p *Postgres) GetPrincipal(ctx context.Context, username string) (*model.Principal, error) {
	var principal model.Principal
	err := p.pool.QueryRow(ctx, `
		SELECT `+principalColumns+` FROM principals WHERE username = $1
	`, username).Scan(
		&principal.Username, &principal.APIKey, &principal.APISecret, &principal.SecretPrefix,
		&principal.RateLimitMax, &principal.RateLimitWindow,
		&principal.CreatedAt, &principal.LastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}
	return &principal, nil
}

func (p *Postgres) TouchLastUsed(ctx context.Context, username string, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE principals SET last_used = $1 WHERE username = $2
	`, at, username)
	if err != nil {
		return fmt.Errorf("touch last_used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListPrincipals(ctx context.Context, limit, offset int) ([]*model.Principal, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count principals: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+principalColumns+` FROM principals ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var principals []*model.Principal
	for rows.Next() {
		var principal model.Principal
		err := rows.Scan(
			&principal.Username, &principal.APIKey, &principal.APISecret, &principal.SecretPrefix,
			&principal.RateLimitMax, &principal.RateLimitWindow,
			&principal.CreatedAt, &principal.LastUsed,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan principal: %w", err)
		}
		principals = append(principals, &principal)
	}
	return principals, total, rows.Err()
}

func (p *Postgres) CountPrincipals(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count principals: %w", err)
	}
	return count, nil
}
