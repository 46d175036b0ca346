package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"aegis/internal/authz"
	"aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/sentinel"
	"aegis/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// PostgresStore persists the vault as a single row locked with FOR UPDATE per mutation.
// Released payouts are appended to treasury_payouts in the same transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the treasury tables when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate treasury schema: %w", err)
	}
	return nil
}

// Bootstrap creates the vault row for factory if none exists and grants the configured
// funders. A vault already owned by another factory is an invariant violation: the
// configured factory could never release funding from it.
func (s *PostgresStore) Bootstrap(ctx context.Context, factory id.Identity, funders ...id.Identity) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO treasury_vault (id, factory) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET factory = treasury_vault.factory
		RETURNING factory
	`, string(factory)).Scan(&owner)
	if err != nil {
		return fmt.Errorf("bootstrap vault: %w", err)
	}
	if id.Identity(owner) != factory {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"vault is owned by factory %q but %q is configured", owner, factory)
	}
	if len(funders) == 0 {
		return nil
	}
	_, err = s.Execute(ctx, nil, func(v *models.Vault) {
		for _, f := range funders {
			v.ApplyAddFunder(f)
		}
	})
	return err
}

const selectVault = `
	SELECT factory, balance, total_payouts, payout_count, funders
	FROM treasury_vault
	WHERE id = 1
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVault(row rowScanner) (*models.Vault, error) {
	var (
		factory string
		funders []string
		v       models.Vault
	)
	if err := row.Scan(&factory, &v.Balance, &v.TotalPayouts, &v.PayoutCount, pq.Array(&funders)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	v.Access = authz.NewRegistry(id.Identity(factory))
	for _, f := range funders {
		v.Access.Grant(id.Identity(f), authz.RoleFunder)
	}
	return &v, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*models.Vault, error) {
	v, err := scanVault(s.db.QueryRowContext(ctx, selectVault))
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Execute(ctx context.Context, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error) {
	var result *models.Vault
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		v, err := scanVault(sqlTx.QueryRowContext(ctx, selectVault+" FOR UPDATE"))
		if err != nil {
			return fmt.Errorf("lock vault: %w", err)
		}
		if validate != nil {
			if err := validate(v); err != nil {
				return err
			}
		}
		mutate(v)

		funders := make([]string, 0)
		for _, f := range v.Funders() {
			funders = append(funders, string(f))
		}
		_, err = sqlTx.ExecContext(ctx, `
			UPDATE treasury_vault
			SET balance = $1, total_payouts = $2, payout_count = $3, funders = $4
			WHERE id = 1
		`, v.Balance, v.TotalPayouts, v.PayoutCount, pq.Array(funders))
		if err != nil {
			return fmt.Errorf("update vault: %w", err)
		}
		for _, p := range v.Released() {
			_, err = sqlTx.ExecContext(ctx, `
				INSERT INTO treasury_payouts (target, event_type, severity, amount, released_at)
				VALUES ($1, $2, $3, $4, $5)
			`, string(p.Target), p.EventType, p.Severity, p.Amount, p.ReleasedAt)
			if err != nil {
				return fmt.Errorf("record payout: %w", err)
			}
		}
		v.Settle()
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ListPayouts(ctx context.Context) ([]models.PayoutRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, event_type, severity, amount, released_at
		FROM treasury_payouts
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	payouts := make([]models.PayoutRecord, 0)
	for rows.Next() {
		var (
			p      models.PayoutRecord
			target string
		)
		if err := rows.Scan(&target, &p.EventType, &p.Severity, &p.Amount, &p.ReleasedAt); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		p.Target = id.Identity(target)
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return payouts, nil
}
