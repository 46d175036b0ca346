// Package store persists the treasury vault. Both implementations hold the vault lock
// across the validate and mutate callbacks of Execute.
package store

import (
	"context"
	"sync"

	"aegis/internal/treasury/models"
)

// InMemory keeps the vault and its payout ledger behind a single mutex.
type InMemory struct {
	mu      sync.Mutex
	vault   *models.Vault
	payouts []models.PayoutRecord
}

func NewInMemory(vault *models.Vault) *InMemory {
	return &InMemory{vault: vault.Clone()}
}

func (s *InMemory) Load(_ context.Context) (*models.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.Clone(), nil
}

// Execute validates and mutates a working copy, committing it only when validate passes.
func (s *InMemory) Execute(_ context.Context, validate func(*models.Vault) error, mutate func(*models.Vault)) (*models.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.vault.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.payouts = append(s.payouts, working.Released()...)
	working.Settle()
	s.vault = working
	return working.Clone(), nil
}

func (s *InMemory) ListPayouts(_ context.Context) ([]models.PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PayoutRecord{}, s.payouts...), nil
}
