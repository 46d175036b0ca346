package models

import (
	"fmt"
	"time"

	"aegis/internal/authz"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
)

// Vault is the shared liquidity pool.
//
// Invariants:
//   - Balance is never negative
//   - Balance only grows through Fund and only shrinks through Release
//   - Only the registry owner (the event factory) may release or add funders
//   - Funders are an idempotent set; re-adding is a no-op
type Vault struct {
	Balance      int64
	Access       *authz.Registry
	TotalPayouts int64
	PayoutCount  int

	released []PayoutRecord
}

// NewVault creates an empty vault owned by factory with the given initial funders.
func NewVault(factory id.Identity, funders ...id.Identity) *Vault {
	access := authz.NewRegistry(factory)
	for _, f := range funders {
		access.Grant(f, authz.RoleFunder)
	}
	return &Vault{Access: access}
}

func (v *Vault) Factory() id.Identity { return v.Access.Owner() }

func (v *Vault) Funders() []id.Identity { return v.Access.Members(authz.RoleFunder) }

// CanFund checks amount before authorization so a malformed request from anyone
// reports the amount problem.
func (v *Vault) CanFund(caller id.Identity, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	if !v.Access.IsAuthorized(caller, authz.RoleFunder) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized funder")
	}
	if _, ok := id.AddAmount(v.Balance, amount); !ok {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount would overflow the vault balance")
	}
	return nil
}

func (v *Vault) ApplyFund(amount int64) {
	v.Balance += amount
}

func (v *Vault) requireFactory(caller id.Identity) error {
	if !v.Access.IsAuthorized(caller, authz.RoleOwner) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the authorized factory")
	}
	return nil
}

// CanAddFunder allows only the factory to extend the funder set.
func (v *Vault) CanAddFunder(caller id.Identity) error {
	return v.requireFactory(caller)
}

// ApplyAddFunder reports whether identity was newly added.
func (v *Vault) ApplyAddFunder(identity id.Identity) bool {
	return v.Access.Grant(identity, authz.RoleFunder)
}

// CanRelease checks the caller and that the balance covers payout. A zero payout
// always passes the liquidity check.
func (v *Vault) CanRelease(caller id.Identity, payout int64) error {
	if err := v.requireFactory(caller); err != nil {
		return err
	}
	if payout > 0 && v.Balance < payout {
		return dErrors.Newf(dErrors.CodeInsufficientLiquidity,
			"insufficient liquidity: balance %d, payout %d", v.Balance, payout)
	}
	return nil
}

// ApplyRelease debits payout and queues a ledger record. Zero payouts change nothing.
func (v *Vault) ApplyRelease(target id.Identity, event id.EventRecord, payout int64, now time.Time) {
	if payout == 0 {
		return
	}
	v.Balance -= payout
	v.TotalPayouts += payout
	v.PayoutCount++
	v.released = append(v.released, PayoutRecord{
		Target:     target,
		EventType:  event.EventType,
		Severity:   event.Severity,
		Amount:     payout,
		ReleasedAt: now,
	})
}

// Released returns payouts applied since the vault was loaded. Stores persist these
// alongside the vault row.
func (v *Vault) Released() []PayoutRecord {
	return v.released
}

// Settle clears the queued payouts once a store has persisted them.
func (v *Vault) Settle() {
	v.released = nil
}

// Clone returns a deep copy without queued payouts.
func (v *Vault) Clone() *Vault {
	return &Vault{
		Balance:      v.Balance,
		Access:       v.Access.Clone(),
		TotalPayouts: v.TotalPayouts,
		PayoutCount:  v.PayoutCount,
	}
}

// PayoutRecord is one released initial payout.
type PayoutRecord struct {
	Target     id.Identity `json:"instance_id"`
	EventType  string      `json:"event_type"`
	Severity   string      `json:"severity"`
	Amount     int64       `json:"amount"`
	ReleasedAt time.Time   `json:"released_at"`
}

// Status summarizes the vault for read-only consumers.
type Status struct {
	Balance      int64 `json:"balance"`
	TotalPayouts int64 `json:"total_payouts"`
	PayoutCount  int   `json:"payout_count"`
	FunderCount  int   `json:"funder_count"`
}

func (v *Vault) Status() Status {
	return Status{
		Balance:      v.Balance,
		TotalPayouts: v.TotalPayouts,
		PayoutCount:  v.PayoutCount,
		FunderCount:  v.Access.Count(authz.RoleFunder),
	}
}

// FundResult confirms a vault funding.
type FundResult struct {
	Message    string `json:"message"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
}

func NewFundResult(amount, balance int64) *FundResult {
	return &FundResult{
		Message:    fmt.Sprintf("Vault funded with %d. New balance: %d", amount, balance),
		Amount:     amount,
		NewBalance: balance,
	}
}

// ReleaseResult confirms an initial funding release, including the zero-payout case.
type ReleaseResult struct {
	Message    string      `json:"message"`
	Target     id.Identity `json:"target_instance"`
	Severity   string      `json:"severity"`
	Payout     int64       `json:"payout"`
	NewBalance int64       `json:"new_balance"`
}

func NewReleaseResult(target id.Identity, severity string, payout, balance int64) *ReleaseResult {
	msg := fmt.Sprintf("Initial funding of %d released to %s", payout, target)
	if payout == 0 {
		msg = fmt.Sprintf("No payout triggered for severity %s", severity)
	}
	return &ReleaseResult{
		Message:    msg,
		Target:     target,
		Severity:   severity,
		Payout:     payout,
		NewBalance: balance,
	}
}

// AddFunderResult confirms a funder authorization.
type AddFunderResult struct {
	Message string      `json:"message"`
	Funder  id.Identity `json:"funder"`
	Added   bool        `json:"added"`
}

func NewAddFunderResult(funder id.Identity, added bool) *AddFunderResult {
	msg := fmt.Sprintf("Funder %s authorized", funder)
	if !added {
		msg = fmt.Sprintf("Funder %s already authorized", funder)
	}
	return &AddFunderResult{Message: msg, Funder: funder, Added: added}
}
