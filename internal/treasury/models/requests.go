package models

import (
	id "aegis/pkg/domain"
)

// FundRequest carries a deposit. Amount positivity is a domain rule checked by the vault.
type FundRequest struct {
	Amount int64 `json:"amount"`
}

func (r *FundRequest) Validate() error { return nil }

type AddFunderRequest struct {
	Identity string `json:"identity"`

	parsed id.Identity
}

func (r *AddFunderRequest) Validate() error {
	parsed, err := id.ParseIdentity(r.Identity)
	if err != nil {
		return err
	}
	r.parsed = parsed
	return nil
}

// Funder returns the validated identity.
func (r *AddFunderRequest) Funder() id.Identity { return r.parsed }

type ReleaseRequest struct {
	TargetInstance string         `json:"target_instance"`
	Event          id.EventRecord `json:"event"`

	target id.Identity
}

func (r *ReleaseRequest) Validate() error {
	target, err := id.ParseIdentity(r.TargetInstance)
	if err != nil {
		return err
	}
	r.target = target
	return nil
}

func (r *ReleaseRequest) Target() id.Identity { return r.target }

type LiquidityResponse struct {
	TotalLiquidity int64 `json:"total_liquidity"`
}

type FundersResponse struct {
	Funders []id.Identity `json:"funders"`
}

type PayoutsResponse struct {
	Payouts []PayoutRecord `json:"payouts"`
}
