package models

import (
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
)

// DonateRequest carries a donation. Any amount is accepted, including zero and negative.
type DonateRequest struct {
	Amount int64 `json:"amount"`
}

func (r *DonateRequest) Validate() error { return nil }

type SubmitProposalRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	AmountRequested int64  `json:"amount_requested"`
	Recipient       string `json:"recipient"`
}

func (r *SubmitProposalRequest) Validate() error { return nil }

// Draft converts the request into a proposal draft. Recipient is taken verbatim.
func (r *SubmitProposalRequest) Draft() ProposalDraft {
	return ProposalDraft{
		Title:           r.Title,
		Description:     r.Description,
		AmountRequested: r.AmountRequested,
		Recipient:       id.Identity(r.Recipient),
	}
}

type VoteRequest struct {
	InFavor *bool `json:"in_favor"`
}

func (r *VoteRequest) Validate() error {
	if r.InFavor == nil {
		return dErrors.New(dErrors.CodeValidation, "in_favor is required")
	}
	return nil
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SubmitProposalResponse struct {
	ProposalID id.ProposalID `json:"proposal_id"`
}

type VoteResponse struct {
	Message  string   `json:"message"`
	Executed bool     `json:"executed"`
	Proposal Proposal `json:"proposal"`
}

type InstancesResponse struct {
	Instances []InstanceSummary `json:"instances"`
}

type ProposalsResponse struct {
	Proposals []Proposal `json:"proposals"`
}

type DonorsResponse struct {
	Donors []Donor `json:"donors"`
}
