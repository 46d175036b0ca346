package models

import (
	"fmt"
	"time"

	"aegis/internal/authz"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
)

// VoteThreshold is the number of "for" votes a proposal must exceed to execute.
const VoteThreshold = 5

// Instance is the governance process for one declared event.
//
// Invariants:
//   - Event is immutable after construction
//   - Proposals[i].ID == i; ids are assigned in order and never reused
//   - Access holds every identity that has donated under RoleDonor
//   - A proposal executes at most once and LocalTreasury is debited exactly then
type Instance struct {
	ID             id.InstanceID         `json:"id"`
	Event          id.EventRecord        `json:"event"`
	Access         *authz.Registry       `json:"access"`
	Donations      map[id.Identity]int64 `json:"donations"`
	Proposals      []*Proposal           `json:"proposals"`
	NextProposalID id.ProposalID         `json:"next_proposal_id"`
	LocalTreasury  int64                 `json:"local_treasury"`
	CreatedAt      time.Time             `json:"created_at"`
}

func NewInstance(instanceID id.InstanceID, owner id.Identity, event id.EventRecord, now time.Time) (*Instance, error) {
	if instanceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instance id is required")
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &Instance{
		ID:        instanceID,
		Event:     event,
		Access:    authz.NewRegistry(owner),
		Donations: make(map[id.Identity]int64),
		Proposals: []*Proposal{},
		CreatedAt: now,
	}, nil
}

// CanDonate requires an identified caller. Zero and negative donations are accepted and
// still make the caller a donor; only a sum that would overflow int64 is refused.
func (i *Instance) CanDonate(caller id.Identity, amount int64) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if _, ok := id.AddAmount(i.LocalTreasury, amount); !ok {
		return dErrors.New(dErrors.CodeInvalidAmount, "donation would overflow the local treasury")
	}
	if _, ok := id.AddAmount(i.Donations[caller], amount); !ok {
		return dErrors.New(dErrors.CodeInvalidAmount, "donation would overflow the donor total")
	}
	return nil
}

func (i *Instance) ApplyDonation(caller id.Identity, amount int64) {
	i.LocalTreasury += amount
	i.Donations[caller] += amount
	i.Access.Grant(caller, authz.RoleDonor)
}

func (i *Instance) IsDonor(identity id.Identity) bool {
	return i.Access.IsAuthorized(identity, authz.RoleDonor)
}

// Proposal resolves id through the proposal arena.
func (i *Instance) Proposal(pid id.ProposalID) (*Proposal, bool) {
	if uint64(pid) >= uint64(len(i.Proposals)) {
		return nil, false
	}
	return i.Proposals[pid], true
}

func (i *Instance) CanSubmit(caller id.Identity, draft ProposalDraft) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return draft.Validate()
}

// ApplySubmit appends a proposal and returns its id.
func (i *Instance) ApplySubmit(caller id.Identity, draft ProposalDraft, now time.Time) id.ProposalID {
	pid := i.NextProposalID
	i.Proposals = append(i.Proposals, &Proposal{
		ID:              pid,
		Proposer:        caller,
		Title:           draft.Title,
		Description:     draft.Description,
		AmountRequested: draft.AmountRequested,
		Recipient:       draft.Recipient,
		Voters:          []id.Identity{},
		SubmittedAt:     now,
	})
	i.NextProposalID++
	return pid
}

// CanVote checks, in order: the proposal exists, the caller has donated, the caller has not
// voted on it yet.
func (i *Instance) CanVote(caller id.Identity, pid id.ProposalID) error {
	p, ok := i.Proposal(pid)
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "proposal %d not found", pid)
	}
	if !i.IsDonor(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "only donors can vote")
	}
	if p.HasVoted(caller) {
		return dErrors.New(dErrors.CodeAlreadyVoted, "caller has already voted on this proposal")
	}
	return nil
}

// ApplyVote records the vote and runs the execution check. Call CanVote first.
func (i *Instance) ApplyVote(caller id.Identity, pid id.ProposalID, inFavor bool, now time.Time) VoteOutcome {
	p := i.Proposals[pid]
	if inFavor {
		p.VotesFor++
	} else {
		p.VotesAgainst++
	}
	p.Voters = append(p.Voters, caller)

	executed := i.executeIfReady(p, now)
	return VoteOutcome{Proposal: *p.Clone(), Executed: executed}
}

// executeIfReady only ever debits once per proposal; votes against never gate or reverse it.
func (i *Instance) executeIfReady(p *Proposal, now time.Time) bool {
	if p.VotesFor <= VoteThreshold || p.Executed || i.LocalTreasury < p.AmountRequested {
		return false
	}
	i.LocalTreasury -= p.AmountRequested
	p.Executed = true
	executedAt := now
	p.ExecutedAt = &executedAt
	return true
}

// Donors lists donors in first-donation order with their accumulated amounts.
func (i *Instance) Donors() []Donor {
	identities := i.Access.Members(authz.RoleDonor)
	donors := make([]Donor, 0, len(identities))
	for _, identity := range identities {
		donors = append(donors, Donor{Identity: identity, Amount: i.Donations[identity]})
	}
	return donors
}

func (i *Instance) AllProposals() []Proposal {
	out := make([]Proposal, 0, len(i.Proposals))
	for _, p := range i.Proposals {
		out = append(out, *p.Clone())
	}
	return out
}

func (i *Instance) Summary() InstanceSummary {
	executed := 0
	for _, p := range i.Proposals {
		if p.Executed {
			executed++
		}
	}
	return InstanceSummary{
		ID:            i.ID,
		Event:         i.Event,
		LocalTreasury: i.LocalTreasury,
		DonorCount:    i.Access.Count(authz.RoleDonor),
		ProposalCount: len(i.Proposals),
		ExecutedCount: executed,
		CreatedAt:     i.CreatedAt,
	}
}

func (i *Instance) Clone() *Instance {
	c := *i
	c.Access = i.Access.Clone()
	c.Donations = make(map[id.Identity]int64, len(i.Donations))
	for k, v := range i.Donations {
		c.Donations[k] = v
	}
	c.Proposals = make([]*Proposal, len(i.Proposals))
	for idx, p := range i.Proposals {
		c.Proposals[idx] = p.Clone()
	}
	return &c
}

// Proposal is a request for supplementary funding from the instance's local treasury.
type Proposal struct {
	ID              id.ProposalID `json:"id"`
	Proposer        id.Identity   `json:"proposer"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	AmountRequested int64         `json:"amount_requested"`
	Recipient       id.Identity   `json:"recipient"`
	VotesFor        int           `json:"votes_for"`
	VotesAgainst    int           `json:"votes_against"`
	Voters          []id.Identity `json:"voters"`
	Executed        bool          `json:"executed"`
	SubmittedAt     time.Time     `json:"submitted_at"`
	ExecutedAt      *time.Time    `json:"executed_at,omitempty"`
}

func (p *Proposal) HasVoted(identity id.Identity) bool {
	for _, v := range p.Voters {
		if v == identity {
			return true
		}
	}
	return false
}

func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Voters = append([]id.Identity{}, p.Voters...)
	if p.ExecutedAt != nil {
		t := *p.ExecutedAt
		c.ExecutedAt = &t
	}
	return &c
}

// ProposalDraft is the caller-supplied part of a proposal.
type ProposalDraft struct {
	Title           string
	Description     string
	AmountRequested int64
	Recipient       id.Identity
}

func (d ProposalDraft) Validate() error {
	if d.AmountRequested < 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount_requested must not be negative")
	}
	return nil
}

type VoteOutcome struct {
	Proposal Proposal
	Executed bool
}

func (o VoteOutcome) Message() string {
	if o.Executed {
		return "Vote recorded; proposal executed"
	}
	return "Vote recorded"
}

type Donor struct {
	Identity id.Identity `json:"identity"`
	Amount   int64       `json:"amount"`
}

type InstanceSummary struct {
	ID            id.InstanceID  `json:"id"`
	Event         id.EventRecord `json:"event"`
	LocalTreasury int64          `json:"local_treasury"`
	DonorCount    int            `json:"donor_count"`
	ProposalCount int            `json:"proposal_count"`
	ExecutedCount int            `json:"executed_count"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DonationMessage is the confirmation returned to a donor.
func DonationMessage(amount int64) string {
	return fmt.Sprintf("Donation of %d received. Thank you!", amount)
}
