package models

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newInstance(t *testing.T) *Instance {
	t.Helper()
	inst, err := NewInstance(id.NewInstanceID(), "event-factory", id.EventRecord{EventType: "Flood", Severity: "High"}, now)
	require.NoError(t, err)
	return inst
}

func TestNewInstance(t *testing.T) {
	_, err := NewInstance(id.InstanceID{}, "f", id.EventRecord{EventType: "Flood"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewInstance(id.NewInstanceID(), "f", id.EventRecord{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestDonate(t *testing.T) {
	inst := newInstance(t)

	inst.ApplyDonation("donor-1", 10)
	inst.ApplyDonation("donor-1", 5)
	inst.ApplyDonation("donor-2", 0)
	inst.ApplyDonation("donor-3", -4)

	assert.Equal(t, int64(11), inst.LocalTreasury)
	assert.Equal(t, []Donor{
		{Identity: "donor-1", Amount: 15},
		{Identity: "donor-2", Amount: 0},
		{Identity: "donor-3", Amount: -4},
	}, inst.Donors())
	assert.True(t, inst.IsDonor("donor-3"), "negative donations still confer donor status")
	assert.True(t, dErrors.HasCode(inst.CanDonate("", 1), dErrors.CodeUnauthorized))
}

func TestDonateRefusesOverflow(t *testing.T) {
	inst := newInstance(t)
	require.NoError(t, inst.CanDonate("whale", math.MaxInt64))
	inst.ApplyDonation("whale", math.MaxInt64)

	err := inst.CanDonate("minnow", 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	assert.NoError(t, inst.CanDonate("minnow", -1), "negative donations remain accepted")

	inst.ApplyDonation("debtor", -10)
	inst.ApplyDonation("whale", -20)
	err = inst.CanDonate("debtor", math.MinInt64)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount), "donor total would wrap")
	assert.Equal(t, int64(math.MaxInt64-30), inst.LocalTreasury)
}

func TestSubmitAssignsSequentialIDs(t *testing.T) {
	inst := newInstance(t)
	draft := ProposalDraft{Title: "Water", AmountRequested: 40, Recipient: "ngo"}

	require.NoError(t, inst.CanSubmit("anyone", draft))
	first := inst.ApplySubmit("anyone", draft, now)
	second := inst.ApplySubmit("someone-else", draft, now)

	assert.Equal(t, id.ProposalID(0), first)
	assert.Equal(t, id.ProposalID(1), second)
	assert.Equal(t, id.ProposalID(2), inst.NextProposalID)

	p, ok := inst.Proposal(second)
	require.True(t, ok)
	assert.Equal(t, id.Identity("someone-else"), p.Proposer)
	assert.False(t, p.Executed)
	assert.Zero(t, p.VotesFor)

	err := inst.CanSubmit("anyone", ProposalDraft{AmountRequested: -1})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
}

func TestVoteChecks(t *testing.T) {
	inst := newInstance(t)
	pid := inst.ApplySubmit("p", ProposalDraft{AmountRequested: 1}, now)
	inst.ApplyDonation("donor", 1)

	assert.True(t, dErrors.HasCode(inst.CanVote("donor", 99), dErrors.CodeNotFound))

	err := inst.CanVote("outsider", pid)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "only donors can vote", dErrors.MessageOf(err))

	require.NoError(t, inst.CanVote("donor", pid))
	inst.ApplyVote("donor", pid, false, now)
	assert.True(t, dErrors.HasCode(inst.CanVote("donor", pid), dErrors.CodeAlreadyVoted))

	p, _ := inst.Proposal(pid)
	assert.Equal(t, 1, p.VotesAgainst)
}

// TestGovernanceScenario: six donors fund 60, a proposal for 40 executes on the sixth
// "for" vote and a seventh vote neither re-debits nor re-executes.
func TestGovernanceScenario(t *testing.T) {
	inst := newInstance(t)
	for n := 1; n <= 6; n++ {
		inst.ApplyDonation(id.Identity(fmt.Sprintf("donor-%d", n)), 10)
	}
	assert.Equal(t, int64(60), inst.LocalTreasury)

	pid := inst.ApplySubmit("proposer", ProposalDraft{Title: "Shelter", AmountRequested: 40, Recipient: "ngo"}, now)
	assert.True(t, dErrors.HasCode(inst.CanVote("donor-7", pid), dErrors.CodeUnauthorized))

	for n := 1; n <= 6; n++ {
		voter := id.Identity(fmt.Sprintf("donor-%d", n))
		require.NoError(t, inst.CanVote(voter, pid))
		outcome := inst.ApplyVote(voter, pid, true, now)
		assert.Equal(t, n == 6, outcome.Executed, "vote %d", n)
	}
	p, _ := inst.Proposal(pid)
	assert.True(t, p.Executed)
	assert.Equal(t, int64(20), inst.LocalTreasury)

	inst.ApplyDonation("donor-7", 10)
	require.NoError(t, inst.CanVote("donor-7", pid))
	outcome := inst.ApplyVote("donor-7", pid, true, now)
	assert.False(t, outcome.Executed)
	assert.Equal(t, 7, outcome.Proposal.VotesFor)
	assert.Equal(t, int64(30), inst.LocalTreasury)
	assert.Equal(t, "Vote recorded", outcome.Message())
}

func TestExecutionWaitsForBalance(t *testing.T) {
	inst := newInstance(t)
	pid := inst.ApplySubmit("p", ProposalDraft{AmountRequested: 100}, now)
	for n := 1; n <= 6; n++ {
		inst.ApplyDonation(id.Identity(fmt.Sprintf("d%d", n)), 1)
		inst.ApplyVote(id.Identity(fmt.Sprintf("d%d", n)), pid, true, now)
	}
	p, _ := inst.Proposal(pid)
	assert.False(t, p.Executed, "insufficient local treasury blocks execution")

	inst.ApplyDonation("whale", 100)
	outcome := inst.ApplyVote("whale", pid, false, now)
	assert.True(t, outcome.Executed, "a vote against still triggers the execution check")
	assert.Equal(t, int64(6), inst.LocalTreasury)
	assert.Equal(t, "Vote recorded; proposal executed", outcome.Message())
}

func TestCloneIsDeep(t *testing.T) {
	inst := newInstance(t)
	inst.ApplyDonation("d", 1)
	pid := inst.ApplySubmit("p", ProposalDraft{}, now)

	c := inst.Clone()
	c.ApplyDonation("e", 1)
	c.ApplyVote("d", pid, true, now)

	assert.False(t, inst.IsDonor("e"))
	p, _ := inst.Proposal(pid)
	assert.Zero(t, p.VotesFor)
	assert.Empty(t, p.Voters)
}

func TestInstanceJSONRoundTrip(t *testing.T) {
	inst := newInstance(t)
	inst.ApplyDonation("d", 7)
	pid := inst.ApplySubmit("p", ProposalDraft{Title: "T", AmountRequested: 3}, now)
	inst.ApplyVote("d", pid, true, now)

	b, err := json.Marshal(inst)
	require.NoError(t, err)
	var decoded Instance
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, inst.ID, decoded.ID)
	assert.True(t, decoded.IsDonor("d"))
	assert.Equal(t, inst.Donors(), decoded.Donors())
	assert.Equal(t, inst.AllProposals(), decoded.AllProposals())
}
