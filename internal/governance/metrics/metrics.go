package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for governance instances.
type Metrics struct {
	InstancesCreated   prometheus.Counter
	InstancesDiscarded prometheus.Counter
	Donations          prometheus.Counter
	DonatedAmount      prometheus.Counter
	Proposals          prometheus.Counter
	Votes              *prometheus.CounterVec
	ProposalsExecuted  prometheus.Counter
	ExecutedAmount     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InstancesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_instances_created_total",
			Help: "Governance instances created for declared events",
		}),
		InstancesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_instances_discarded_total",
			Help: "Governance instances discarded by compensation",
		}),
		Donations: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_donations_total",
			Help: "Donations received across all instances",
		}),
		DonatedAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_donated_amount_total",
			Help: "Sum of positive donation amounts",
		}),
		Proposals: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_proposals_submitted_total",
			Help: "Proposals submitted across all instances",
		}),
		Votes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_governance_votes_total",
			Help: "Votes accepted, by direction",
		}, []string{"direction"}),
		ProposalsExecuted: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_proposals_executed_total",
			Help: "Proposals that reached the threshold and executed",
		}),
		ExecutedAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "aegis_governance_executed_amount_total",
			Help: "Amount disbursed by executed proposals",
		}),
	}
}

// IncrementDonation counts every donation; only positive amounts add to the sum since
// counters cannot decrease.
func (m *Metrics) IncrementDonation(amount int64) {
	m.Donations.Inc()
	if amount > 0 {
		m.DonatedAmount.Add(float64(amount))
	}
}

func (m *Metrics) IncrementVote(inFavor bool) {
	direction := "against"
	if inFavor {
		direction = "for"
	}
	m.Votes.WithLabelValues(direction).Inc()
}

func (m *Metrics) IncrementExecuted(amount int64) {
	m.ProposalsExecuted.Inc()
	m.ExecutedAmount.Add(float64(amount))
}
