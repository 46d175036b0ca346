package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aegis/internal/governance/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/httputil"
	"aegis/pkg/platform/middleware/auth"
	"aegis/pkg/requestcontext"
)

// Service defines the governance operations exposed over HTTP.
type Service interface {
	ListInstances(ctx context.Context) ([]models.InstanceSummary, error)
	GetInstance(ctx context.Context, instanceID id.InstanceID) (*models.InstanceSummary, error)
	GetEventDetails(ctx context.Context, instanceID id.InstanceID) (id.EventRecord, error)
	Donate(ctx context.Context, instanceID id.InstanceID, caller id.Identity, amount int64) (string, error)
	SubmitProposal(ctx context.Context, instanceID id.InstanceID, caller id.Identity, draft models.ProposalDraft) (id.ProposalID, error)
	Vote(ctx context.Context, instanceID id.InstanceID, caller id.Identity, pid id.ProposalID, inFavor bool) (*models.VoteOutcome, error)
	GetAllProposals(ctx context.Context, instanceID id.InstanceID) ([]models.Proposal, error)
	ListDonors(ctx context.Context, instanceID id.InstanceID) ([]models.Donor, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the instance routes. Donations and submissions reject anonymous callers
// up front; votes reach the service so an unknown proposal still reports not_found first.
func (h *Handler) Register(r chi.Router) {
	identified := auth.RequireCaller(h.logger)
	r.Route("/instances", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Route("/{instanceID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/event", h.handleEvent)
			r.With(identified).Post("/donations", h.handleDonate)
			r.Get("/donors", h.handleDonors)
			r.With(identified).Post("/proposals", h.handleSubmit)
			r.Get("/proposals", h.handleProposals)
			r.Post("/proposals/{proposalID}/votes", h.handleVote)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instances, err := h.service.ListInstances(ctx)
	if err != nil {
		h.writeError(ctx, w, "list instances", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.InstancesResponse{Instances: instances})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetInstance(ctx, instanceID)
	if err != nil {
		h.writeError(ctx, w, "get instance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	event, err := h.service.GetEventDetails(ctx, instanceID)
	if err != nil {
		h.writeError(ctx, w, "get event details", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.DonateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	msg, err := h.service.Donate(ctx, instanceID, requestcontext.Caller(ctx), req.Amount)
	if err != nil {
		h.writeError(ctx, w, "donate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: msg})
}

func (h *Handler) handleDonors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	donors, err := h.service.ListDonors(ctx, instanceID)
	if err != nil {
		h.writeError(ctx, w, "list donors", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DonorsResponse{Donors: donors})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SubmitProposalRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	pid, err := h.service.SubmitProposal(ctx, instanceID, requestcontext.Caller(ctx), req.Draft())
	if err != nil {
		h.writeError(ctx, w, "submit proposal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.SubmitProposalResponse{ProposalID: pid})
}

func (h *Handler) handleProposals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	proposals, err := h.service.GetAllProposals(ctx, instanceID)
	if err != nil {
		h.writeError(ctx, w, "list proposals", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ProposalsResponse{Proposals: proposals})
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, ok := h.instanceID(w, r)
	if !ok {
		return
	}
	pid, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		h.writeError(ctx, w, "parse proposal id", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.VoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	outcome, err := h.service.Vote(ctx, instanceID, requestcontext.Caller(ctx), pid, *req.InFavor)
	if err != nil {
		h.writeError(ctx, w, "vote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.VoteResponse{
		Message:  outcome.Message(),
		Executed: outcome.Executed,
		Proposal: outcome.Proposal,
	})
}

func (h *Handler) instanceID(w http.ResponseWriter, r *http.Request) (id.InstanceID, bool) {
	instanceID, err := id.ParseInstanceID(chi.URLParam(r, "instanceID"))
	if err != nil {
		h.writeError(r.Context(), w, "parse instance id", err)
		return id.InstanceID{}, false
	}
	return instanceID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
