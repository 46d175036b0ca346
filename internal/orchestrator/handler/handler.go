package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aegis/internal/orchestrator"
	tmodels "aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/httputil"
	"aegis/pkg/requestcontext"
)

type Service interface {
	DeclareEvent(ctx context.Context, event id.EventRecord, confidence *float64) (id.InstanceID, *tmodels.ReleaseResult, error)
	ListDeclarations(ctx context.Context) []orchestrator.Declaration
}

// Handler accepts validated event declarations. There is no caller gate: the treasury only
// trusts the orchestrator's own factory identity.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.handleDeclare)
	r.Get("/events", h.handleList)
}

func (h *Handler) handleDeclare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[orchestrator.DeclareRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	instanceID, result, err := h.service.DeclareEvent(ctx, req.Event(), req.ConfidenceScore)
	if err != nil {
		level := slog.LevelWarn
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "declare event failed",
			"request_id", requestID,
			"instance_id", instanceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, orchestrator.DeclareResponse{
		InstanceID: instanceID,
		Message:    result.Message,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, orchestrator.DeclarationsResponse{
		Declarations: h.service.ListDeclarations(r.Context()),
	})
}
