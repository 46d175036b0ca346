package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aegis/internal/treasury/models"
	id "aegis/pkg/domain"
	dErrors "aegis/pkg/domain-errors"
	"aegis/pkg/platform/httputil"
	"aegis/pkg/platform/middleware/auth"
	"aegis/pkg/requestcontext"
)

// Service defines the treasury operations exposed over HTTP.
type Service interface {
	FundVault(ctx context.Context, caller id.Identity, amount int64) (*models.FundResult, error)
	ReleaseInitialFunding(ctx context.Context, caller, target id.Identity, event id.EventRecord) (*models.ReleaseResult, error)
	AddFunder(ctx context.Context, caller, identity id.Identity) (*models.AddFunderResult, error)
	GetTotalLiquidity(ctx context.Context) (int64, error)
	GetAuthorizedFunders(ctx context.Context) ([]id.Identity, error)
	ListPayouts(ctx context.Context) ([]models.PayoutRecord, error)
	Status(ctx context.Context) (*models.Status, error)
}

// Handler serves the treasury endpoints. Writes act as the caller identity resolved by
// middleware; reads are open.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the treasury routes. Factory-only writes reject anonymous callers up
// front; funding reaches the service so a bad amount is reported before the caller.
func (h *Handler) Register(r chi.Router) {
	identified := auth.RequireCaller(h.logger)
	r.Route("/treasury", func(r chi.Router) {
		r.Post("/fund", h.handleFund)
		r.With(identified).Post("/funders", h.handleAddFunder)
		r.With(identified).Post("/releases", h.handleRelease)
		r.Get("/liquidity", h.handleLiquidity)
		r.Get("/funders", h.handleFunders)
		r.Get("/payouts", h.handlePayouts)
		r.Get("/status", h.handleStatus)
	})
}

func (h *Handler) handleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.FundRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.FundVault(ctx, requestcontext.Caller(ctx), req.Amount)
	if err != nil {
		h.writeError(ctx, w, "fund vault", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAddFunder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.AddFunderRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.AddFunder(ctx, requestcontext.Caller(ctx), req.Funder())
	if err != nil {
		h.writeError(ctx, w, "add funder", err)
		return
	}
	status := http.StatusOK
	if res.Added {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.ReleaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.ReleaseInitialFunding(ctx, requestcontext.Caller(ctx), req.Target(), req.Event)
	if err != nil {
		h.writeError(ctx, w, "release initial funding", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	balance, err := h.service.GetTotalLiquidity(ctx)
	if err != nil {
		h.writeError(ctx, w, "get liquidity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.LiquidityResponse{TotalLiquidity: balance})
}

func (h *Handler) handleFunders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	funders, err := h.service.GetAuthorizedFunders(ctx)
	if err != nil {
		h.writeError(ctx, w, "get funders", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FundersResponse{Funders: funders})
}

func (h *Handler) handlePayouts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payouts, err := h.service.ListPayouts(ctx)
	if err != nil {
		h.writeError(ctx, w, "list payouts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.PayoutsResponse{Payouts: payouts})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.Status(ctx)
	if err != nil {
		h.writeError(ctx, w, "get status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
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
