package loan

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/advisory"
	"github.com/MrJamesThe3rd/mlms/internal/auth"
	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/http/bind"
	"github.com/MrJamesThe3rd/mlms/internal/http/middleware"
	"github.com/MrJamesThe3rd/mlms/internal/http/respond"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type Handler struct {
	svc      *loan.Service
	clients  *client.Service
	advisory *advisory.Service
}

func NewHandler(svc *loan.Service, clients *client.Service, advisorySvc *advisory.Service) *Handler {
	return &Handler{svc: svc, clients: clients, advisory: advisorySvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/recommendation", h.recommendation)
	r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/sweep", h.sweep)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.edit)
	r.With(middleware.RequireRole(auth.RoleAdmin)).Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}/installments/{installmentID}", h.updatePayment)
	r.Get("/{id}/prediction", h.prediction)
}

type createLoanRequest struct {
	ClientID        string          `json:"clientId" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type" validate:"required"`
	DurationMonths  int             `json:"durationMonths" validate:"min=1"`
	StartDate       string          `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	AssignedOfficer string          `json:"assignedOfficer,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var start time.Time

	if req.StartDate != "" {
		t, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			http.Error(w, "startDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		start = t
	}

	l, err := h.svc.Create(r.Context(), loan.CreateParams{
		ClientID:        req.ClientID,
		Amount:          req.Amount,
		Type:            req.Type,
		DurationMonths:  req.DurationMonths,
		StartDate:       start,
		InterestRate:    req.InterestRate,
		AssignedOfficer: req.AssignedOfficer,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(l))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := loan.Filter{ClientID: r.URL.Query().Get("client_id")}

	if s := r.URL.Query().Get("status"); s != "" {
		status := loan.Status(s)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		filter.Status = &status
	}

	loans, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(loans))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(l))
}

type editLoanRequest struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Type            *string          `json:"type,omitempty"`
	DurationMonths  *int             `json:"durationMonths,omitempty" validate:"omitempty,min=1"`
	InterestRate    *decimal.Decimal `json:"interestRate,omitempty"`
	AssignedOfficer *string          `json:"assignedOfficer,omitempty"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	var req editLoanRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l, err := h.svc.Edit(r.Context(), chi.URLParam(r, "id"), loan.EditParams{
		Amount:          req.Amount,
		Type:            req.Type,
		DurationMonths:  req.DurationMonths,
		InterestRate:    req.InterestRate,
		AssignedOfficer: req.AssignedOfficer,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(l))
}

type updateStatusRequest struct {
	Status loan.Status `json:"status" validate:"required,oneof=Active Completed Defaulted"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(l))
}

type updatePaymentRequest struct {
	Status     loan.InstallmentStatus `json:"status" validate:"required"`
	PaidAmount *decimal.Decimal       `json:"paidAmount,omitempty"`
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l, err := h.svc.UpdatePayment(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "installmentID"), req.Status, req.PaidAmount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(l))
}

func (h *Handler) prediction(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.clients.Get(r.Context(), l.ClientID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, h.advisory.PredictDefault(r.Context(), c, l))
}

type recommendationResponse struct {
	Recommendation string `json:"recommendation"`
}

// recommendation takes the risk either directly (risk=Low) or from an existing
// client (client_id=cli-1).
func (h *Handler) recommendation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	risk := client.RiskScore(q.Get("risk"))

	if id := q.Get("client_id"); id != "" {
		c, err := h.clients.Get(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		risk = c.RiskScore
	}

	if !risk.Valid() {
		http.Error(w, "risk must be one of Low, Medium, High", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || !amount.IsPositive() {
		http.Error(w, "amount must be a positive number", http.StatusBadRequest)
		return
	}

	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration < 1 {
		http.Error(w, "duration must be a positive number of months", http.StatusBadRequest)
		return
	}

	respond.JSON(w, http.StatusOK, recommendationResponse{
		Recommendation: h.advisory.RecommendLoanTerms(r.Context(), risk, amount, duration),
	})
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunOverdueSweep(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toSweepResponse(res))
}
