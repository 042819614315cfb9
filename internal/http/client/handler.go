package client

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/client/importer"
	"github.com/MrJamesThe3rd/mlms/internal/http/bind"
	"github.com/MrJamesThe3rd/mlms/internal/http/respond"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type Handler struct {
	svc      *client.Service
	loans    *loan.Service
	importer *importer.Parser
}

func NewHandler(svc *client.Service, loans *loan.Service, parser *importer.Parser) *Handler {
	return &Handler{svc: svc, loans: loans, importer: parser}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/import", h.importCSV)
	r.Get("/{id}", h.get)
	r.Get("/{id}/loans", h.listLoans)
}

type documentRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

type createClientRequest struct {
	Name          string            `json:"name"`
	CNIC          string            `json:"cnic"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	Income        *decimal.Decimal  `json:"income,omitempty"`
	Occupation    string            `json:"occupation,omitempty"`
	HouseholdSize *int              `json:"householdSize,omitempty"`
	Documents     []documentRequest `json:"documents,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := bind.JSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	uploaded := time.Now().UTC()
	docs := make([]client.Document, 0, len(req.Documents))

	for _, d := range req.Documents {
		docs = append(docs, client.Document{FileName: d.FileName, FileType: d.FileType, UploadDate: uploaded})
	}

	c, err := h.svc.Create(r.Context(), client.CreateParams{
		Profile: client.Profile{
			Name:          req.Name,
			CNIC:          req.CNIC,
			Phone:         req.Phone,
			Address:       req.Address,
			Income:        req.Income,
			Occupation:    req.Occupation,
			HouseholdSize: req.HouseholdSize,
		},
		Documents: docs,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, clients)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.svc.Get(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	loans, err := h.loans.List(r.Context(), loan.Filter{ClientID: id})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, loans)
}

type rowErrorResponse struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResponse struct {
	Imported int                `json:"imported"`
	Encoding string             `json:"encoding"`
	Clients  []*client.Client   `json:"clients"`
	Errors   []rowErrorResponse `json:"errors"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.importer.Parse(file)
	if err != nil {
		if errors.Is(err, importer.ErrNoHeader) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		respond.Error(w, r, err)

		return
	}

	created, err := h.svc.CreateBatch(r.Context(), result.Clients)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := importResponse{
		Imported: len(created),
		Encoding: string(result.Encoding),
		Clients:  created,
		Errors:   make([]rowErrorResponse, 0, len(result.Errors)),
	}

	if resp.Clients == nil {
		resp.Clients = []*client.Client{}
	}

	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, rowErrorResponse{Row: e.Row, Error: e.Err.Error()})
	}

	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusOK
	}

	respond.JSON(w, status, resp)
}
