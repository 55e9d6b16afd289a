package handler

import (
	"net/http"
	"strings"

	"intake/internal/patients/service"
	apperrors "intake/pkg/errors"
	httputil "intake/pkg/http"
	"intake/pkg/logger"
	"intake/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PatientHandler struct {
	service service.PatientService
	log     *logger.Logger
}

func NewPatientHandler(service service.PatientService, log *logger.Logger) *PatientHandler {
	return &PatientHandler{
		service: service,
		log:     log,
	}
}

type validateCPFRequest struct {
	CPF string `json:"cpf"`
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p model.Patient
	if err := httputil.DecodeJSON(r, &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, p); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PatientHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "GetByID", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PatientHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	patients, totalCount, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, patients, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *PatientHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, "Search", apperrors.InvalidInput("'q' query parameter is required"))
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, results); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "Update", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	var updates model.PatientUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "Delete", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// Defaults returns the state of a freshly reset intake form.
func (h *PatientHandler) Defaults(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, h.service.Defaults()); err != nil {
		h.log.Error("failed to write success response", "handler", "Defaults", "operation", "WriteSuccess", "error", err)
	}
}

// ValidateCPF checks a CPF without storing anything. An invalid CPF is a
// normal 200 answer with valid=false.
func (h *PatientHandler) ValidateCPF(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validateCPFRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ValidateCPF", err)
		return
	}

	if err := httputil.WriteSuccess(w, h.service.ValidateCPF(req.CPF)); err != nil {
		h.log.Error("failed to write success response", "handler", "ValidateCPF", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PatientHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PatientHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/patients", h.Create)
	router.GET("/api/v1/patients", h.GetAll)
	router.GET("/api/v1/patients/defaults", h.Defaults)
	router.GET("/api/v1/patients/search", h.Search)
	router.POST("/api/v1/patients/validate-cpf", h.ValidateCPF)
	router.GET("/api/v1/patients/id/:id", h.GetByID)
	router.PATCH("/api/v1/patients/id/:id", h.Update)
	router.DELETE("/api/v1/patients/id/:id", h.Delete)
}
