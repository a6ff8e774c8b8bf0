package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/problemdetails"
)

const (
	problemTypeValidation = "https://palmyra.pro/problems/validation-error"
	problemTypeNotFound   = "https://palmyra.pro/problems/not-found"
	problemTypeConflict   = "https://palmyra.pro/problems/conflict"
	problemTypeInternal   = "https://palmyra.pro/problems/internal-error"
)

// Handler exposes the tenant lifecycle endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the tenant endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{tenantId}", h.get)
	r.Delete("/{tenantId}", h.remove)
	r.Post("/last-setup/remove", h.removeLastSetup)
	return r
}

type createRequest struct {
	TenantName           string `json:"tenantName"`
	HasOwnDb             *bool  `json:"hasOwnDb"`
	DatabaseInfoName     string `json:"databaseInfoName,omitempty"`
	ConnectionStringName string `json:"connectionStringName,omitempty"`
	DbProviderShortName  string `json:"dbProviderShortName,omitempty"`
	Region               string `json:"region,omitempty"`
	Version              string `json:"version,omitempty"`
}

type tenantResponse struct {
	TenantID         uuid.UUID `json:"tenantId"`
	TenantName       string    `json:"tenantName"`
	DatabaseInfoName string    `json:"databaseInfoName"`
	HasOwnDb         bool      `json:"hasOwnDb"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.ListTenants(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, toAPITenant(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTenant(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPITenant(t))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problemdetails.Write(w, problemdetails.New("Invalid request body", err.Error(), problemTypeValidation, http.StatusBadRequest))
		return
	}

	tenant, err := h.svc.CreateTenantDatabase(r.Context(), service.CreateInput{
		TenantName:           body.TenantName,
		HasOwnDb:             body.HasOwnDb,
		DatabaseInfoName:     body.DatabaseInfoName,
		ConnectionStringName: body.ConnectionStringName,
		DbProviderShortName:  body.DbProviderShortName,
		Region:               body.Region,
		Version:              body.Version,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/tenants/"+tenant.ID.String())
	writeJSON(w, http.StatusCreated, toAPITenant(tenant))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTenantDatabase(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeLastSetup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveLastDatabaseSetup(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		problemdetails.Write(w, problemdetails.New("Invalid tenant id", err.Error(), problemTypeValidation, http.StatusBadRequest))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTenantNotFound), errors.Is(err, shardingservice.ErrNotFound):
		problemdetails.Write(w, problemdetails.New("Not found", err.Error(), problemTypeNotFound, http.StatusNotFound))
	case errors.Is(err, service.ErrDuplicateTenantName):
		problemdetails.Write(w, problemdetails.New("Conflict", err.Error(), problemTypeConflict, http.StatusConflict))
	case errors.Is(err, service.ErrValidation), errors.Is(err, shardingservice.ErrValidation),
		errors.Is(err, shardingservice.ErrMissingTemplate),
		errors.Is(err, shardingservice.ErrUnsupportedProvider):
		problemdetails.Write(w, problemdetails.New("Validation error", err.Error(), problemTypeValidation, http.StatusBadRequest))
	default:
		h.logger.Error("tenant operation failed", zap.Error(err))
		problemdetails.Write(w, problemdetails.New("Internal error", "internal error", problemTypeInternal, http.StatusInternalServerError))
	}
}

func toAPITenant(t service.Tenant) tenantResponse {
	return tenantResponse{
		TenantID:         t.ID,
		TenantName:       t.Name,
		DatabaseInfoName: t.DatabaseInfoName,
		HasOwnDb:         t.HasOwnDb,
		CreatedAt:        t.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
