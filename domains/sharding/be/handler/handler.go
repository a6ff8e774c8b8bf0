package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/platform/go/problemdetails"
)

const (
	problemTypeValidation = "https://palmyra.pro/problems/validation-error"
	problemTypeNotFound   = "https://palmyra.pro/problems/not-found"
	problemTypeConflict   = "https://palmyra.pro/problems/conflict"
	problemTypeInternal   = "https://palmyra.pro/problems/internal-error"
)

// Handler exposes the shard directory administration endpoints.
type Handler struct {
	resolver  *service.Resolver
	directory *service.Directory
	logger    *zap.Logger
}

// New constructs a Handler instance.
func New(resolver *service.Resolver, directory *service.Directory, logger *zap.Logger) *Handler {
	if resolver == nil {
		panic("sharding resolver is required")
	}
	if directory == nil {
		panic("sharding directory is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{resolver: resolver, directory: directory, logger: logger}
}

// Routes mounts the directory endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/usage", h.usage)
	r.Get("/connection-names", h.connectionNames)
	r.Get("/providers", h.providers)
	r.Post("/", h.add)
	r.Post("/test", h.test)
	r.Put("/{name}", h.update)
	r.Delete("/{name}", h.remove)
	return r
}

// shardEntry is the wire form of a directory entry.
type shardEntry struct {
	Name           string `json:"name"`
	ConnectionName string `json:"connectionName"`
	DatabaseName   string `json:"databaseName,omitempty"`
	DatabaseType   string `json:"databaseType"`
}

type shardUsage struct {
	DatabaseInfoName string   `json:"databaseInfoName"`
	HasOwnDb         *bool    `json:"hasOwnDb"`
	TenantNames      []string `json:"tenantNames"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.resolver.GetAllPossibleShardingData(r.Context())
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}

	items := make([]shardEntry, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toAPIEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	usages, err := h.resolver.DatabaseInfoNamesWithTenantNames(r.Context())
	if err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}

	items := make([]shardUsage, 0, len(usages))
	for _, usage := range usages {
		items = append(items, shardUsage{
			DatabaseInfoName: usage.DatabaseInfoName,
			HasOwnDb:         usage.HasOwnDb,
			TenantNames:      usage.TenantNames,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) connectionNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.resolver.GetConnectionStringNames()})
}

func (h *Handler) providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.resolver.ProviderShortNames()})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}

	if err := h.directory.Add(r.Context(), entry); err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/api/v1/admin/shards/"+url.PathEscape(entry.Name))
	writeJSON(w, http.StatusCreated, toAPIEntry(entry))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if entry.Name != "" && entry.Name != name {
		problem := problemdetails.New("Invalid request body", "entry name must match the URL", problemTypeValidation, http.StatusBadRequest)
		problemdetails.Write(w, problem)
		return
	}
	entry.Name = name

	if err := h.directory.Update(r.Context(), entry); err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAPIEntry(entry))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.Remove(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// test dry-runs the connection string build without persisting anything.
func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}

	if err := h.resolver.TestFormingConnectionString(r.Context(), entry); err != nil {
		h.writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) decodeEntry(w http.ResponseWriter, r *http.Request) (service.DatabaseInformation, bool) {
	var body shardEntry
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem := problemdetails.New("Invalid request body", err.Error(), problemTypeValidation, http.StatusBadRequest)
		problemdetails.Write(w, problem)
		return service.DatabaseInformation{}, false
	}
	return service.DatabaseInformation{
		Name:           body.Name,
		ConnectionName: body.ConnectionName,
		DatabaseName:   body.DatabaseName,
		DatabaseType:   body.DatabaseType,
	}, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, defaultStatus int) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problemdetails.Write(w, problemdetails.New("Not found", err.Error(), problemTypeNotFound, http.StatusNotFound))
	case errors.Is(err, service.ErrDuplicateName):
		problemdetails.Write(w, problemdetails.New("Conflict", err.Error(), problemTypeConflict, http.StatusConflict))
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrMissingTemplate),
		errors.Is(err, service.ErrUnsupportedProvider),
		errors.Is(err, provider.ErrInvalidTemplate),
		errors.Is(err, provider.ErrMissingDatabaseName):
		problemdetails.Write(w, problemdetails.New("Validation error", err.Error(), problemTypeValidation, http.StatusBadRequest))
	default:
		h.logger.Error("shard directory operation failed", zap.Error(err))
		problemdetails.Write(w, problemdetails.New("Internal error", "internal error", problemTypeInternal, defaultStatus))
	}
}

func toAPIEntry(entry service.DatabaseInformation) shardEntry {
	return shardEntry{
		Name:           entry.Name,
		ConnectionName: entry.ConnectionName,
		DatabaseName:   entry.DatabaseName,
		DatabaseType:   entry.DatabaseType,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
