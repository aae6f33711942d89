package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ravenmarsh/compass/internal/command"
	"github.com/ravenmarsh/compass/internal/memory"
	"github.com/ravenmarsh/compass/internal/orchestrator"
	"github.com/ravenmarsh/compass/internal/registry"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	orch     *orchestrator.Orchestrator
	memory   memory.Gateway
	commands *command.Registry
	logger   *zap.Logger
}

// NewHandler creates a new API handler. mem may be nil when no memory
// stores are configured; history endpoints then return empty lists.
func NewHandler(orch *orchestrator.Orchestrator, mem memory.Gateway, logger *zap.Logger) *Handler {
	cmds := command.NewRegistry()
	command.RegisterBuiltins(cmds)
	return &Handler{orch: orch, memory: mem, commands: cmds, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/query", h.handleQuery)
		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.addAgent)
		r.Delete("/agents/{id}", h.removeAgent)
		r.Post("/agents/{id}/query", h.queryAgent)
		r.Post("/capabilities/{capability}/query", h.queryCapability)
		r.Post("/agents/reload", h.reloadAgents)
		r.Get("/agents/validate", h.validateAgents)
		r.Post("/command", h.handleCommand)
		r.Get("/users/{userID}/history", h.userHistory)
		r.Get("/users/{userID}/recent", h.userRecent)
	})

	return r
}

type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

func (req *queryRequest) validate() string {
	if req.Query == "" {
		return "query is required"
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}
	return ""
}

// storeReporter is implemented by the memory manager; other Gateway
// implementations just get the basic health body.
type storeReporter interface {
	Stores() map[string]bool
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "service": "compass"}
	if sr, ok := h.memory.(storeReporter); ok {
		body["memory"] = sr.Stores()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	resp, err := h.orch.RouteAndExecute(r.Context(), req.Query, req.UserID)
	if err != nil {
		// Planning failures are the only request-level errors; agent
		// failures come back inside the response metadata.
		h.logger.Error("run failed before execution", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) queryAgent(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result := h.orch.ExecuteSpecific(r.Context(), chi.URLParam(r, "id"), req.Query, req.UserID)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) queryCapability(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	results := h.orch.ExecuteByCapability(r.Context(), chi.URLParam(r, "capability"), req.Query, req.UserID)
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.ListAgents())
}

func (h *Handler) addAgent(w http.ResponseWriter, r *http.Request) {
	var desc registry.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.orch.AddAgent(desc); err != nil {
		status := http.StatusBadRequest
		var dup *registry.DuplicateAgentError
		if registry.As(err, &dup) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, desc.Redacted())
}

func (h *Handler) removeAgent(w http.ResponseWriter, r *http.Request) {
	h.orch.RemoveAgent(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) reloadAgents(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.ReloadAgents(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"agents": len(h.orch.ListAgents()),
	})
}

func (h *Handler) validateAgents(w http.ResponseWriter, r *http.Request) {
	issues := h.orch.ValidateConfiguration()
	if issues == nil {
		issues = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

type commandRequest struct {
	Command string `json:"command"`
	UserID  string `json:"user_id"`
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !command.IsCommand(req.Command) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "command must start with /"})
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	cc := &command.CommandContext{UserID: req.UserID, Service: h.orch}
	if h.memory != nil {
		cc.History = h.memory
	}
	result, err := h.commands.Dispatch(r.Context(), req.Command, cc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) userHistory(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		writeJSON(w, http.StatusOK, []memory.Interaction{})
		return
	}
	recs, err := h.memory.HistoricalInteractions(r.Context(),
		chi.URLParam(r, "userID"), r.URL.Query().Get("agent_id"), 50)
	if err != nil || recs == nil {
		recs = []memory.Interaction{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) userRecent(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		writeJSON(w, http.StatusOK, []memory.Interaction{})
		return
	}
	recs, err := h.memory.RecentInteractions(r.Context(), chi.URLParam(r, "userID"), 10)
	if err != nil || recs == nil {
		recs = []memory.Interaction{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
