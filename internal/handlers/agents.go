package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/models"
)

const agentsFailed = "Failed to run legal agents"

type agentRunner interface {
	Run(ctx context.Context, task, agentType string) (string, error)
}

type runQueue interface {
	Enqueue(ctx context.Context, task, agentType string) (*models.AgentRun, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AgentRun, error)
}

type AgentHandler struct {
	runner  agentRunner
	catalog *agents.Catalog
	runs    runQueue
}

// NewAgentHandler wires the agent endpoints. runs may be nil when no queue is
// configured; the asynchronous routes are then not mounted.
func NewAgentHandler(runner agentRunner, catalog *agents.Catalog, runs runQueue) *AgentHandler {
	return &AgentHandler{runner: runner, catalog: catalog, runs: runs}
}

func (h *AgentHandler) HasRuns() bool {
	return h.runs != nil
}

// decodeAgentRequest reads and validates an agent request. It writes the
// error response itself and reports whether the caller should continue.
func decodeAgentRequest(w http.ResponseWriter, r *http.Request) (models.AgentRequest, bool) {
	var req models.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return req, false
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "Task is required")
		return req, false
	}
	if req.AgentType == "" {
		req.AgentType = models.DefaultAgentType
	}
	return req, true
}

// Run executes the agent script synchronously and returns its output.
func (h *AgentHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAgentRequest(w, r)
	if !ok {
		return
	}

	h.checkAgentType(r, req.AgentType)

	result, err := h.runner.Run(r.Context(), req.Task, req.AgentType)
	if err != nil {
		details := err.Error()
		var pErr *agents.ProcessError
		if errors.As(err, &pErr) {
			details = pErr.Details()
		}
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("agent_type", req.AgentType).
			Msg(agentsFailed)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: agentsFailed, Details: details})
		return
	}

	writeJSON(w, http.StatusOK, models.AgentResponse{
		Result:    result,
		AgentType: req.AgentType,
		Task:      req.Task,
	})
}

// checkAgentType logs agent types missing from the catalogue. They are still
// passed to the script, which answers them itself.
func (h *AgentHandler) checkAgentType(r *http.Request, agentType string) {
	if _, ok := h.catalog.Lookup(agentType); !ok {
		log.Warn().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("agent_type", agentType).
			Msg("unknown agent type")
	}
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": h.catalog.Agents})
}

// CreateRun queues an agent run for the worker pool.
func (h *AgentHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAgentRequest(w, r)
	if !ok {
		return
	}

	h.checkAgentType(r, req.AgentType)

	run, err := h.runs.Enqueue(r.Context(), req.Task, req.AgentType)
	if err != nil {
		handleServiceError(w, r, err, "Failed to queue agent run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"runId":  run.ID,
		"status": run.Status,
	})
}

func (h *AgentHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, agents.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		handleServiceError(w, r, err, "Failed to load agent run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
