package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/engine"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/metrics"
	"github.com/gyaneshwarpardhi/soundrig/internal/pipeline"
	"github.com/gyaneshwarpardhi/soundrig/internal/runtime"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
)

const maxBodyBytes = 1 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. It also subscribes
// to loader reloads so every accepted config swaps the trigger graph.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}
	loader.OnChange(h.applyConfig)

	h.mux.HandleFunc("POST /v1/triggers/{id}/fire", h.fireTrigger)
	h.mux.HandleFunc("POST /v1/triggers/{id}/enable", h.enableTrigger)
	h.mux.HandleFunc("POST /v1/triggers/{id}/disable", h.disableTrigger)
	h.mux.HandleFunc("POST /v1/triggers/{id}/position", h.moveTrigger)
	h.mux.HandleFunc("POST /v1/custom-events/{name}", h.publishCustomEvent)
	h.mux.HandleFunc("POST /v1/groups/{name}/play", h.playGroup)
	h.mux.HandleFunc("DELETE /v1/buses/{name}", h.deleteBus)
	h.mux.HandleFunc("POST /v1/actions", h.runAction)
	h.mux.HandleFunc("GET /v1/state", h.state)
	h.mux.HandleFunc("GET /v1/rules", h.listRules)
	h.mux.HandleFunc("POST /v1/rules/reload", h.reloadRules)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid JSON: %w", err)
}

// POST /v1/triggers/{id}/fire — fire one trigger with the host's context.
// With ?async=true the firing is queued and 202 returns before it runs.
func (h *Handler) fireTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var fc event.FireContext
	if err := decodeBody(r, &fc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fc.FiringID = uuid.NewString()

	if r.URL.Query().Get("async") == "true" {
		if h.eng.Graph().Trigger(id) == nil {
			writeFailure(w, fmt.Errorf("trigger %q: %w", id, runtime.ErrUnknownTrigger))
			return
		}
		err := h.eng.ProcessAsync(func(rt *runtime.Runtime) (any, error) {
			return rt.FireTrigger(id, fc)
		})
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"trigger": id, "firing_id": fc.FiringID})
		return
	}

	res, err := engine.Do(r.Context(), h.eng, func(rt *runtime.Runtime) (*runtime.FireResult, error) {
		return rt.FireTrigger(id, fc)
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/triggers/{id}/enable
func (h *Handler) enableTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.runCommand(w, r, func(rt *runtime.Runtime) (any, error) {
		return map[string]any{"trigger": id, "enabled": true}, rt.EnableTrigger(id)
	})
}

// POST /v1/triggers/{id}/disable
func (h *Handler) disableTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.runCommand(w, r, func(rt *runtime.Runtime) (any, error) {
		return map[string]any{"trigger": id, "enabled": false}, rt.DisableTrigger(id)
	})
}

// POST /v1/triggers/{id}/position — move a receiver.
func (h *Handler) moveTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var pos event.Vec3
	if err := decodeBody(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.runCommand(w, r, func(rt *runtime.Runtime) (any, error) {
		return map[string]any{"trigger": id, "position": pos}, rt.SetTriggerPosition(id, pos)
	})
}

type publishRequest struct {
	Origin event.Vec3 `json:"origin"`
}

type publishResponse struct {
	customevent.Report
	Firings []*runtime.FireResult `json:"firings"`
}

// POST /v1/custom-events/{name} — publish a custom event from the host.
func (h *Handler) publishCustomEvent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req publishRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := engine.Do(r.Context(), h.eng, func(rt *runtime.Runtime) (publishResponse, error) {
		rep, fired, err := rt.PublishCustomEvent(name, req.Origin)
		return publishResponse{Report: rep, Firings: fired}, err
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type playRequest struct {
	Variation string `json:"variation"`
}

// POST /v1/groups/{name}/play — start one voice outside any trigger.
func (h *Handler) playGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.runCommand(w, r, func(rt *runtime.Runtime) (any, error) {
		v, err := rt.PlayGroup(name, req.Variation)
		if err != nil {
			return nil, err
		}
		return map[string]any{"voice": v.ID, "group": name, "variation": v.Variation.Name}, nil
	})
}

// DELETE /v1/buses/{name}
func (h *Handler) deleteBus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.runCommand(w, r, func(rt *runtime.Runtime) (any, error) {
		return map[string]any{"deleted": name}, rt.DeleteBus(name)
	})
}

// POST /v1/actions — run one action document outside any trigger.
func (h *Handler) runAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := action.Decode(body)
	if err == nil {
		err = a.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := engine.Do(r.Context(), h.eng, func(rt *runtime.Runtime) ([]pipeline.Result, error) {
		fc := event.FireContext{FiringID: uuid.NewString(), Now: rt.Now()}
		return pipeline.Execute(fc, action.List{a}, rt), nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusOK
	if pipeline.Failed(results) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"results": results})
}

// GET /v1/state — snapshot of buses, groups, voices and playlists.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := engine.Do(r.Context(), h.eng, func(rt *runtime.Runtime) (runtime.State, error) {
		return rt.State(), nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type ruleSummary struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	CustomEvent string `json:"custom_event,omitempty"`
	Actions     int    `json:"actions"`
}

// GET /v1/rules — list loaded triggers.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  h.loader.Config().Version,
		"triggers": summarize(h.eng.Graph()),
	})
}

func summarize(g *trigger.Graph) []ruleSummary {
	out := make([]ruleSummary, 0, g.Len())
	for _, t := range g.Triggers() {
		out = append(out, ruleSummary{
			ID:          t.ID,
			Kind:        string(t.Kind),
			CustomEvent: t.CustomEvent,
			Actions:     len(t.Actions),
		})
	}
	return out
}

// POST /v1/rules/reload — hot-reload rules from disk.
func (h *Handler) reloadRules(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, engine.ErrQueueFull) || errors.Is(err, engine.ErrTimeout) || errors.Is(err, engine.ErrStopped) {
			status = statusFor(err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":       true,
		"version":        cfg.Version,
		"triggers_count": h.eng.Graph().Len(),
	})
}

// applyConfig rebuilds the trigger graph from cfg and installs it. Buses,
// groups and playlists are not changed by a reload. An error rejects the
// reload and the loader keeps the previous config.
func (h *Handler) applyConfig(cfg *config.RigConfig) error {
	g, err := trigger.Build(cfg)
	if err != nil {
		return fmt.Errorf("build triggers: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.eng.SwapGraph(ctx, g); err != nil {
		return err
	}
	slog.Info("triggers hot-reloaded", "triggers", g.Len(), "version", cfg.Version)
	return nil
}

// GET /healthz — always 200 (liveness).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if command queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func (h *Handler) runCommand(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	v, err := h.eng.ProcessSync(r.Context(), cmd)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
