// Package pipeline runs an event group's ordered action list.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
)

// Executor performs each kind of action against the runtime.
type Executor interface {
	PlaySound(fc event.FireContext, a *action.PlaySound) error
	GroupControl(fc event.FireContext, a *action.GroupControl) error
	BusControl(fc event.FireContext, a *action.BusControl) error
	PlaylistControl(fc event.FireContext, a *action.PlaylistControl) error
	GlobalControl(fc event.FireContext, a *action.GlobalControl) error
	MixerSnapshot(fc event.FireContext, a *action.MixerSnapshot) error
	PersistentSetting(fc event.FireContext, a *action.PersistentSetting) error
	FireCustomEvent(fc event.FireContext, a *action.FireCustomEvent) error
}

// Result is the outcome of one action.
type Result struct {
	Index   int         `json:"index"`
	Kind    action.Kind `json:"type"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

// Execute runs actions in order. A failing or panicking action is reported in
// its Result and does not stop the ones after it.
func Execute(fc event.FireContext, actions action.List, ex Executor) []Result {
	actions = action.EnsureNonEmpty(actions)
	results := make([]Result, 0, len(actions))
	for i, a := range actions {
		res := Result{Index: i, Kind: a.Kind(), Success: true}
		if err := run(fc, a, ex); err != nil {
			res.Success = false
			res.Message = err.Error()
			slog.Warn("action failed", "firing_id", fc.FiringID, "index", i, "type", a.Kind(), "err", err)
		}
		results = append(results, res)
	}
	return results
}

func run(fc event.FireContext, a action.Action, ex Executor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s action: %v", a.Kind(), r)
		}
	}()
	switch a := a.(type) {
	case *action.Noop:
		return nil
	case *action.PlaySound:
		return ex.PlaySound(fc, a)
	case *action.GroupControl:
		return ex.GroupControl(fc, a)
	case *action.BusControl:
		return ex.BusControl(fc, a)
	case *action.PlaylistControl:
		return ex.PlaylistControl(fc, a)
	case *action.GlobalControl:
		return ex.GlobalControl(fc, a)
	case *action.MixerSnapshot:
		return ex.MixerSnapshot(fc, a)
	case *action.PersistentSetting:
		return ex.PersistentSetting(fc, a)
	case *action.FireCustomEvent:
		return ex.FireCustomEvent(fc, a)
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
}

// Failed counts the failed results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
