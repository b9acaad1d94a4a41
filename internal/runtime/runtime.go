// Package runtime is the single-threaded sound-event core. It owns every
// registry (sound groups, buses, playlists, ducking, custom events) and runs
// trigger firings against them. Callers serialize access; see package engine.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/duck"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/metrics"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/pipeline"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/retrigger"
	"github.com/gyaneshwarpardhi/soundrig/internal/settings"
	"github.com/gyaneshwarpardhi/soundrig/internal/sound"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
	"github.com/gyaneshwarpardhi/soundrig/internal/tween"
)

var (
	// ErrUnknownTrigger is returned when a trigger id does not resolve.
	ErrUnknownTrigger = errors.New("unknown trigger")
	// ErrVoiceLimit is returned when a bus refuses a new voice.
	ErrVoiceLimit = errors.New("bus voice limit reached")
)

var _ pipeline.Executor = (*Runtime)(nil)

// Options tune a Runtime.
type Options struct {
	// Store persists persistent_setting values. Nil uses an in-memory store.
	Store settings.Store
	// Seed fixes the random source. Zero seeds from the clock.
	Seed uint64
}

type triggerState struct {
	limiter  *retrigger.Limiter
	enabled  bool
	position event.Vec3
}

// Runtime is the registry context every action executes against.
type Runtime struct {
	clock event.Clock
	rng   *rand.Rand

	mixer          *mixer.Mixer
	sounds         *sound.Registry
	ducking        *duck.Controller
	controllers    map[string]*playlist.Controller
	controllerList []*playlist.Controller
	playlistMaster float64
	sched          *tween.Scheduler
	bus            *customevent.Bus
	store          settings.Store

	graph    *trigger.Graph
	triggers map[string]*triggerState
}

// New builds a runtime from a validated config and a compiled trigger graph.
func New(cfg *config.RigConfig, g *trigger.Graph, opts Options) (*Runtime, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := &Runtime{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sched:       tween.NewScheduler(),
		ducking:     duck.New(cfg.Ducking),
		controllers: make(map[string]*playlist.Controller),
		store:       opts.Store,
	}
	if r.store == nil {
		r.store = settings.NewMemory()
	}
	if err := r.buildMixer(cfg.Mixer); err != nil {
		return nil, err
	}
	if err := r.buildGroups(cfg.Groups); err != nil {
		return nil, err
	}
	if err := r.buildPlaylists(cfg); err != nil {
		return nil, err
	}
	r.bus = customevent.NewBus(r.locate, r.rng, cfg.Engine.MaxEventDepth)
	if err := r.SwapGraph(g); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) buildMixer(mc config.MixerConf) error {
	names := make([]string, 0, len(mc.Snapshots))
	for _, s := range mc.Snapshots {
		names = append(names, s.Name)
	}
	r.mixer = mixer.New(names...)
	r.mixer.MasterDb = mc.MasterVolumeDb
	r.playlistMaster = 1
	if mc.PlaylistMasterVolume != nil {
		r.playlistMaster = *mc.PlaylistMasterVolume
	}
	for _, bd := range mc.Buses {
		b := mixer.NewBus(bd.Name, bd.VolumeDb, bd.VoiceLimit, bd.LimitMode)
		b.Existing = bd.Existing
		b.Ducking = !bd.DisableDucking
		b.Occlusion = bd.Occlusion
		if _, err := r.mixer.AddBus(b); err != nil {
			return fmt.Errorf("mixer: %w", err)
		}
	}
	for _, s := range mc.Snapshots {
		if err := r.mixer.Snapshots().SetOffsets(s.Name, s.Buses); err != nil {
			return fmt.Errorf("mixer: %w", err)
		}
	}
	return nil
}

func (r *Runtime) buildGroups(defs []config.GroupDef) error {
	r.sounds = sound.NewRegistry(r.rng)
	for _, gd := range defs {
		busIndex := sound.NoBus
		if gd.Bus != "" {
			if busIndex = r.mixer.IndexOf(gd.Bus); busIndex < 0 {
				return fmt.Errorf("group %s: bus %q: %w", gd.Name, gd.Bus, mixer.ErrNotFound)
			}
		}
		vs := make([]sound.Variation, 0, len(gd.Variations))
		for _, vd := range gd.Variations {
			vs = append(vs, sound.Variation{
				Name:     vd.Name,
				Clip:     vd.Clip,
				VolumeDb: vd.VolumeDb,
				Weight:   vd.Weight,
				Length:   vd.Length,
				Pitch:    vd.Pitch,
				Loop:     vd.Loop,
			})
		}
		if err := r.sounds.Add(sound.NewGroup(gd.Name, gd.VolumeDb, gd.Importance, busIndex, vs)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) buildPlaylists(cfg *config.RigConfig) error {
	catalog := make(map[string]*playlist.Playlist, len(cfg.Playlists))
	for i := range cfg.Playlists {
		p := cfg.Playlists[i]
		catalog[p.Name] = &p
	}
	for _, cd := range cfg.Controllers {
		vol := 1.0
		if cd.Volume != nil {
			vol = *cd.Volume
		}
		c, err := playlist.NewController(cd.Name, catalog, cd.Playlist, vol, r.rng)
		if err != nil {
			return err
		}
		r.controllers[cd.Name] = c
		r.controllerList = append(r.controllerList, c)
		if cd.StartOnLoad {
			if err := c.Start(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SwapGraph installs a new trigger graph and its custom event declarations.
// Retrigger state, enablement and positions reset to the authored values of
// the new graph. On error the previous graph stays installed untouched.
func (r *Runtime) SwapGraph(g *trigger.Graph) error {
	states := make(map[string]*triggerState, g.Len())
	for _, t := range g.Triggers() {
		states[t.ID] = &triggerState{
			limiter:  retrigger.New(t.Retrigger),
			enabled:  !t.Disabled,
			position: t.Position,
		}
	}
	if err := r.bus.Configure(g.Events(), g.Subscriptions()); err != nil {
		return fmt.Errorf("swap graph: %w", err)
	}
	r.graph = g
	r.triggers = states
	return nil
}

// Graph returns the installed trigger graph.
func (r *Runtime) Graph() *trigger.Graph { return r.graph }

// Now returns the runtime clock.
func (r *Runtime) Now() event.Clock { return r.clock }

// Start re-applies persisted settings and fires every start trigger.
func (r *Runtime) Start(ctx context.Context) error {
	all, err := r.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for _, key := range settings.SortedKeys(all) {
		target, name := settings.SplitKey(key)
		if err := r.applySetting(target, name, all[key]); err != nil {
			slog.Warn("stored setting no longer applies", "key", key, "err", err)
		}
	}
	for _, t := range r.graph.OfKind(config.KindStart) {
		if _, err := r.FireTrigger(t.ID, event.FireContext{Origin: r.triggers[t.ID].position}); err != nil {
			slog.Warn("start trigger failed", "trigger", t.ID, "err", err)
		}
	}
	return nil
}

// Tick advances the runtime by dt seconds: one frame.
func (r *Runtime) Tick(dt float64) {
	r.clock.Frame++
	r.clock.Time += dt

	r.sched.Tick(dt)

	for _, v := range r.sounds.Advance(dt, r.rateOf) {
		if v.FinishedEvent != "" {
			r.publishFrom(v.FinishedEvent, v.Origin, "voice "+v.ID)
		}
	}

	r.ducking.Tick(dt)

	for _, c := range r.controllerList {
		for _, name := range c.Tick(dt) {
			r.publishFrom(name, event.Vec3{}, "controller "+c.Name)
		}
	}

	r.mixer.Tick(dt)

	metrics.ActiveVoices.Set(float64(len(r.sounds.Voices(nil))))
	metrics.DuckCutDb.Set(r.ducking.CutDb())
}

// rateOf is the extra playback rate applied by a voice's bus.
func (r *Runtime) rateOf(v *sound.Voice) float64 {
	k := v.Group.BusIndex()
	if r.mixer.BusPaused(k) {
		return 0
	}
	return r.mixer.BusPitch(k)
}

func (r *Runtime) locate(id string) (event.Vec3, bool) {
	st, ok := r.triggers[id]
	if !ok || !st.enabled {
		return event.Vec3{}, false
	}
	return st.position, true
}

// DeleteBus removes a bus. Groups routed to it become unrouted and groups on
// later buses keep their bus by moving down one index.
func (r *Runtime) DeleteBus(name string) error {
	k := r.mixer.IndexOf(name)
	if k < 0 {
		return fmt.Errorf("bus %q: %w", name, mixer.ErrNotFound)
	}
	groups := r.sounds.Groups()
	members := make([]mixer.Routed, len(groups))
	for i, g := range groups {
		members[i] = g
	}
	return r.mixer.DeleteBus(k, members)
}
