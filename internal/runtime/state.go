package runtime

import (
	"math"

	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/sound"
)

// State is a point-in-time view of the runtime for inspection.
type State struct {
	Frame          uint64             `json:"frame"`
	Time           float64            `json:"time"`
	MasterDb       float64            `json:"master_db"`
	PlaylistMaster float64            `json:"playlist_master"`
	DuckCutDb      float64            `json:"duck_cut_db"`
	Snapshots      map[string]float64 `json:"snapshots"`
	Buses          []BusState         `json:"buses"`
	Groups         []GroupState       `json:"groups"`
	Voices         []VoiceState       `json:"voices"`
	Controllers    []ControllerState  `json:"controllers"`
	Triggers       []TriggerState     `json:"triggers"`
}

type BusState struct {
	Name     string  `json:"name"`
	Index    int     `json:"index"`
	VolumeDb float64 `json:"volume_db"`
	Pitch    float64 `json:"pitch"`
	Muted    bool    `json:"muted"`
	Paused   bool    `json:"paused"`
	Voices   int     `json:"voices"`
}

type GroupState struct {
	Name     string  `json:"name"`
	Bus      string  `json:"bus"`
	VolumeDb float64 `json:"volume_db"`
	Pitch    float64 `json:"pitch"`
	Muted    bool    `json:"muted"`
	Soloed   bool    `json:"soloed"`
	Paused   bool    `json:"paused"`
	Voices   int     `json:"voices"`
}

type VoiceState struct {
	ID        string  `json:"id"`
	Group     string  `json:"group"`
	Variation string  `json:"variation"`
	Clip      string  `json:"clip"`
	Owner     string  `json:"owner,omitempty"`
	Position  float64 `json:"position"`
	Pitch     float64 `json:"pitch"`
	// Gain is the final linear gain after group, bus, master, snapshot,
	// fade, mute and solo.
	Gain float64 `json:"gain"`
}

type ControllerState struct {
	Name     string            `json:"name"`
	Playlist string            `json:"playlist"`
	State    playlist.State    `json:"state"`
	Song     string            `json:"song,omitempty"`
	Position float64           `json:"position"`
	Volume   float64           `json:"volume"`
	Paused   bool              `json:"paused"`
	Fading   bool              `json:"fading"`
	Queue    []string          `json:"queue"`
	Outputs  []playlist.Output `json:"outputs"`
}

type TriggerState struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	Enabled bool    `json:"enabled"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// State snapshots the runtime.
func (r *Runtime) State() State {
	s := State{
		Frame:          r.clock.Frame,
		Time:           r.clock.Time,
		MasterDb:       r.mixer.MasterDb,
		PlaylistMaster: r.playlistMaster,
		DuckCutDb:      r.ducking.CutDb(),
		Snapshots:      r.mixer.Snapshots().Weights(),
	}
	for i, b := range r.mixer.Buses() {
		s.Buses = append(s.Buses, BusState{
			Name: b.Name, Index: i, VolumeDb: b.VolumeDb, Pitch: b.Pitch,
			Muted: b.Muted, Paused: b.Paused, Voices: len(r.sounds.BusVoices(i)),
		})
	}
	for _, g := range r.sounds.Groups() {
		s.Groups = append(s.Groups, GroupState{
			Name: g.Name, Bus: r.busName(g.BusIndex()), VolumeDb: g.VolumeDb, Pitch: g.Pitch,
			Muted: g.Muted, Soloed: g.Soloed, Paused: g.Paused, Voices: len(r.sounds.GroupVoices(g)),
		})
	}
	for _, v := range r.sounds.Voices(nil) {
		s.Voices = append(s.Voices, VoiceState{
			ID: v.ID, Group: v.Group.Name, Variation: v.Variation.Name, Clip: v.Variation.Clip,
			Owner: v.Owner, Position: v.Position, Pitch: v.Pitch * v.Group.Pitch * r.rateOf(v),
			Gain: r.VoiceGain(v),
		})
	}
	musicGain := r.MusicGain()
	for _, c := range r.controllerList {
		song, pos := c.Current()
		s.Controllers = append(s.Controllers, ControllerState{
			Name: c.Name, Playlist: c.Playlist(), State: c.State(), Song: song, Position: pos,
			Volume: c.Volume(), Paused: c.Paused(), Fading: c.Fading(), Queue: c.Queue(), Outputs: c.Outputs(musicGain),
		})
	}
	for _, t := range r.graph.Triggers() {
		st := r.triggers[t.ID]
		s.Triggers = append(s.Triggers, TriggerState{
			ID: t.ID, Kind: string(t.Kind), Enabled: st.enabled,
			X: st.position.X, Y: st.position.Y, Z: st.position.Z,
		})
	}
	return s
}

// VoiceGain is the linear gain a voice is heard at.
func (r *Runtime) VoiceGain(v *sound.Voice) float64 {
	if !r.sounds.Audible(v.Group) {
		return 0
	}
	db := r.mixer.EffectiveDb(v.Group.BusIndex(), v.Group.VolumeDb, v.Variation.VolumeDb, v.VolumeDb)
	if math.IsInf(db, -1) {
		return 0
	}
	return mixer.DbToGain(db) * v.FadeGain
}

// MusicGain is the gain applied to every playlist output on top of song and
// controller volume: the playlist master times the duck gain.
func (r *Runtime) MusicGain() float64 {
	return r.playlistMaster * r.ducking.Gain()
}
