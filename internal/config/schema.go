package config

import (
	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/duck"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/retrigger"
)

// RigConfig is the top-level YAML structure.
type RigConfig struct {
	Version      string                   `yaml:"version"`
	Engine       EngineConf               `yaml:"engine"`
	Mixer        MixerConf                `yaml:"mixer"`
	Groups       []GroupDef               `yaml:"groups"`
	Playlists    []playlist.Playlist      `yaml:"playlists"`
	Controllers  []ControllerDef          `yaml:"controllers"`
	CustomEvents []customevent.Definition `yaml:"custom_events"`
	Ducking      []duck.Entry             `yaml:"ducking"`
	Triggers     []TriggerDef             `yaml:"triggers"`
}

// EngineConf holds tick and inbox settings.
type EngineConf struct {
	TickHz           int    `yaml:"tick_hz"`
	QueueDepth       int    `yaml:"queue_depth"`
	CommandTimeoutMs int    `yaml:"command_timeout_ms"`
	MaxEventDepth    int    `yaml:"max_event_depth"`
	Seed             uint64 `yaml:"seed"` // 0 = seed from time
	LogLevel         string `yaml:"log_level"`
}

// MixerConf declares buses, master levels and snapshots.
type MixerConf struct {
	MasterVolumeDb       float64       `yaml:"master_volume_db"`
	PlaylistMasterVolume *float64      `yaml:"playlist_master_volume,omitempty"`
	Buses                []BusDef      `yaml:"buses"`
	Snapshots            []SnapshotDef `yaml:"snapshots"`
}

// BusDef declares one bus. Bus order is significant: groups refer to it by index.
type BusDef struct {
	Name           string          `yaml:"name"`
	VolumeDb       float64         `yaml:"volume_db"`
	VoiceLimit     int             `yaml:"voice_limit"`
	LimitMode      mixer.LimitMode `yaml:"limit_mode"`
	Existing       bool            `yaml:"existing"`
	DisableDucking bool            `yaml:"disable_ducking"`
	Occlusion      bool            `yaml:"occlusion"`
}

// SnapshotDef names a mixer snapshot and the bus offsets it applies.
type SnapshotDef struct {
	Name  string             `yaml:"name"`
	Buses map[string]float64 `yaml:"buses"`
}

// GroupDef declares a sound group and its variations.
type GroupDef struct {
	Name       string         `yaml:"name"`
	Bus        string         `yaml:"bus"`
	VolumeDb   float64        `yaml:"volume_db"`
	Importance int            `yaml:"importance"`
	Variations []VariationDef `yaml:"variations"`
}

// VariationDef is one clip of a group.
type VariationDef struct {
	Name     string  `yaml:"name"`
	Clip     string  `yaml:"clip"`
	VolumeDb float64 `yaml:"volume_db"`
	Weight   int     `yaml:"weight"`
	Length   float64 `yaml:"length"`
	Pitch    float64 `yaml:"pitch"`
	Loop     bool    `yaml:"loop"`
}

// ControllerDef declares a playlist controller.
type ControllerDef struct {
	Name        string   `yaml:"name"`
	Playlist    string   `yaml:"playlist"`
	Volume      *float64 `yaml:"volume,omitempty"`
	StartOnLoad bool     `yaml:"start_on_load"`
}

// TriggerKind is the host event a trigger listens for.
type TriggerKind string

const (
	KindStart        TriggerKind = "start"
	KindEnable       TriggerKind = "enable"
	KindDisable      TriggerKind = "disable"
	KindCode         TriggerKind = "code"
	KindCollision    TriggerKind = "collision"
	KindTriggerEnter TriggerKind = "trigger_enter"
	KindTriggerExit  TriggerKind = "trigger_exit"
	KindClick        TriggerKind = "click"
	KindVisible      TriggerKind = "visible"
	KindInvisible    TriggerKind = "invisible"
	KindCustomEvent  TriggerKind = "custom_event"
)

// Kinds lists every trigger kind.
var Kinds = []TriggerKind{
	KindStart, KindEnable, KindDisable, KindCode, KindCollision, KindTriggerEnter,
	KindTriggerExit, KindClick, KindVisible, KindInvisible, KindCustomEvent,
}

// TriggerDef is one trigger instance and its event group.
type TriggerDef struct {
	ID       string      `yaml:"id"`
	Kind     TriggerKind `yaml:"kind"`
	Disabled bool        `yaml:"disabled"`
	Position event.Vec3  `yaml:"position"`
	// CustomEvent is the event a custom_event trigger receives.
	CustomEvent string           `yaml:"custom_event"`
	Retrigger   retrigger.Policy `yaml:"retrigger"`
	Filter      filter.Config    `yaml:"filter"`
	Distance    filter.Distance  `yaml:"distance"`
	Actions     action.List      `yaml:"actions"`
}
