package action

// Kind discriminates the closed set of action payloads.
type Kind string

const (
	KindNoop              Kind = "noop"
	KindPlaySound         Kind = "play_sound"
	KindGroupControl      Kind = "group_control"
	KindBusControl        Kind = "bus_control"
	KindPlaylistControl   Kind = "playlist_control"
	KindGlobalControl     Kind = "global_control"
	KindMixerSnapshot     Kind = "mixer_snapshot"
	KindPersistentSetting Kind = "persistent_setting"
	KindCustomEvent       Kind = "custom_event"
)

// Action is one typed operation executed as part of a trigger firing.
// The set of implementations is closed; see the payload types below.
type Action interface {
	Kind() Kind
	Validate() error
	sealed()
}

// VariationMode selects how a play_sound action picks a variation.
type VariationMode string

const (
	VariationRandom VariationMode = "random"
	VariationByName VariationMode = "by_name"
)

// PitchMode selects the pitch treatment of a play_sound action.
type PitchMode string

const (
	PitchNone  PitchMode = "none"
	PitchFixed PitchMode = "fixed"
	PitchGlide PitchMode = "glide"
)

// AfterFade is what happens once a fade-to-volume completes.
type AfterFade string

const (
	AfterFadeNone      AfterFade = "none"
	AfterFadeStop      AfterFade = "stop"
	AfterFadeRestore   AfterFade = "restore"
	AfterFadeFireEvent AfterFade = "fire_event"
)

// Noop does nothing. Empty pipelines are populated with one.
type Noop struct{}

// PlaySound starts a voice in a sound group.
type PlaySound struct {
	Group         string        `yaml:"group"`
	VariationMode VariationMode `yaml:"variation_mode,omitempty"`
	Variation     string        `yaml:"variation,omitempty"`
	VolumeDb      float64       `yaml:"volume_db,omitempty"`
	PitchMode     PitchMode     `yaml:"pitch_mode,omitempty"`
	Pitch         float64       `yaml:"pitch,omitempty"`
	GlideBy       float64       `yaml:"glide_by,omitempty"`
	GlideTime     float64       `yaml:"glide_time,omitempty"`
	Delay         float64       `yaml:"delay,omitempty"`
	FinishedEvent string        `yaml:"finished_event,omitempty"`
}

// GroupCommand enumerates sound-group commands.
type GroupCommand string

const (
	GroupStopOldVoices    GroupCommand = "stop_old_voices"
	GroupFadeOutOldVoices GroupCommand = "fade_out_old_voices"
	GroupToggle           GroupCommand = "toggle"
	GroupGlidePitch       GroupCommand = "glide_pitch"
	GroupFadeToVolume     GroupCommand = "fade_to_volume"
	GroupFadeOutAll       GroupCommand = "fade_out_all"
	GroupRouteToBus       GroupCommand = "route_to_bus"
	GroupMute             GroupCommand = "mute"
	GroupUnmute           GroupCommand = "unmute"
	GroupSolo             GroupCommand = "solo"
	GroupUnsolo           GroupCommand = "unsolo"
	GroupPause            GroupCommand = "pause"
	GroupUnpause          GroupCommand = "unpause"
	GroupStop             GroupCommand = "stop"
)

// GroupControl applies one command to a sound group, or to every group.
type GroupControl struct {
	Command        GroupCommand `yaml:"command"`
	Group          string       `yaml:"group,omitempty"`
	AllGroups      bool         `yaml:"all_groups,omitempty"`
	MinAge         float64      `yaml:"min_age,omitempty"`
	FadeTime       float64      `yaml:"fade_time,omitempty"`
	Pitch          float64      `yaml:"pitch,omitempty"`
	GlideTime      float64      `yaml:"glide_time,omitempty"`
	VolumeDb       float64      `yaml:"volume_db,omitempty"`
	AfterFade      AfterFade    `yaml:"after_fade,omitempty"`
	AfterFadeEvent string       `yaml:"after_fade_event,omitempty"`
	Bus            string       `yaml:"bus,omitempty"`
}

// BusCommand enumerates bus commands.
type BusCommand string

const (
	BusGlidePitch       BusCommand = "glide_pitch"
	BusFadeToVolume     BusCommand = "fade_to_volume"
	BusPause            BusCommand = "pause"
	BusUnpause          BusCommand = "unpause"
	BusStopOldVoices    BusCommand = "stop_old_voices"
	BusFadeOutOldVoices BusCommand = "fade_out_old_voices"
	BusStop             BusCommand = "stop"
	BusMute             BusCommand = "mute"
	BusUnmute           BusCommand = "unmute"
)

// BusControl applies one command to a bus, or to every bus.
type BusControl struct {
	Command        BusCommand `yaml:"command"`
	Bus            string     `yaml:"bus,omitempty"`
	AllBuses       bool       `yaml:"all_buses,omitempty"`
	MinAge         float64    `yaml:"min_age,omitempty"`
	FadeTime       float64    `yaml:"fade_time,omitempty"`
	Pitch          float64    `yaml:"pitch,omitempty"`
	GlideTime      float64    `yaml:"glide_time,omitempty"`
	VolumeDb       float64    `yaml:"volume_db,omitempty"`
	AfterFade      AfterFade  `yaml:"after_fade,omitempty"`
	AfterFadeEvent string     `yaml:"after_fade_event,omitempty"`
}

// PlaylistCommand enumerates playlist-controller commands.
type PlaylistCommand string

const (
	PlaylistStart              PlaylistCommand = "start"
	PlaylistChange             PlaylistCommand = "change_playlist"
	PlaylistStopLoopingCurrent PlaylistCommand = "stop_looping_current"
	PlaylistQueueSong          PlaylistCommand = "add_song_to_queue"
	PlaylistPlaySong           PlaylistCommand = "play_song"
	PlaylistFadeToVolume       PlaylistCommand = "fade_to_volume"
	PlaylistStop               PlaylistCommand = "stop"
	PlaylistNext               PlaylistCommand = "next"
	PlaylistPause              PlaylistCommand = "pause"
	PlaylistUnpause            PlaylistCommand = "unpause"
)

// PlaylistControl applies one command to a playlist controller, or to all of them.
type PlaylistControl struct {
	Command        PlaylistCommand `yaml:"command"`
	Controller     string          `yaml:"controller,omitempty"`
	AllControllers bool            `yaml:"all_controllers,omitempty"`
	Playlist       string          `yaml:"playlist,omitempty"`
	AutoStart      bool            `yaml:"auto_start,omitempty"`
	Song           string          `yaml:"song,omitempty"`
	Volume         float64         `yaml:"volume,omitempty"`
	FadeTime       float64         `yaml:"fade_time,omitempty"`
	AfterFade      AfterFade       `yaml:"after_fade,omitempty"`
	AfterFadeEvent string          `yaml:"after_fade_event,omitempty"`
}

// GlobalCommand enumerates master-level commands.
type GlobalCommand string

const (
	GlobalSetMasterVolume         GlobalCommand = "set_master_volume"
	GlobalSetPlaylistMasterVolume GlobalCommand = "set_playlist_master_volume"
)

// GlobalControl sets the master mixer volume (dB) or the master playlist volume (0..1).
type GlobalControl struct {
	Command GlobalCommand `yaml:"command"`
	Volume  float64       `yaml:"volume"`
}

// SnapshotMode selects single-snapshot transition or weighted blend.
type SnapshotMode string

const (
	SnapshotTransition SnapshotMode = "transition"
	SnapshotBlend      SnapshotMode = "blend"
)

// SnapshotWeight is one entry of a blended snapshot.
type SnapshotWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// MixerSnapshot moves the mixer to a snapshot, or a blend of snapshots, over time.
type MixerSnapshot struct {
	Mode           SnapshotMode     `yaml:"mode"`
	Snapshot       string           `yaml:"snapshot,omitempty"`
	TransitionTime float64          `yaml:"transition_time,omitempty"`
	Snapshots      []SnapshotWeight `yaml:"snapshots,omitempty"`
}

// SettingTarget is what a persistent setting addresses.
type SettingTarget string

const (
	SettingBus   SettingTarget = "bus"
	SettingGroup SettingTarget = "group"
	SettingMixer SettingTarget = "mixer"
	SettingMusic SettingTarget = "music"
)

// PersistentSetting stores a volume across sessions and applies it.
type PersistentSetting struct {
	Target SettingTarget `yaml:"target"`
	Name   string        `yaml:"name,omitempty"`
	Volume float64       `yaml:"volume"`
}

// FireCustomEvent publishes a named custom event from the firing origin.
type FireCustomEvent struct {
	Event string `yaml:"event"`
}

func (*Noop) Kind() Kind              { return KindNoop }
func (*PlaySound) Kind() Kind         { return KindPlaySound }
func (*GroupControl) Kind() Kind      { return KindGroupControl }
func (*BusControl) Kind() Kind        { return KindBusControl }
func (*PlaylistControl) Kind() Kind   { return KindPlaylistControl }
func (*GlobalControl) Kind() Kind     { return KindGlobalControl }
func (*MixerSnapshot) Kind() Kind     { return KindMixerSnapshot }
func (*PersistentSetting) Kind() Kind { return KindPersistentSetting }
func (*FireCustomEvent) Kind() Kind   { return KindCustomEvent }

func (*Noop) sealed()              {}
func (*PlaySound) sealed()         {}
func (*GroupControl) sealed()      {}
func (*BusControl) sealed()        {}
func (*PlaylistControl) sealed()   {}
func (*GlobalControl) sealed()     {}
func (*MixerSnapshot) sealed()     {}
func (*PersistentSetting) sealed() {}
func (*FireCustomEvent) sealed()   {}
