// Package domain defines events for the event-driven architecture.
// Services publish these on the event bus; presenters (CLI progress bar, preview window)
// subscribe without knowing the publisher.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Export events
	EventExportStateChanged EventType = "export.state_changed"
	EventExportProgress     EventType = "export.progress"
	EventExportCompleted    EventType = "export.completed"
	EventExportFailed       EventType = "export.failed"
	EventExportReset        EventType = "export.reset"

	// Session events
	EventSceneChanged  EventType = "scene.changed"
	EventPresetChanged EventType = "preset.changed"

	// Media events
	EventMediaLoaded     EventType = "media.loaded"
	EventMediaLoadFailed EventType = "media.load_failed"

	// Live loop events
	EventLiveStarted EventType = "live.started"
	EventLiveStopped EventType = "live.stopped"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// ExportStateChangedEvent is published on every export state transition.
type ExportStateChangedEvent struct {
	baseEvent
	JobID string
	From  ExportState
	To    ExportState
}

// Type returns the event type.
func (e ExportStateChangedEvent) Type() EventType {
	return EventExportStateChanged
}

// NewExportStateChangedEvent creates a new ExportStateChangedEvent.
func NewExportStateChangedEvent(jobID string, from, to ExportState) ExportStateChangedEvent {
	return ExportStateChangedEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
		From:      from,
		To:        to,
	}
}

// ExportProgressEvent is published whenever the export progress advances.
type ExportProgressEvent struct {
	baseEvent
	JobID          string
	State          ExportState
	Progress       float64 // Percentage in [0,100]
	FramesRendered int
	TotalFrames    int
}

// Type returns the event type.
func (e ExportProgressEvent) Type() EventType {
	return EventExportProgress
}

// NewExportProgressEvent creates a new ExportProgressEvent from a job snapshot.
func NewExportProgressEvent(job ExportJob) ExportProgressEvent {
	return ExportProgressEvent{
		baseEvent:      newBaseEvent(),
		JobID:          job.ID,
		State:          job.State,
		Progress:       job.Progress,
		FramesRendered: job.FramesRendered,
		TotalFrames:    job.TotalFrames,
	}
}

// ExportCompletedEvent is published once the video was handed to the download sink.
type ExportCompletedEvent struct {
	baseEvent
	JobID    string
	Filename string
	Size     int
	Elapsed  time.Duration
}

// Type returns the event type.
func (e ExportCompletedEvent) Type() EventType {
	return EventExportCompleted
}

// NewExportCompletedEvent creates a new ExportCompletedEvent.
func NewExportCompletedEvent(jobID, filename string, size int, elapsed time.Duration) ExportCompletedEvent {
	return ExportCompletedEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
		Filename:  filename,
		Size:      size,
		Elapsed:   elapsed,
	}
}

// ExportFailedEvent is published when an export run moves to failed.
type ExportFailedEvent struct {
	baseEvent
	JobID   string
	Stage   string
	Message string // User-facing
	Error   error
}

// Type returns the event type.
func (e ExportFailedEvent) Type() EventType {
	return EventExportFailed
}

// NewExportFailedEvent creates a new ExportFailedEvent.
func NewExportFailedEvent(jobID, stage, message string, err error) ExportFailedEvent {
	return ExportFailedEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
		Stage:     stage,
		Message:   message,
		Error:     err,
	}
}

// ExportResetEvent is published when an export session is discarded.
type ExportResetEvent struct {
	baseEvent
	JobID string // Empty when no job existed
}

// Type returns the event type.
func (e ExportResetEvent) Type() EventType {
	return EventExportReset
}

// NewExportResetEvent creates a new ExportResetEvent.
func NewExportResetEvent(jobID string) ExportResetEvent {
	return ExportResetEvent{
		baseEvent: newBaseEvent(),
		JobID:     jobID,
	}
}

// SceneChangedEvent is published after any session mutation.
type SceneChangedEvent struct {
	baseEvent
	Scene Scene // Deep copy
}

// Type returns the event type.
func (e SceneChangedEvent) Type() EventType {
	return EventSceneChanged
}

// NewSceneChangedEvent creates a new SceneChangedEvent.
func NewSceneChangedEvent(scene Scene) SceneChangedEvent {
	return SceneChangedEvent{
		baseEvent: newBaseEvent(),
		Scene:     scene,
	}
}

// PresetChangedEvent is published when the active preset changes.
type PresetChangedEvent struct {
	baseEvent
	From Preset
	To   Preset
}

// Type returns the event type.
func (e PresetChangedEvent) Type() EventType {
	return EventPresetChanged
}

// NewPresetChangedEvent creates a new PresetChangedEvent.
func NewPresetChangedEvent(from, to Preset) PresetChangedEvent {
	return PresetChangedEvent{
		baseEvent: newBaseEvent(),
		From:      from,
		To:        to,
	}
}

// MediaLoadedEvent is published when a background or album-art asset is ready.
type MediaLoadedEvent struct {
	baseEvent
	Slot string // "background" or "album_art"
	Ref  string
}

// Type returns the event type.
func (e MediaLoadedEvent) Type() EventType {
	return EventMediaLoaded
}

// NewMediaLoadedEvent creates a new MediaLoadedEvent.
func NewMediaLoadedEvent(slot, ref string) MediaLoadedEvent {
	return MediaLoadedEvent{
		baseEvent: newBaseEvent(),
		Slot:      slot,
		Ref:       ref,
	}
}

// MediaLoadFailedEvent is published when an asset fails to load and its slot falls
// back to the default. It never changes export state.
type MediaLoadFailedEvent struct {
	baseEvent
	Slot  string
	Ref   string
	Error error
}

// Type returns the event type.
func (e MediaLoadFailedEvent) Type() EventType {
	return EventMediaLoadFailed
}

// NewMediaLoadFailedEvent creates a new MediaLoadFailedEvent.
func NewMediaLoadFailedEvent(slot, ref string, err error) MediaLoadFailedEvent {
	return MediaLoadFailedEvent{
		baseEvent: newBaseEvent(),
		Slot:      slot,
		Ref:       ref,
		Error:     err,
	}
}

// LiveStartedEvent is published when the live render loop starts ticking.
type LiveStartedEvent struct {
	baseEvent
	Interval time.Duration
}

// Type returns the event type.
func (e LiveStartedEvent) Type() EventType {
	return EventLiveStarted
}

// NewLiveStartedEvent creates a new LiveStartedEvent.
func NewLiveStartedEvent(interval time.Duration) LiveStartedEvent {
	return LiveStartedEvent{
		baseEvent: newBaseEvent(),
		Interval:  interval,
	}
}

// LiveStoppedEvent is published when the live render loop stops.
type LiveStoppedEvent struct {
	baseEvent
	Frames uint64 // Frames presented since start
}

// Type returns the event type.
func (e LiveStoppedEvent) Type() EventType {
	return EventLiveStopped
}

// NewLiveStoppedEvent creates a new LiveStoppedEvent.
func NewLiveStoppedEvent(frames uint64) LiveStoppedEvent {
	return LiveStoppedEvent{
		baseEvent: newBaseEvent(),
		Frames:    frames,
	}
}
