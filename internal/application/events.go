package application

import (
	"time"

	"github.com/hypewave/cheermeter/internal/ports"
)

// Inbound event names consumed by the dispatcher.
const (
	EventCreateSession  = "create_session"
	EventJoinGroup      = "join_group"
	EventMonitorSession = "monitor_session"
	EventGroupReady     = "group_ready"
	EventStartSession   = "start_session"
	EventAudioStream    = "audio_stream"
	EventVideoFrame     = "video_frame"
	EventSessionEnd     = "session_end"
)

// Outbound event names produced by the engine.
const (
	EventConnected           = "connected"
	EventSessionCreated      = "session_created"
	EventGroupJoined         = "group_joined"
	EventJoinedGroup         = "joined_group"
	EventGroupsReadyStatus   = "groups_ready_status"
	EventSessionStarted      = "session_started"
	EventAudioAnalysisUpdate = "audio_analysis_update"
	EventFaceDetection       = "face_detection"
	EventSessionResults      = "session_results"
	EventError               = "error"
)

// CreateSessionEvent requests idempotent creation of a session.
type CreateSessionEvent struct {
	SessionID       string `json:"session_id" validate:"required"`
	NumGroups       int    `json:"num_groups" validate:"min=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
}

// JoinGroupEvent registers (or re-registers) a group within a session.
type JoinGroupEvent struct {
	SessionID string `json:"session_id" validate:"required"`
	GroupID   string `json:"group_id" validate:"required"`
	GroupName string `json:"group_name" validate:"required"`
}

// MonitorSessionEvent subscribes the caller to a session's broadcast
// scope without joining a group (master/observer console).
type MonitorSessionEvent struct {
	SessionID string `json:"session_id" validate:"required"`
}

// GroupReadyEvent marks one group as ready to start.
type GroupReadyEvent struct {
	SessionID string `json:"session_id" validate:"required"`
	GroupID   string `json:"group_id" validate:"required"`
}

// StartSessionEvent starts the session for all groups. The engine does
// not gate on all-groups-ready; that is the caller's responsibility.
type StartSessionEvent struct {
	SessionID string `json:"session_id" validate:"required"`
}

// AudioStreamEvent carries one base64-encoded frequency-bin sample.
type AudioStreamEvent struct {
	SessionID string  `json:"session_id" validate:"required"`
	GroupID   string  `json:"group_id" validate:"required"`
	AudioData string  `json:"audio_data" validate:"required"`
	Timestamp float64 `json:"timestamp"`
}

// VideoFrameEvent carries one base64-encoded video frame.
type VideoFrameEvent struct {
	SessionID string  `json:"session_id" validate:"required"`
	GroupID   string  `json:"group_id" validate:"required"`
	FrameData string  `json:"frame_data" validate:"required"`
	Timestamp float64 `json:"timestamp"`
}

// SessionEndEvent triggers finalization. Duplicate deliveries for an
// already-finalized session are silently absorbed.
type SessionEndEvent struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ConnectedEvent greets a newly connected client.
type ConnectedEvent struct {
	ClientID string `json:"sid"`
}

// SessionCreatedEvent acknowledges a create_session request. The session
// may have pre-existed; creation is idempotent.
type SessionCreatedEvent struct {
	SessionID string `json:"session_id"`
}

// GroupJoinedEvent announces a roster change to the whole session.
type GroupJoinedEvent struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

// JoinedGroupEvent acknowledges a join to the joining client only.
type JoinedGroupEvent struct {
	SessionID string `json:"session_id"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

// GroupsReadyStatusEvent carries the full ready-map for every group in
// the session, so observers always see consistent global state.
type GroupsReadyStatusEvent struct {
	ReadyStatus map[string]bool `json:"ready_status"`
}

// SessionStartedEvent announces the session start with the server
// timestamp.
type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	StartTime time.Time `json:"start_time"`
}

// AudioAnalysisUpdateEvent is the point-in-time scoring push sent to the
// group scope after each scored audio sample.
type AudioAnalysisUpdateEvent struct {
	GroupID            string  `json:"group_id"`
	CurrentScore       float64 `json:"current_score"`
	DBValue            float64 `json:"db_value"`
	HighFreqPercentage float64 `json:"high_freq_percentage"`
	IsNewHigh          bool    `json:"is_new_high"`
	HighScore          float64 `json:"high_score"`
	Timestamp          float64 `json:"timestamp"`
}

// FaceDetectionEvent forwards the per-face breakdown for live display.
type FaceDetectionEvent struct {
	GroupID     string             `json:"group_id"`
	Faces       []ports.FaceRegion `json:"faces"`
	FaceCount   int                `json:"face_count"`
	Score       float64            `json:"score"`
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
}

// ErrorEvent reports a non-fatal failure to the originating caller.
type ErrorEvent struct {
	Message string `json:"message"`
}
