// Package application wires the session registry, streaming ingestion,
// and finalization logic together behind the event dispatcher.
package application

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hypewave/cheermeter/infrastructure/scoring"
	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

// sessionState bundles everything the registry owns for one session:
// the session metadata, the per-group accumulators, and the shared audio
// scorer whose high score spans the whole event.
type sessionState struct {
	session      *domain.Session
	accumulators map[string]*domain.GroupAccumulator
	scorer       *scoring.AudioScorer
}

// Registry is the process-wide owner of all session, group, and
// accumulator state. No other component mutates that state directly;
// everything goes through registry methods. The dispatcher invokes those
// methods from a single goroutine, so the registry needs no locking.
type Registry struct {
	logger      logging.LoggerAdapter
	broadcaster ports.Broadcaster
	detector    ports.ExpressionDetector
	limiter     StreamLimiter
	metrics     ports.MetricsCollector

	scorerConfig scoring.Config
	sessions     map[string]*sessionState

	now func() time.Time
}

// StreamLimiter bounds per-group streaming ingestion. Allow reports
// whether one more sample from the given stream may be processed now;
// samples over the limit are dropped, not queued.
type StreamLimiter interface {
	Allow(sessionID, groupID, stream string) bool
}

// NewRegistry creates an empty registry. The broadcaster and logger are
// required; detector, limiter, and metrics may be nil, disabling the
// corresponding behavior.
func NewRegistry(
	logger logging.LoggerAdapter,
	broadcaster ports.Broadcaster,
	detector ports.ExpressionDetector,
	limiter StreamLimiter,
	metrics ports.MetricsCollector,
	scorerConfig scoring.Config,
) *Registry {
	return &Registry{
		logger:       logger,
		broadcaster:  broadcaster,
		detector:     detector,
		limiter:      limiter,
		metrics:      metrics,
		scorerConfig: scorerConfig,
		sessions:     make(map[string]*sessionState),
		now:          time.Now,
	}
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int { return len(r.sessions) }

// CreateSession allocates a session plus a fresh audio scorer for the
// given id. Creation is idempotent: an existing id is left untouched and
// logged, never an error. The caller receives a session_created ack
// either way.
func (r *Registry) CreateSession(clientID string, ev CreateSessionEvent) error {
	if _, exists := r.sessions[ev.SessionID]; exists {
		r.logger.Info("session already exists", zap.String("session_id", ev.SessionID))
	} else {
		scorer, err := scoring.NewAudioScorer(ev.SessionID, r.scorerConfig)
		if err != nil {
			return fmt.Errorf("creating audio scorer: %w", err)
		}
		r.sessions[ev.SessionID] = &sessionState{
			session: &domain.Session{
				ID:              ev.SessionID,
				NumGroups:       ev.NumGroups,
				DurationMinutes: ev.DurationMinutes,
				CreatedAt:       r.now(),
				Groups:          make(map[string]*domain.Group),
			},
			accumulators: make(map[string]*domain.GroupAccumulator),
			scorer:       scorer,
		}
		r.logger.Info("session created",
			zap.String("session_id", ev.SessionID),
			zap.Int("num_groups", ev.NumGroups),
		)
		r.gaugeActiveSessions()
	}

	return r.broadcaster.Reply(clientID, EventSessionCreated, SessionCreatedEvent{
		SessionID: ev.SessionID,
	})
}

// JoinGroup inserts or overwrites group metadata (last-writer-wins),
// lazily creates the group's accumulator, and subscribes the caller to
// both the group scope and the session scope.
func (r *Registry) JoinGroup(clientID string, ev JoinGroupEvent) error {
	state, ok := r.sessions[ev.SessionID]
	if !ok {
		return domain.NewSessionNotFound(ev.SessionID)
	}

	if _, rejoined := state.session.Groups[ev.GroupID]; !rejoined {
		state.session.GroupOrder = append(state.session.GroupOrder, ev.GroupID)
	}
	state.session.Groups[ev.GroupID] = &domain.Group{
		ID:   ev.GroupID,
		Name: ev.GroupName,
	}
	if _, ok := state.accumulators[ev.GroupID]; !ok {
		state.accumulators[ev.GroupID] = domain.NewGroupAccumulator()
	}

	r.broadcaster.Subscribe(clientID, ports.GroupScope(ev.SessionID, ev.GroupID))
	r.broadcaster.Subscribe(clientID, ports.SessionScope(ev.SessionID))

	r.logger.Info("group joined",
		zap.String("session_id", ev.SessionID),
		zap.String("group_id", ev.GroupID),
		zap.String("group_name", ev.GroupName),
	)

	if err := r.broadcaster.Publish(ports.SessionScope(ev.SessionID), EventGroupJoined, GroupJoinedEvent{
		GroupID:   ev.GroupID,
		GroupName: ev.GroupName,
	}); err != nil {
		return fmt.Errorf("broadcasting group join: %w", err)
	}
	return r.broadcaster.Reply(clientID, EventJoinedGroup, JoinedGroupEvent{
		SessionID: ev.SessionID,
		GroupID:   ev.GroupID,
		GroupName: ev.GroupName,
	})
}

// MonitorSession subscribes the caller to the session scope without
// joining a group, for master/observer consoles.
func (r *Registry) MonitorSession(clientID string, ev MonitorSessionEvent) error {
	r.broadcaster.Subscribe(clientID, ports.SessionScope(ev.SessionID))
	r.logger.Info("client monitoring session",
		zap.String("client_id", clientID),
		zap.String("session_id", ev.SessionID),
	)
	return nil
}

// MarkReady sets the group's ready flag and broadcasts the full
// ready-map for every group in the session, not just the changed one.
func (r *Registry) MarkReady(clientID string, ev GroupReadyEvent) error {
	state, ok := r.sessions[ev.SessionID]
	if !ok {
		return domain.NewSessionNotFound(ev.SessionID)
	}
	group, ok := state.session.Groups[ev.GroupID]
	if !ok {
		return domain.NewGroupNotFound(ev.SessionID, ev.GroupID)
	}

	group.Ready = true
	r.logger.Info("group ready",
		zap.String("session_id", ev.SessionID),
		zap.String("group_id", ev.GroupID),
	)

	readyStatus := make(map[string]bool, len(state.session.Groups))
	for id, g := range state.session.Groups {
		readyStatus[id] = g.Ready
	}
	return r.broadcaster.Publish(ports.SessionScope(ev.SessionID), EventGroupsReadyStatus, GroupsReadyStatusEvent{
		ReadyStatus: readyStatus,
	})
}

// StartSession broadcasts the start event with a server timestamp. It
// does not gate on all-groups-ready.
func (r *Registry) StartSession(clientID string, ev StartSessionEvent) error {
	if _, ok := r.sessions[ev.SessionID]; !ok {
		return domain.NewSessionNotFound(ev.SessionID)
	}

	r.logger.Info("session starting", zap.String("session_id", ev.SessionID))
	return r.broadcaster.Publish(ports.SessionScope(ev.SessionID), EventSessionStarted, SessionStartedEvent{
		SessionID: ev.SessionID,
		StartTime: r.now(),
	})
}

// accumulatorFor resolves a group's accumulator, creating it on the fly
// when a stream arrives for a group that was never joined. The healing
// is logged as a warning, not surfaced as an error.
func (r *Registry) accumulatorFor(state *sessionState, sessionID, groupID string) *domain.GroupAccumulator {
	acc, ok := state.accumulators[groupID]
	if !ok {
		acc = domain.NewGroupAccumulator()
		state.accumulators[groupID] = acc
		r.logger.Warn("group was not initialized, created now",
			zap.String("session_id", sessionID),
			zap.String("group_id", groupID),
		)
	}
	return acc
}

func (r *Registry) gaugeActiveSessions() {
	if r.metrics != nil {
		r.metrics.RecordGauge("active_sessions", float64(len(r.sessions)), nil)
	}
}
