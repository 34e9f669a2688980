package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypewave/cheermeter/infrastructure/scoring"
	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

type broadcastRecord struct {
	scope   ports.Scope
	event   string
	payload any
}

type replyRecord struct {
	clientID string
	event    string
	payload  any
}

// fakeBroadcaster records everything the engine sends. Publish can be
// made to fail or panic per event to exercise error paths.
type fakeBroadcaster struct {
	publishes []broadcastRecord
	replies   []replyRecord
	subs      map[string][]ports.Scope

	publishErr map[string]error
	panicOn    map[string]bool
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		subs:       make(map[string][]ports.Scope),
		publishErr: make(map[string]error),
		panicOn:    make(map[string]bool),
	}
}

func (f *fakeBroadcaster) Publish(scope ports.Scope, event string, payload any) error {
	if f.panicOn[event] {
		panic("broadcast exploded")
	}
	if err := f.publishErr[event]; err != nil {
		return err
	}
	f.publishes = append(f.publishes, broadcastRecord{scope: scope, event: event, payload: payload})
	return nil
}

func (f *fakeBroadcaster) Reply(clientID string, event string, payload any) error {
	f.replies = append(f.replies, replyRecord{clientID: clientID, event: event, payload: payload})
	return nil
}

func (f *fakeBroadcaster) Subscribe(clientID string, scope ports.Scope) {
	f.subs[clientID] = append(f.subs[clientID], scope)
}

func (f *fakeBroadcaster) published(event string) []broadcastRecord {
	var out []broadcastRecord
	for _, rec := range f.publishes {
		if rec.event == event {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeBroadcaster) replied(event string) []replyRecord {
	var out []replyRecord
	for _, rec := range f.replies {
		if rec.event == event {
			out = append(out, rec)
		}
	}
	return out
}

var testNow = time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)

func newTestRegistry(b ports.Broadcaster) *Registry {
	r := NewRegistry(logging.NewNopLogger(), b, nil, nil, nil, scoring.DefaultConfig())
	r.now = func() time.Time { return testNow }
	return r
}

func TestCreateSessionIsIdempotent(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	ev := CreateSessionEvent{SessionID: "ev1", NumGroups: 2, DurationMinutes: 5}
	require.NoError(t, r.CreateSession("c1", ev))
	require.NoError(t, r.CreateSession("c2", ev))

	assert.Equal(t, 1, r.SessionCount())

	acks := b.replied(EventSessionCreated)
	require.Len(t, acks, 2, "both callers get an ack")
	assert.Equal(t, SessionCreatedEvent{SessionID: "ev1"}, acks[0].payload)
	assert.Equal(t, SessionCreatedEvent{SessionID: "ev1"}, acks[1].payload)
}

func TestJoinGroupUnknownSession(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	err := r.JoinGroup("c1", JoinGroupEvent{SessionID: "nope", GroupID: "g1", GroupName: "Alpha"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestJoinGroupRejoinOverwritesMetadata(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.CreateSession("c1", CreateSessionEvent{SessionID: "ev1"}))
	require.NoError(t, r.JoinGroup("c2", JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha"}))
	require.NoError(t, r.JoinGroup("c3", JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha Prime"}))

	state := r.sessions["ev1"]
	require.NotNil(t, state)
	assert.Equal(t, []string{"g1"}, state.session.GroupOrder, "rejoin keeps first-join position")
	assert.Equal(t, "Alpha Prime", state.session.Groups["g1"].Name, "last writer wins")
	assert.Len(t, b.published(EventGroupJoined), 2, "every join is announced")
}

func TestJoinGroupSubscribesBothScopes(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.CreateSession("c1", CreateSessionEvent{SessionID: "ev1"}))
	require.NoError(t, r.JoinGroup("c2", JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha"}))

	assert.Contains(t, b.subs["c2"], ports.GroupScope("ev1", "g1"))
	assert.Contains(t, b.subs["c2"], ports.SessionScope("ev1"))

	acks := b.replied(EventJoinedGroup)
	require.Len(t, acks, 1)
	assert.Equal(t, "c2", acks[0].clientID)
}

func TestMarkReadyBroadcastsFullReadyMap(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.CreateSession("c1", CreateSessionEvent{SessionID: "ev1"}))
	require.NoError(t, r.JoinGroup("c2", JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha"}))
	require.NoError(t, r.JoinGroup("c3", JoinGroupEvent{SessionID: "ev1", GroupID: "g2", GroupName: "Bravo"}))

	require.NoError(t, r.MarkReady("c2", GroupReadyEvent{SessionID: "ev1", GroupID: "g1"}))

	updates := b.published(EventGroupsReadyStatus)
	require.Len(t, updates, 1)
	assert.Equal(t, ports.SessionScope("ev1"), updates[0].scope)
	assert.Equal(t, GroupsReadyStatusEvent{
		ReadyStatus: map[string]bool{"g1": true, "g2": false},
	}, updates[0].payload, "not-ready groups are included")
}

func TestMarkReadyUnknownGroup(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.CreateSession("c1", CreateSessionEvent{SessionID: "ev1"}))

	err := r.MarkReady("c2", GroupReadyEvent{SessionID: "ev1", GroupID: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestStartSessionUsesServerTimestamp(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.CreateSession("c1", CreateSessionEvent{SessionID: "ev1"}))
	require.NoError(t, r.StartSession("c1", StartSessionEvent{SessionID: "ev1"}))

	starts := b.published(EventSessionStarted)
	require.Len(t, starts, 1)
	assert.Equal(t, SessionStartedEvent{SessionID: "ev1", StartTime: testNow}, starts[0].payload)

	err := r.StartSession("c1", StartSessionEvent{SessionID: "nope"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMonitorSessionSubscribesWithoutJoining(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)

	require.NoError(t, r.MonitorSession("console", MonitorSessionEvent{SessionID: "ev1"}))

	assert.Contains(t, b.subs["console"], ports.SessionScope("ev1"))
	assert.Empty(t, b.published(EventGroupJoined))
}
