package application

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

func newTestDispatcher(b *fakeBroadcaster) (*Dispatcher, *Registry) {
	r := newTestRegistry(b)
	d := NewDispatcher(logging.NewNopLogger(), r, b, nil, 8)
	return d, r
}

func encodePayload(t *testing.T, v any) []byte {
	t.Helper()
	data, err := sonic.Marshal(v)
	require.NoError(t, err)
	return data
}

// streamBins builds a base64-encoded 128-bin spectrum whose loudest bin
// is maxByte. With highHeavy the energy sits entirely in the upper
// region of the spectrum.
func streamBins(maxByte byte, highHeavy bool) string {
	bins := make([]byte, 128)
	start := 42 // 0.33 of 128 bins
	for i := range bins {
		if highHeavy == (i >= start) {
			bins[i] = maxByte
		}
	}
	return base64.StdEncoding.EncodeToString(bins)
}

func TestDispatcherUnknownEvent(t *testing.T) {
	b := newFakeBroadcaster()
	d, _ := newTestDispatcher(b)

	d.handle(context.Background(), InboundMessage{
		ClientID: "c1",
		Event:    "self_destruct",
		Payload:  []byte(`{}`),
	})

	errs := b.replied(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "c1", errs[0].clientID)
	assert.Contains(t, errs[0].payload.(ErrorEvent).Message, "unknown event")
}

func TestDispatcherRejectsInvalidPayload(t *testing.T) {
	b := newFakeBroadcaster()
	d, r := newTestDispatcher(b)

	tests := []struct {
		name    string
		event   string
		payload []byte
	}{
		{name: "malformed json", event: EventCreateSession, payload: []byte(`{"session_id":`)},
		{name: "missing required field", event: EventJoinGroup, payload: []byte(`{"session_id":"ev1"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(b.replied(EventError))
			d.handle(context.Background(), InboundMessage{ClientID: "c1", Event: tt.event, Payload: tt.payload})

			errs := b.replied(EventError)
			require.Len(t, errs, before+1)
			assert.Equal(t, 0, r.SessionCount(), "invalid payloads change nothing")
		})
	}
}

func TestDispatcherSessionEndUnknownSession(t *testing.T) {
	b := newFakeBroadcaster()
	d, _ := newTestDispatcher(b)

	d.handle(context.Background(), InboundMessage{
		ClientID: "c1",
		Event:    EventSessionEnd,
		Payload:  encodePayload(t, SessionEndEvent{SessionID: "ghost"}),
	})

	errs := b.replied(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Session not found", errs[0].payload.(ErrorEvent).Message)
}

func TestDispatcherAudioStreamHealsUnjoinedGroup(t *testing.T) {
	b := newFakeBroadcaster()
	d, r := newTestDispatcher(b)
	ctx := context.Background()

	d.handle(ctx, InboundMessage{
		ClientID: "c1",
		Event:    EventCreateSession,
		Payload:  encodePayload(t, CreateSessionEvent{SessionID: "ev1"}),
	})
	d.handle(ctx, InboundMessage{
		ClientID: "c2",
		Event:    EventAudioStream,
		Payload: encodePayload(t, AudioStreamEvent{
			SessionID: "ev1",
			GroupID:   "never-joined",
			AudioData: streamBins(200, true),
			Timestamp: 1.0,
		}),
	})

	assert.Empty(t, b.replied(EventError), "streams for unregistered groups are healed, not rejected")

	acc := r.sessions["ev1"].accumulators["never-joined"]
	require.NotNil(t, acc, "the accumulator is created on the fly")
	require.Len(t, acc.AudioScores, 1)
	assert.Greater(t, acc.AudioScores[0], 0.0)
}

func TestDispatcherScoringFailureKeepsSeriesAligned(t *testing.T) {
	b := newFakeBroadcaster()
	d, r := newTestDispatcher(b)
	ctx := context.Background()

	d.handle(ctx, InboundMessage{
		ClientID: "c1",
		Event:    EventCreateSession,
		Payload:  encodePayload(t, CreateSessionEvent{SessionID: "ev1"}),
	})
	d.handle(ctx, InboundMessage{
		ClientID: "c1",
		Event:    EventJoinGroup,
		Payload:  encodePayload(t, JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha"}),
	})
	d.handle(ctx, InboundMessage{
		ClientID: "c1",
		Event:    EventAudioStream,
		Payload: encodePayload(t, AudioStreamEvent{
			SessionID: "ev1",
			GroupID:   "g1",
			AudioData: "%%%not-base64%%%",
			Timestamp: 3.5,
		}),
	})

	assert.Empty(t, b.replied(EventError), "scoring failures are recovered locally")
	assert.Empty(t, b.published(EventAudioAnalysisUpdate), "no analysis push for a failed sample")

	acc := r.sessions["ev1"].accumulators["g1"]
	require.Len(t, acc.AudioScores, 1)
	assert.Zero(t, acc.AudioScores[0], "a zero keeps the series aligned")
	require.Len(t, acc.Timestamps, 1)
	assert.Equal(t, 3.5, acc.Timestamps[0])
}

func TestDispatcherFullSessionFlow(t *testing.T) {
	b := newFakeBroadcaster()
	d, _ := newTestDispatcher(b)
	ctx := context.Background()

	send := func(clientID, event string, payload any) {
		d.handle(ctx, InboundMessage{ClientID: clientID, Event: event, Payload: encodePayload(t, payload)})
	}

	send("master", EventCreateSession, CreateSessionEvent{SessionID: "ev1", NumGroups: 2})
	send("a", EventJoinGroup, JoinGroupEvent{SessionID: "ev1", GroupID: "a", GroupName: "Alpha"})
	send("b", EventJoinGroup, JoinGroupEvent{SessionID: "ev1", GroupID: "b", GroupName: "Bravo"})
	send("master", EventStartSession, StartSessionEvent{SessionID: "ev1"})

	// Alpha screams into the high end of the spectrum; Bravo barely
	// registers.
	send("a", EventAudioStream, AudioStreamEvent{SessionID: "ev1", GroupID: "a", AudioData: streamBins(200, true), Timestamp: 1.0})
	send("b", EventAudioStream, AudioStreamEvent{SessionID: "ev1", GroupID: "b", AudioData: streamBins(60, false), Timestamp: 1.1})

	updates := b.published(EventAudioAnalysisUpdate)
	require.Len(t, updates, 2)
	alphaUpdate := updates[0].payload.(AudioAnalysisUpdateEvent)
	assert.Equal(t, ports.GroupScope("ev1", "a"), updates[0].scope)
	assert.InDelta(t, 35.0, alphaUpdate.CurrentScore, 1e-9, "initial 25 boosted by the 1.4 ceiling")
	assert.True(t, alphaUpdate.IsNewHigh)
	assert.InDelta(t, 35.0, alphaUpdate.HighScore, 1e-9)

	bravoUpdate := updates[1].payload.(AudioAnalysisUpdateEvent)
	assert.Zero(t, bravoUpdate.CurrentScore, "below the scoring floor")
	assert.False(t, bravoUpdate.IsNewHigh)

	send("master", EventSessionEnd, SessionEndEvent{SessionID: "ev1"})

	assert.Empty(t, b.replied(EventError))
	published := b.published(EventSessionResults)
	require.Len(t, published, 1)
	result := published[0].payload.(domain.SessionResult)
	assert.Equal(t, "a", result.WinnerGroupID)
	require.Len(t, result.Results, 2)
	assert.InDelta(t, 35.0, result.Results[0].AudioScore, 1e-9)
	assert.InDelta(t, 21.0, result.Results[0].TotalScore, 1e-9, "audio carries 0.6 of the total")
	assert.Zero(t, result.Results[1].TotalScore)
}

func TestDispatcherPanicBecomesErrorEvent(t *testing.T) {
	b := newFakeBroadcaster()
	d, r := newTestDispatcher(b)
	ctx := context.Background()

	d.handle(ctx, InboundMessage{
		ClientID: "c1",
		Event:    EventCreateSession,
		Payload:  encodePayload(t, CreateSessionEvent{SessionID: "ev1"}),
	})

	b.panicOn[EventGroupJoined] = true
	d.handle(ctx, InboundMessage{
		ClientID: "c2",
		Event:    EventJoinGroup,
		Payload:  encodePayload(t, JoinGroupEvent{SessionID: "ev1", GroupID: "g1", GroupName: "Alpha"}),
	})

	errs := b.replied(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "c2", errs[0].clientID, "only the triggering caller is notified")
	assert.Contains(t, errs[0].payload.(ErrorEvent).Message, "panic")

	// The registry survives the panic and keeps serving.
	b.panicOn = map[string]bool{}
	d.handle(ctx, InboundMessage{
		ClientID: "c3",
		Event:    EventJoinGroup,
		Payload:  encodePayload(t, JoinGroupEvent{SessionID: "ev1", GroupID: "g2", GroupName: "Bravo"}),
	})
	assert.NotNil(t, r.sessions["ev1"].session.Groups["g2"])
}

func TestDispatcherSubmitDropsWhenQueueFull(t *testing.T) {
	b := newFakeBroadcaster()
	r := newTestRegistry(b)
	d := NewDispatcher(logging.NewNopLogger(), r, b, nil, 1)

	msg := InboundMessage{ClientID: "c1", Event: EventStartSession, Payload: []byte(`{}`)}
	assert.True(t, d.Submit(msg))
	assert.False(t, d.Submit(msg), "a full queue drops instead of blocking")
}
