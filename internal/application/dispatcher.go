package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hypewave/cheermeter/internal/domain"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

// InboundMessage is one client message handed to the dispatcher by the
// transport: the event name plus the raw, still-encoded payload.
type InboundMessage struct {
	ClientID string
	Event    string
	Payload  []byte
}

// Dispatcher routes inbound client messages to the registry. Messages
// are processed one at a time to completion on a single goroutine, so
// registry state needs no locking; ordering guarantees are
// per-handler-invocation atomic, not globally serialized.
type Dispatcher struct {
	logger      logging.LoggerAdapter
	registry    *Registry
	broadcaster ports.Broadcaster
	metrics     ports.MetricsCollector
	validate    *validator.Validate
	tracer      trace.Tracer

	inbound chan InboundMessage
}

// NewDispatcher creates a dispatcher with the given inbound queue depth.
// When the queue is full, Submit drops the message rather than blocking
// the transport goroutines.
func NewDispatcher(
	logger logging.LoggerAdapter,
	registry *Registry,
	broadcaster ports.Broadcaster,
	metrics ports.MetricsCollector,
	queueSize int,
) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		logger:      logger,
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     metrics,
		validate:    validator.New(),
		tracer:      otel.Tracer("dispatcher"),
		inbound:     make(chan InboundMessage, queueSize),
	}
}

// Submit enqueues a message for processing. It never blocks: when the
// queue is full the message is dropped and counted, applying
// backpressure at the boundary instead of stalling the transport.
func (d *Dispatcher) Submit(msg InboundMessage) bool {
	select {
	case d.inbound <- msg:
		return true
	default:
		d.logger.Warn("inbound queue full, dropping message",
			zap.String("event", msg.Event),
			zap.String("client_id", msg.ClientID),
		)
		if d.metrics != nil {
			d.metrics.RecordCounter("inbound_messages_dropped_total", 1, map[string]string{"event": msg.Event})
		}
		return false
	}
}

// Run consumes the inbound queue until the context is canceled. This is
// the engine's single logical event-processing stream.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.inbound:
			d.handle(ctx, msg)
		}
	}
}

// handle processes one message to completion. Unexpected panics inside a
// handler are caught here, logged, and converted to an error event for
// the triggering caller only; they never crash the registry or corrupt
// other sessions' state.
func (d *Dispatcher) handle(ctx context.Context, msg InboundMessage) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.handle")
	span.SetAttributes(
		attribute.String("event", msg.Event),
		attribute.String("client_id", msg.ClientID),
	)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("handler panic: %v", rec)
			d.logger.Error("handler panicked", err,
				zap.String("event", msg.Event),
				zap.String("client_id", msg.ClientID),
			)
			span.SetStatus(codes.Error, err.Error())
			d.record(msg.Event, "panic", start)
			d.sendError(msg.ClientID, err)
		}
		span.End()
	}()

	err := d.route(ctx, msg)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		d.record(msg.Event, "ok", start)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.record(msg.Event, "error", start)
		d.logger.Error("handler failed", err,
			zap.String("event", msg.Event),
			zap.String("client_id", msg.ClientID),
		)
		d.sendError(msg.ClientID, err)
	}
}

// route decodes, validates, and dispatches one message.
func (d *Dispatcher) route(ctx context.Context, msg InboundMessage) error {
	switch msg.Event {
	case EventCreateSession:
		var ev CreateSessionEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.CreateSession(msg.ClientID, ev)
	case EventJoinGroup:
		var ev JoinGroupEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.JoinGroup(msg.ClientID, ev)
	case EventMonitorSession:
		var ev MonitorSessionEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.MonitorSession(msg.ClientID, ev)
	case EventGroupReady:
		var ev GroupReadyEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.MarkReady(msg.ClientID, ev)
	case EventStartSession:
		var ev StartSessionEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.StartSession(msg.ClientID, ev)
	case EventAudioStream:
		var ev AudioStreamEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.HandleAudioStream(msg.ClientID, ev)
	case EventVideoFrame:
		var ev VideoFrameEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.HandleVideoFrame(ctx, msg.ClientID, ev)
	case EventSessionEnd:
		var ev SessionEndEvent
		if err := d.decode(msg.Payload, &ev); err != nil {
			return err
		}
		return d.registry.EndSession(msg.ClientID, ev)
	default:
		return fmt.Errorf("unknown event %q", msg.Event)
	}
}

// decode unmarshals the raw payload and validates its struct tags.
func (d *Dispatcher) decode(payload []byte, out any) error {
	if err := sonic.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	if err := d.validate.Struct(out); err != nil {
		return fmt.Errorf("validating payload: %w", err)
	}
	return nil
}

// sendError converts a handler failure into an error event for the
// triggering caller only. Not-found failures keep their message; other
// failures are passed through as-is.
func (d *Dispatcher) sendError(clientID string, err error) {
	msg := err.Error()
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		if errors.Is(nf, domain.ErrSessionNotFound) {
			msg = "Session not found"
		} else {
			msg = "Group not found"
		}
	}
	if replyErr := d.broadcaster.Reply(clientID, EventError, ErrorEvent{Message: msg}); replyErr != nil {
		d.logger.Error("sending error event failed", replyErr, zap.String("client_id", clientID))
	}
}

func (d *Dispatcher) record(event, status string, start time.Time) {
	if d.metrics == nil {
		return
	}
	labels := map[string]string{"event": event, "status": status}
	d.metrics.RecordCounter("inbound_messages_total", 1, labels)
	d.metrics.RecordLatency("dispatcher_handle", time.Since(start), labels)
}
