package ports

// Scope names a broadcast destination. The transport guarantees
// at-least-once delivery to every client subscribed to the scope.
type Scope string

// SessionScope returns the broadcast scope shared by every client in a
// session (roster, status, and result broadcasts).
func SessionScope(sessionID string) Scope {
	return Scope("session_" + sessionID)
}

// GroupScope returns the broadcast scope for one group within a session
// (point-in-time analysis pushes).
func GroupScope(sessionID, groupID string) Scope {
	return Scope(sessionID + "_" + groupID)
}

// Broadcaster is the outbound half of the delivery channel. The engine
// publishes typed payloads; framing and room delivery are transport
// concerns.
type Broadcaster interface {
	// Publish delivers an event to every subscriber of the scope.
	Publish(scope Scope, event string, payload any) error

	// Reply delivers an event point-to-point to one client.
	Reply(clientID string, event string, payload any) error

	// Subscribe adds a client to a broadcast scope. Subscribing twice
	// is a no-op.
	Subscribe(clientID string, scope Scope)
}
