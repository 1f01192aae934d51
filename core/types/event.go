package types

// Event represents a typed event emitted during state transitions. Attribute
// values are rendered as strings so downstream consumers (RPC, indexers) can
// forward them without schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType returns the event type tag.
func (e *Event) EventType() string {
	if e == nil {
		return ""
	}
	return e.Type
}
