package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrMissingEventType = errors.New("events: missing eventType in message")

// UnknownEventTypeError reports an eventType outside the closed set.
type UnknownEventTypeError struct {
	Value string
}

func (e UnknownEventTypeError) Error() string {
	return fmt.Sprintf("events: unknown eventType %q", e.Value)
}

// SchemaError reports a message that carried a known eventType but failed
// schema validation. Field holds the offending field path when known.
type SchemaError struct {
	Event  EventType
	Field  string
	Reason string
}

func (e SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("events: %s schema rejected field %s: %s", e.Event, e.Field, e.Reason)
	}
	return fmt.Sprintf("events: %s schema rejected message: %s", e.Event, e.Reason)
}

// registry is the compile-time table from eventType to decoder. It replaces
// the runtime-mutable registration map the upstream producers use: the set of
// event shapes is fixed at build time, so the table is too.
var registry = map[EventType]func([]byte) (Envelope, error){
	EventUserRegistered:            decodeUserRegistered,
	EventStudentMagicLinkRequested: decodeStudentMagicLinkRequested,
}

// Resolve validates a normalized message and returns its typed envelope.
// Checks run in order: discriminant presence, closed-set membership, schema.
// Rejection is total: no partially constructed envelope escapes.
func Resolve(raw map[string]any) (Envelope, error) {
	v, ok := raw["eventType"]
	if !ok {
		return nil, ErrMissingEventType
	}
	name, ok := v.(string)
	if !ok {
		return nil, UnknownEventTypeError{Value: fmt.Sprintf("%v", v)}
	}

	decode, ok := registry[EventType(name)]
	if !ok {
		return nil, UnknownEventTypeError{Value: name}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, SchemaError{Event: EventType(name), Reason: err.Error()}
	}
	return decode(data)
}

func decodeUserRegistered(data []byte) (Envelope, error) {
	var msg UserRegistered
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, schemaErrorFromDecode(EventUserRegistered, err)
	}
	// Double-check the literal against the variant constant to catch a
	// message routed to the wrong decoder.
	if msg.EventType != EventUserRegistered {
		return nil, SchemaError{Event: EventUserRegistered, Field: "eventType", Reason: "literal mismatch"}
	}
	if err := msg.Validate(); err != nil {
		return nil, schemaErrorFromValidation(EventUserRegistered, err)
	}
	return msg, nil
}

func decodeStudentMagicLinkRequested(data []byte) (Envelope, error) {
	var msg StudentMagicLinkRequested
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, schemaErrorFromDecode(EventStudentMagicLinkRequested, err)
	}
	if msg.EventType != EventStudentMagicLinkRequested {
		return nil, SchemaError{Event: EventStudentMagicLinkRequested, Field: "eventType", Reason: "literal mismatch"}
	}
	if err := msg.Validate(); err != nil {
		return nil, schemaErrorFromValidation(EventStudentMagicLinkRequested, err)
	}
	return msg, nil
}

func schemaErrorFromDecode(event EventType, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return SchemaError{
			Event:  event,
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return SchemaError{Event: event, Reason: err.Error()}
}

func schemaErrorFromValidation(event EventType, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return SchemaError{
			Event:  event,
			Field:  fe.Namespace(),
			Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
		}
	}
	return SchemaError{Event: event, Reason: err.Error()}
}
