package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validUserRegisteredRaw() map[string]any {
	raw := map[string]any{}
	body := `{
		"eventType": "USER_REGISTERED",
		"timestamp": "2024-05-01T10:00:00Z",
		"user": {
			"id": "u-123",
			"email": "student@uni.ac.za",
			"role": "student",
			"firstName": "Thandi",
			"lastName": "Mokoena"
		},
		"keys": {"Pk": "STUDENT#u-123", "Sk": "USER"},
		"table": "kudu-main",
		"source": "backend"
	}`
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		panic(err)
	}
	return raw
}

func TestResolveUserRegistered(t *testing.T) {
	envelope, err := Resolve(validUserRegisteredRaw())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	msg, ok := envelope.(UserRegistered)
	if !ok {
		t.Fatalf("expected UserRegistered, got %T", envelope)
	}
	if msg.Kind() != EventUserRegistered {
		t.Errorf("expected kind %s, got %s", EventUserRegistered, msg.Kind())
	}
	if msg.User.ID != "u-123" {
		t.Errorf("expected user id u-123, got %s", msg.User.ID)
	}
	if msg.Keys.Pk != "STUDENT#u-123" {
		t.Errorf("expected Pk STUDENT#u-123, got %s", msg.Keys.Pk)
	}
}

func TestResolveStudentMagicLinkRequested(t *testing.T) {
	raw := map[string]any{
		"eventType":  "STUDENT_MAGIC_LINK_REQUESTED",
		"timestamp":  "2024-05-01T10:00:00Z",
		"email":      "student@uni.ac.za",
		"magicToken": "tok-abc",
	}

	envelope, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	msg, ok := envelope.(StudentMagicLinkRequested)
	if !ok {
		t.Fatalf("expected StudentMagicLinkRequested, got %T", envelope)
	}
	if msg.MagicToken != "tok-abc" {
		t.Errorf("expected magic token tok-abc, got %s", msg.MagicToken)
	}
	if msg.LinkURL != "" {
		t.Errorf("expected empty link url, got %s", msg.LinkURL)
	}
}

func TestResolveMissingEventType(t *testing.T) {
	raw := validUserRegisteredRaw()
	delete(raw, "eventType")

	_, err := Resolve(raw)
	if !errors.Is(err, ErrMissingEventType) {
		t.Fatalf("expected ErrMissingEventType, got %v", err)
	}
}

func TestResolveUnknownEventType(t *testing.T) {
	raw := validUserRegisteredRaw()
	raw["eventType"] = "USER_DELETED"

	_, err := Resolve(raw)
	var unknown UnknownEventTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventTypeError, got %v", err)
	}
	if unknown.Value != "USER_DELETED" {
		t.Errorf("expected value USER_DELETED, got %s", unknown.Value)
	}
}

func TestResolveNonStringEventType(t *testing.T) {
	raw := validUserRegisteredRaw()
	raw["eventType"] = 42

	_, err := Resolve(raw)
	var unknown UnknownEventTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventTypeError for non-string discriminant, got %v", err)
	}
}

func TestResolveSchemaErrorMissingField(t *testing.T) {
	raw := validUserRegisteredRaw()
	delete(raw, "table")

	_, err := Resolve(raw)
	var schemaErr SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Event != EventUserRegistered {
		t.Errorf("expected event %s, got %s", EventUserRegistered, schemaErr.Event)
	}
	if !strings.Contains(schemaErr.Field, "Table") {
		t.Errorf("expected field path naming Table, got %q", schemaErr.Field)
	}
}

func TestResolveSchemaErrorNestedField(t *testing.T) {
	raw := validUserRegisteredRaw()
	raw["user"].(map[string]any)["email"] = "not-an-email"

	_, err := Resolve(raw)
	var schemaErr SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !strings.Contains(schemaErr.Field, "Email") {
		t.Errorf("expected field path naming Email, got %q", schemaErr.Field)
	}
}

func TestResolveSchemaErrorWrongType(t *testing.T) {
	raw := validUserRegisteredRaw()
	raw["user"] = "not-an-object"

	_, err := Resolve(raw)
	var schemaErr SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for wrong field type, got %v", err)
	}
	if schemaErr.Field == "" {
		t.Error("expected field path on decode type mismatch")
	}
}

func TestResolveOrderUnknownBeforeSchema(t *testing.T) {
	// A message that is both unknown and malformed must fail as unknown.
	raw := map[string]any{"eventType": "NOT_A_THING"}

	_, err := Resolve(raw)
	var unknown UnknownEventTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventTypeError to win over schema, got %v", err)
	}
}

func TestResolveInvalidRole(t *testing.T) {
	raw := validUserRegisteredRaw()
	raw["user"].(map[string]any)["role"] = "wizard"

	_, err := Resolve(raw)
	var schemaErr SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for bad role, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Thandi", "Mokoena", "Thandi Mokoena"},
		{"Thandi", "", "Thandi"},
		{"", "Mokoena", "Mokoena"},
		{"", "", ""},
	}
	for _, c := range cases {
		u := User{FirstName: c.first, LastName: c.last}
		if got := u.DisplayName(); got != c.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", c.first, c.last, got, c.want)
		}
	}
}
