package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Keys owned by the service. Client payloads cannot set them.
const (
	keyID           = "id"
	keyStatus       = "status"
	keyTechnicianID = "technicianId"
	keyAssignedAt   = "assignedAt"
	keyCreatedAt    = "createdAt"
)

// Booking is one customer service request plus its processing state.
// Everything the client sent besides the reserved keys is kept verbatim in
// Fields and written back at the top level of the JSON object.
type Booking struct {
	ID           string
	Status       string
	TechnicianID *string
	AssignedAt   *time.Time
	CreatedAt    time.Time
	Fields       map[string]json.RawMessage
}

// IsReservedField reports whether key is managed by the service.
func IsReservedField(key string) bool {
	switch key {
	case keyID, keyStatus, keyTechnicianID, keyAssignedAt, keyCreatedAt:
		return true
	}
	return false
}

// PayloadFields decodes a request body into pass-through fields, dropping
// reserved keys. The body must be a JSON object.
func PayloadFields(body []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("booking payload must be a JSON object")
	}
	for k := range raw {
		if IsReservedField(k) {
			delete(raw, k)
		}
	}
	return raw, nil
}

// Field returns a pass-through field as text. Strings are unquoted, numbers
// and other scalars are returned in their JSON form, missing or null is "".
func (b Booking) Field(name string) string {
	raw, ok := b.Fields[name]
	if !ok {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// Clone returns a deep copy, so callers can hand snapshots out freely.
func (b Booking) Clone() Booking {
	out := b
	if b.TechnicianID != nil {
		id := *b.TechnicianID
		out.TechnicianID = &id
	}
	if b.AssignedAt != nil {
		at := *b.AssignedAt
		out.AssignedAt = &at
	}
	if b.Fields != nil {
		out.Fields = make(map[string]json.RawMessage, len(b.Fields))
		for k, v := range b.Fields {
			out.Fields[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func (b Booking) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Fields)+5)
	for k, v := range b.Fields {
		if IsReservedField(k) {
			continue
		}
		out[k] = v
	}
	out[keyID] = b.ID
	out[keyStatus] = b.Status
	out[keyCreatedAt] = b.CreatedAt
	if b.TechnicianID != nil {
		out[keyTechnicianID] = *b.TechnicianID
	}
	if b.AssignedAt != nil {
		out[keyAssignedAt] = *b.AssignedAt
	}
	return json.Marshal(out)
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("booking must be a JSON object")
	}

	var decoded Booking
	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &decoded.ID); err != nil {
			return fmt.Errorf("decode %s: %w", keyID, err)
		}
	}
	if v, ok := raw[keyStatus]; ok {
		if err := json.Unmarshal(v, &decoded.Status); err != nil {
			return fmt.Errorf("decode %s: %w", keyStatus, err)
		}
	}
	if v, ok := raw[keyCreatedAt]; ok {
		if err := json.Unmarshal(v, &decoded.CreatedAt); err != nil {
			return fmt.Errorf("decode %s: %w", keyCreatedAt, err)
		}
	}
	if v, ok := raw[keyTechnicianID]; ok && !isNull(v) {
		var id string
		if err := json.Unmarshal(v, &id); err != nil {
			return fmt.Errorf("decode %s: %w", keyTechnicianID, err)
		}
		decoded.TechnicianID = &id
	}
	if v, ok := raw[keyAssignedAt]; ok && !isNull(v) {
		var at time.Time
		if err := json.Unmarshal(v, &at); err != nil {
			return fmt.Errorf("decode %s: %w", keyAssignedAt, err)
		}
		decoded.AssignedAt = &at
	}

	for k := range raw {
		if IsReservedField(k) {
			delete(raw, k)
		}
	}
	decoded.Fields = raw

	*b = decoded
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
