package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFieldsDropsReservedKeys(t *testing.T) {
	fields, err := PayloadFields([]byte(`{"id":"x","status":"done","createdAt":"2020-01-01T00:00:00Z","service":"tv-mounting","total":120}`))
	require.NoError(t, err)

	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "status")
	assert.NotContains(t, fields, "createdAt")
	assert.JSONEq(t, `"tv-mounting"`, string(fields["service"]))
	assert.JSONEq(t, `120`, string(fields["total"]))
}

func TestPayloadFieldsRejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `"text"`, `null`, `{`} {
		_, err := PayloadFields([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestBookingJSONRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 30, 0, 123000000, time.UTC)
	assigned := created.Add(time.Hour)
	tech := "tech-1"

	b := Booking{
		ID:           "1741084200123",
		Status:       StatusAssigned,
		TechnicianID: &tech,
		AssignedAt:   &assigned,
		CreatedAt:    created,
		Fields: map[string]json.RawMessage{
			"customerName": json.RawMessage(`"Ann"`),
			"cart":         json.RawMessage(`[{"item":"mount","price":99}]`),
		},
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "1741084200123", flat["id"])
	assert.Equal(t, "assigned", flat["status"])
	assert.Equal(t, "tech-1", flat["technicianId"])
	assert.Equal(t, "Ann", flat["customerName"])

	var decoded Booking
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.ID, decoded.ID)
	assert.Equal(t, b.Status, decoded.Status)
	assert.True(t, b.CreatedAt.Equal(decoded.CreatedAt))
	require.NotNil(t, decoded.TechnicianID)
	assert.Equal(t, tech, *decoded.TechnicianID)
	require.NotNil(t, decoded.AssignedAt)
	assert.True(t, assigned.Equal(*decoded.AssignedAt))
	assert.Equal(t, "Ann", decoded.Field("customerName"))
	assert.JSONEq(t, `[{"item":"mount","price":99}]`, string(decoded.Fields["cart"]))
}

func TestBookingOmitsUnassignedTechnician(t *testing.T) {
	data, err := json.Marshal(Booking{ID: "1", Status: StatusPending, CreatedAt: time.Now()})
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.NotContains(t, flat, "technicianId")
	assert.NotContains(t, flat, "assignedAt")
}

func TestBookingField(t *testing.T) {
	b := Booking{Fields: map[string]json.RawMessage{
		"name":  json.RawMessage(`"Bob & Co"`),
		"total": json.RawMessage(`149.5`),
		"notes": json.RawMessage(`null`),
	}}

	assert.Equal(t, "Bob & Co", b.Field("name"))
	assert.Equal(t, "149.5", b.Field("total"))
	assert.Equal(t, "", b.Field("notes"))
	assert.Equal(t, "", b.Field("missing"))
}

func TestBookingCloneIsDeep(t *testing.T) {
	tech := "t1"
	b := Booking{ID: "1", TechnicianID: &tech, Fields: map[string]json.RawMessage{"a": json.RawMessage(`1`)}}

	c := b.Clone()
	*c.TechnicianID = "t2"
	c.Fields["a"] = json.RawMessage(`2`)

	assert.Equal(t, "t1", *b.TechnicianID)
	assert.Equal(t, "1", string(b.Fields["a"]))
}

func TestTechnicianHandles(t *testing.T) {
	tech := Technician{ID: "t1", Services: []string{"tv-mounting", "smart-home"}}

	assert.True(t, tech.Handles("tv-mounting"))
	assert.False(t, tech.Handles("TV-Mounting"))
	assert.False(t, tech.Handles("plumbing"))
	assert.False(t, tech.Handles(""))
}
