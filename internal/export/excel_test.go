package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"titan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBookingsXLSX(t *testing.T) {
	tech := "t1"
	bookings := []models.Booking{
		{
			ID:           "1",
			Status:       models.StatusAssigned,
			CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			TechnicianID: &tech,
			Fields: map[string]json.RawMessage{
				"service":      json.RawMessage(`"tv-mounting"`),
				"customerName": json.RawMessage(`"Ann"`),
			},
		},
		{
			ID:        "2",
			Status:    models.StatusPending,
			CreatedAt: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			Fields:    map[string]json.RawMessage{"notes": json.RawMessage(`"gate code 12"`)},
		},
	}

	data, err := BookingsXLSX(bookings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"id", "status", "createdAt", "technicianId", "assignedAt", "customerName", "notes", "service"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "t1", rows[1][3])
	assert.Equal(t, "Ann", rows[1][5])
	assert.Equal(t, "tv-mounting", rows[1][7])
	assert.Equal(t, "2025-01-02 03:04:05", rows[1][2])
	assert.Equal(t, "gate code 12", rows[2][6])
}

func TestBookingsXLSXEmpty(t *testing.T) {
	data, err := BookingsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
