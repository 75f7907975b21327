package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"titan/internal/export"
	"titan/internal/models"
	"titan/internal/service"
	"titan/internal/store"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type createResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	BookingID string `json:"bookingId"`
}

type bookingResponse struct {
	Success    bool               `json:"success"`
	Booking    models.Booking     `json:"booking"`
	Technician *models.Technician `json:"technician,omitempty"`
}

type updateRequest struct {
	Status       string  `json:"status"`
	TechnicianID *string `json:"technicianId"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		writeFailure(w, http.StatusBadRequest, "Request body is required")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), body)
	switch {
	case errors.Is(err, service.ErrInvalidPayload):
		writeFailure(w, http.StatusBadRequest, "Invalid booking payload")
		return
	case err != nil:
		log.Error().Err(err).Str("booking_id", booking.ID).Msg("create booking failed")
		writeFailure(w, http.StatusInternalServerError, "Failed to submit booking")
		return
	}

	log.Info().Str("booking_id", booking.ID).Str("service", booking.Field(models.FieldService)).Msg("booking created")
	writeJSON(w, http.StatusCreated, createResponse{
		Success:   true,
		Message:   "Booking submitted successfully",
		BookingID: booking.ID,
	})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings := s.bookings.ListBookings(r.Context())
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.bookings.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: booking})
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := s.bookings.UpdateBooking(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Status), req.TechnicianID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: booking})
}

func (s *HTTPServer) handleAssign(w http.ResponseWriter, r *http.Request) {
	booking, tech, err := s.bookings.AutoAssign(r.Context(), r.PathValue("id"))
	if errors.Is(err, service.ErrNoTechnician) {
		writeFailure(w, http.StatusConflict, "No technician available for this service")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: booking, Technician: &tech})
}

func (s *HTTPServer) handleTechnicians(w http.ResponseWriter, r *http.Request) {
	techs := []models.Technician{}
	if s.technicians != nil {
		if serviceType := strings.TrimSpace(r.URL.Query().Get("service")); serviceType != "" {
			techs = append(techs, s.technicians.ByService(serviceType)...)
		} else {
			techs = append(techs, s.technicians.List()...)
		}
	}
	writeJSON(w, http.StatusOK, techs)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := export.BookingsXLSX(s.bookings.ListBookings(r.Context()))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("export bookings failed")
		writeFailure(w, http.StatusInternalServerError, "Failed to export bookings")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, "Booking not found")
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("booking_id", r.PathValue("id")).Msg("booking request failed")
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}
