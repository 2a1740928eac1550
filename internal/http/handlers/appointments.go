package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pafrisco/clinic-booking/internal/appointments"
	"github.com/pafrisco/clinic-booking/internal/booking"
	"github.com/pafrisco/clinic-booking/internal/directory"
	"github.com/pafrisco/clinic-booking/pkg/logging"
)

// AppointmentsHandler exposes the booking entry points and the demo ledger.
type AppointmentsHandler struct {
	orchestrator *booking.Orchestrator
	store        appointments.Store
	directory    *directory.Directory
	logger       *logging.Logger
}

func NewAppointmentsHandler(orch *booking.Orchestrator, store appointments.Store, dir *directory.Directory, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{orchestrator: orch, store: store, directory: dir, logger: logger}
}

type sandboxBookingRequest struct {
	FirstName            string `json:"firstname"`
	LastName             string `json:"lastname"`
	DOB                  string `json:"dob"`
	Gender               string `json:"gender"`
	DoctorUsername       string `json:"doctorUsername"`
	ReasonForAppointment string `json:"reasonForAppointment"`
}

// SandboxBooking handles POST /api/sandbox-booking.
func (h *AppointmentsHandler) SandboxBooking(w http.ResponseWriter, r *http.Request) {
	var req sandboxBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	h.book(w, r, booking.Request{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DOB:         req.DOB,
		Gender:      req.Gender,
		ProviderKey: req.DoctorUsername,
		LookupBy:    booking.ByUsername,
		Reason:      req.ReasonForAppointment,
	})
}

type storeAppointmentRequest struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	DOB                  string `json:"dob"`
	Gender               string `json:"gender"`
	ProviderToSee        string `json:"providerToSee"`
	ReasonForAppointment string `json:"reasonForAppointment"`
	Email                string `json:"email"`
	PhoneNumber          string `json:"phoneNumber"`
}

// StoreAppointment handles POST /api/appointments.
func (h *AppointmentsHandler) StoreAppointment(w http.ResponseWriter, r *http.Request) {
	var req storeAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	h.book(w, r, booking.Request{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DOB:         req.DOB,
		Gender:      req.Gender,
		ProviderKey: req.ProviderToSee,
		LookupBy:    booking.ByName,
		Reason:      req.ReasonForAppointment,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
}

func (h *AppointmentsHandler) book(w http.ResponseWriter, r *http.Request, req booking.Request) {
	result, err := h.orchestrator.Book(r.Context(), req)
	if errors.Is(err, booking.ErrProviderNotFound) {
		jsonError(w, "Doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("booking failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type appointmentView struct {
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	ReasonForAppointment string    `json:"reasonForAppointment"`
	AppointmentTime      time.Time `json:"appointmentTime"`
	Status               string    `json:"status"`
}

// ListAppointments handles GET /api/appointments/{username}.
func (h *AppointmentsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if _, ok := h.directory.LookupByUsername(username); !ok {
		jsonError(w, "Doctor not found", http.StatusNotFound)
		return
	}

	records := h.store.ListByProvider(username)
	out := make([]appointmentView, 0, len(records))
	for _, rec := range records {
		out = append(out, appointmentView{
			FirstName:            rec.FirstName,
			LastName:             rec.LastName,
			ReasonForAppointment: rec.ReasonForAppointment,
			AppointmentTime:      rec.AppointmentTime,
			Status:               rec.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}
