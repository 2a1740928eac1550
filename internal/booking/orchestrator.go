// Package booking books appointments against the sandbox practice API and
// degrades to the local demo ledger when any remote step fails.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pafrisco/clinic-booking/internal/appointments"
	"github.com/pafrisco/clinic-booking/internal/athena"
	"github.com/pafrisco/clinic-booking/internal/directory"
	"github.com/pafrisco/clinic-booking/internal/notify"
	"github.com/pafrisco/clinic-booking/internal/observability/metrics"
	"github.com/pafrisco/clinic-booking/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("clinicbooking.internal.booking")

// ErrProviderNotFound is returned when the requested provider is not in the directory.
var ErrProviderNotFound = errors.New("booking: provider not found")

// Source tags which path produced an appointment.
type Source string

const (
	SourceSandbox Source = "sandbox"
	SourceDemo    Source = "demo"
)

// LookupBy selects how Request.ProviderKey is matched against the directory.
type LookupBy int

const (
	ByUsername LookupBy = iota
	ByName
)

// Request is a booking request from either entry point.
type Request struct {
	FirstName   string
	LastName    string
	DOB         string
	Gender      string
	ProviderKey string
	LookupBy    LookupBy
	Reason      string
	Email       string
	PhoneNumber string
}

// Result is the outcome of a booking. Exactly one of Record or Remote is set.
type Result struct {
	Source Source
	// Record is the locally stored appointment (Source == SourceDemo).
	Record *appointments.Record
	// Remote is the sandbox response, passed through untouched (Source == SourceSandbox).
	Remote json.RawMessage
}

// Appointment returns the payload the caller should see.
func (r *Result) Appointment() any {
	if r.Source == SourceSandbox {
		return r.Remote
	}
	return r.Record
}

// MarshalJSON renders the {appointment, source} response body.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Appointment any    `json:"appointment"`
		Source      Source `json:"source"`
	}{r.Appointment(), r.Source})
}

// PatientRegistrar creates patients in the sandbox.
type PatientRegistrar interface {
	CreatePatient(ctx context.Context, p athena.NewPatient) (*athena.PatientRef, error)
}

// AppointmentBooker books appointments in the sandbox.
type AppointmentBooker interface {
	BookAppointment(ctx context.Context, b athena.AppointmentBooking) (json.RawMessage, error)
}

// ProviderResolver looks providers up by username or display name.
type ProviderResolver interface {
	LookupByUsername(username string) (directory.Provider, bool)
	LookupByName(name string) (directory.Provider, bool)
}

// Notifier delivers appointment confirmations.
type Notifier interface {
	SendAppointmentConfirmation(ctx context.Context, to string, c notify.Confirmation) error
}

// Config holds orchestrator settings.
type Config struct {
	DepartmentID  string
	RemoteTimeout time.Duration
	NotifyTimeout time.Duration
	Logger        *logging.Logger
	Metrics       *metrics.BookingMetrics
}

// Deps are the collaborators the orchestrator drives. Registrar, Booker and
// Notifier may be nil; a nil remote collaborator always takes the demo path.
type Deps struct {
	Providers ProviderResolver
	Registrar PatientRegistrar
	Booker    AppointmentBooker
	Store     appointments.Store
	Notifier  Notifier
}

// Orchestrator runs the booking pipeline.
type Orchestrator struct {
	providers ProviderResolver
	registrar PatientRegistrar
	booker    AppointmentBooker
	store     appointments.Store
	notifier  Notifier

	departmentID  string
	remoteTimeout time.Duration
	notifyTimeout time.Duration
	logger        *logging.Logger
	metrics       *metrics.BookingMetrics

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New builds an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Providers == nil {
		return nil, errors.New("booking: provider resolver required")
	}
	if deps.Store == nil {
		return nil, errors.New("booking: appointment store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.DepartmentID == "" {
		cfg.DepartmentID = "1"
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 30 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &Orchestrator{
		providers:     deps.Providers,
		registrar:     deps.Registrar,
		booker:        deps.Booker,
		store:         deps.Store,
		notifier:      deps.Notifier,
		departmentID:  cfg.DepartmentID,
		remoteTimeout: cfg.RemoteTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

// Book resolves the provider, tries the sandbox and falls back to the demo
// ledger. The only error returned is ErrProviderNotFound.
func (o *Orchestrator) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "booking.Book")
	defer span.End()

	provider, ok := o.resolve(req)
	if !ok {
		span.SetStatus(codes.Error, "provider not found")
		o.logger.Info("booking rejected: provider not found", "provider_key", req.ProviderKey)
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, req.ProviderKey)
	}
	span.SetAttributes(attribute.String("provider.username", provider.Username))

	remote, err := o.bookRemote(ctx, req, provider)
	var result *Result
	if err != nil {
		rec := o.recordFallback(req, provider)
		o.logger.Warn("sandbox booking unavailable, recorded demo appointment",
			"provider", provider.Username, "record_id", rec.ID, "error", err)
		result = &Result{Source: SourceDemo, Record: &rec}
	} else {
		result = &Result{Source: SourceSandbox, Remote: remote}
	}
	span.SetAttributes(attribute.String("booking.source", string(result.Source)))
	o.metrics.ObserveBooking(string(result.Source))
	o.logger.Info("appointment booked", "provider", provider.Username, "source", result.Source)

	if strings.TrimSpace(req.Email) != "" {
		o.notifyAsync(ctx, req, provider, result)
	}
	return result, nil
}

func (o *Orchestrator) resolve(req Request) (directory.Provider, bool) {
	if req.LookupBy == ByName {
		return o.providers.LookupByName(req.ProviderKey)
	}
	return o.providers.LookupByUsername(req.ProviderKey)
}

func (o *Orchestrator) bookRemote(ctx context.Context, req Request, provider directory.Provider) (json.RawMessage, error) {
	if o.registrar == nil || o.booker == nil {
		return nil, errors.New("booking: sandbox not configured")
	}
	dob, err := NormalizeDOB(req.DOB)
	if err != nil {
		return nil, err
	}

	var patient *athena.PatientRef
	err = o.remoteCall(ctx, "create_patient", func(ctx context.Context) error {
		var err error
		patient, err = o.registrar.CreatePatient(ctx, athena.NewPatient{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			DOB:          dob,
			Gender:       req.Gender,
			DepartmentID: o.departmentID,
		})
		if err == nil && (patient == nil || patient.ID == "") {
			err = athena.ErrMalformedResponse
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	var payload json.RawMessage
	err = o.remoteCall(ctx, "book_appointment", func(ctx context.Context) error {
		var err error
		payload, err = o.booker.BookAppointment(ctx, athena.AppointmentBooking{
			ProviderID:   provider.ProviderID,
			DepartmentID: o.departmentID,
			PatientID:    patient.ID,
			Reason:       req.Reason,
		})
		if err == nil && len(payload) == 0 {
			err = athena.ErrMalformedResponse
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	return payload, nil
}

// remoteCall bounds fn with the remote timeout and records its outcome.
func (o *Orchestrator) remoteCall(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.remoteTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	o.metrics.ObserveRemoteCall(op, err == nil, time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) recordFallback(req Request, provider directory.Provider) appointments.Record {
	rec := appointments.Record{
		ID:                   o.newID(),
		ProviderUsername:     provider.Username,
		ProviderName:         provider.Name,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		ReasonForAppointment: req.Reason,
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		AppointmentTime:      o.now().UTC(),
		Status:               appointments.StatusScheduled,
	}
	o.store.Append(rec)
	return rec
}

// notifyAsync sends the confirmation on a tracked goroutine. The send uses a
// context detached from the request so it outlives the HTTP response.
func (o *Orchestrator) notifyAsync(ctx context.Context, req Request, provider directory.Provider, result *Result) {
	if o.notifier == nil {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.logger.Warn("orchestrator shutting down, confirmation skipped", "provider", provider.Username)
		o.metrics.ObserveNotification("skipped")
		return
	}
	o.inflight.Add(1)
	o.mu.Unlock()

	confirmation := notify.Confirmation{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		ProviderName:    provider.Name,
		Reason:          req.Reason,
		AppointmentTime: o.now().UTC(),
	}
	if result.Record != nil {
		confirmation.AppointmentTime = result.Record.AppointmentTime
	}
	to := strings.TrimSpace(req.Email)
	sendCtx := context.WithoutCancel(ctx)

	go func() {
		defer o.inflight.Done()
		ctx, cancel := context.WithTimeout(sendCtx, o.notifyTimeout)
		defer cancel()

		if err := o.notifier.SendAppointmentConfirmation(ctx, to, confirmation); err != nil {
			o.logger.Error("appointment confirmation failed", "provider", provider.Username, "error", err)
			o.metrics.ObserveNotification("failed")
			return
		}
		o.metrics.ObserveNotification("sent")
	}()
}

// Shutdown stops accepting notifications and waits for in-flight ones.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("booking: waiting for notifications: %w", ctx.Err())
	}
}

var dobLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "1/2/2006"}

// NormalizeDOB returns dob as YYYY-MM-DD.
func NormalizeDOB(dob string) (string, error) {
	dob = strings.TrimSpace(dob)
	if dob == "" {
		return "", errors.New("booking: date of birth required")
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, dob); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("booking: unrecognised date of birth %q", dob)
}
