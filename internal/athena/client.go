package athena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pafrisco/clinic-booking/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clinicbooking.internal.athena")

const maxResponseBytes = 1 << 20

// TokenSource supplies bearer tokens for resource calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context, token string)
}

// Client talks to the practice-scoped resource endpoints of the Athena
// sandbox: {BaseURL}/{PracticeID}/patients, /appointments and /providers.
type Client struct {
	baseURL    string
	practiceID string
	tokens     TokenSource
	httpClient *http.Client
	logger     *logging.Logger
}

// Config holds configuration for the Athena client
type Config struct {
	BaseURL    string // e.g. "https://api.preview.platform.athenahealth.com/v1"
	PracticeID string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// New creates a new Athena client
func New(cfg Config, tokens TokenSource) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("athena: BaseURL is required")
	}
	if cfg.PracticeID == "" {
		return nil, errors.New("athena: PracticeID is required")
	}
	if tokens == nil {
		return nil, errors.New("athena: token source is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		practiceID: cfg.PracticeID,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreatePatient registers a patient and returns its remote identifier.
// POST /{practiceid}/patients
func (c *Client) CreatePatient(ctx context.Context, p NewPatient) (*PatientRef, error) {
	ctx, span := tracer.Start(ctx, "athena.patients.create")
	defer span.End()

	form := url.Values{}
	form.Set("firstname", p.FirstName)
	form.Set("lastname", p.LastName)
	form.Set("dob", p.DOB)
	form.Set("gender", p.Gender)
	form.Set("departmentid", p.DepartmentID)

	body, err := c.do(ctx, "create patient", http.MethodPost, "/patients", form)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	id, err := parsePatientID(body)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("athena.patient_id", id))
	return &PatientRef{ID: id}, nil
}

// BookAppointment books an appointment and returns the remote payload
// untouched.
// POST /{practiceid}/appointments
func (c *Client) BookAppointment(ctx context.Context, b AppointmentBooking) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "athena.appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("athena.provider_id", b.ProviderID),
		attribute.String("athena.department_id", b.DepartmentID),
	)

	form := url.Values{}
	form.Set("providerid", b.ProviderID)
	form.Set("departmentid", b.DepartmentID)
	form.Set("patientid", b.PatientID)
	form.Set("reason", b.Reason)

	body, err := c.do(ctx, "book appointment", http.MethodPost, "/appointments", form)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) || !json.Valid(body) {
		err := fmt.Errorf("%w: empty appointment payload", ErrMalformedResponse)
		recordSpanError(span, err)
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ListProviders returns the practice's providers.
// GET /{practiceid}/providers
func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	ctx, span := tracer.Start(ctx, "athena.providers.list")
	defer span.End()

	body, err := c.do(ctx, "list providers", http.MethodGet, "/providers", nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	var pr providersResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		err = fmt.Errorf("%w: decode providers: %v", ErrMalformedResponse, err)
		recordSpanError(span, err)
		return nil, err
	}

	providers := make([]Provider, 0, len(pr.Providers))
	for _, p := range pr.Providers {
		providers = append(providers, Provider{
			ID:          string(p.ProviderID),
			DisplayName: strings.TrimSpace(p.DisplayName),
		})
	}
	span.SetAttributes(attribute.Int("athena.provider_count", len(providers)))
	return providers, nil
}

// do sends an authenticated request. Form values are encoded into the body
// for POST and into the query string otherwise.
func (c *Client) do(ctx context.Context, op, method, path string, form url.Values) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("athena: %s: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/%s%s", c.baseURL, url.PathEscape(c.practiceID), path)
	var reqBody io.Reader
	if method == http.MethodPost {
		reqBody = strings.NewReader(form.Encode())
	} else if len(form) > 0 {
		endpoint += "?" + form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("athena: %s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("athena: %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("athena: %s: read response: %w", op, err)
	}

	c.logger.Debug("athena response", "op", op, "status", resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(ctx, token)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

// parsePatientID accepts either {"patientid": ...} or a one-element array
// of that object.
func parsePatientID(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	var pr patientResponse
	if len(body) > 0 && body[0] == '[' {
		var list []patientResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("%w: decode patient: %v", ErrMalformedResponse, err)
		}
		if len(list) > 0 {
			pr = list[0]
		}
	} else if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("%w: decode patient: %v", ErrMalformedResponse, err)
	}
	if pr.PatientID == "" {
		return "", fmt.Errorf("%w: missing patientid", ErrMalformedResponse)
	}
	return string(pr.PatientID), nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
