package athena

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pafrisco/clinic-booking/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token       string
	err         error
	invalidated []string
}

func (s *staticTokens) Token(context.Context) (string, error) { return s.token, s.err }

func (s *staticTokens) Invalidate(_ context.Context, token string) {
	s.invalidated = append(s.invalidated, token)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *staticTokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tokens := &staticTokens{token: "mock-token"}
	client, err := New(Config{
		BaseURL:    server.URL + "/v1/",
		PracticeID: "195900",
		Timeout:    5 * time.Second,
		Logger:     logging.New("error"),
	}, tokens)
	require.NoError(t, err)
	return client, tokens
}

func TestNew(t *testing.T) {
	tokens := &staticTokens{}
	tests := []struct {
		name    string
		cfg     Config
		tokens  TokenSource
		wantErr bool
	}{
		{name: "valid config", cfg: Config{BaseURL: "https://api.example.com", PracticeID: "1"}, tokens: tokens},
		{name: "missing base URL", cfg: Config{PracticeID: "1"}, tokens: tokens, wantErr: true},
		{name: "missing practice", cfg: Config{BaseURL: "https://api.example.com"}, tokens: tokens, wantErr: true},
		{name: "missing tokens", cfg: Config{BaseURL: "https://api.example.com", PracticeID: "1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg, tt.tokens)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestCreatePatient(t *testing.T) {
	var form map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/195900/patients", r.URL.Path)
		assert.Equal(t, "Bearer mock-token", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"firstname":    r.PostForm.Get("firstname"),
			"lastname":     r.PostForm.Get("lastname"),
			"dob":          r.PostForm.Get("dob"),
			"gender":       r.PostForm.Get("gender"),
			"departmentid": r.PostForm.Get("departmentid"),
		}
		w.Write([]byte(`[{"patientid":"4321"}]`))
	})

	ref, err := client.CreatePatient(context.Background(), NewPatient{
		FirstName: "Ann", LastName: "Lee", DOB: "2015-01-01", Gender: "F", DepartmentID: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "4321", ref.ID)
	assert.Equal(t, map[string]string{
		"firstname": "Ann", "lastname": "Lee", "dob": "2015-01-01", "gender": "F", "departmentid": "1",
	}, form)
}

func TestCreatePatient_ResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantErr error
	}{
		{name: "object with number id", status: 200, body: `{"patientid": 77}`, wantID: "77"},
		{name: "object with string id", status: 200, body: `{"patientid": "78"}`, wantID: "78"},
		{name: "missing id", status: 200, body: `{"status":"ok"}`, wantErr: ErrMalformedResponse},
		{name: "empty array", status: 200, body: `[]`, wantErr: ErrMalformedResponse},
		{name: "not json", status: 200, body: `<html>`, wantErr: ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			ref, err := client.CreatePatient(context.Background(), NewPatient{FirstName: "A"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ref)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ref.ID)
		})
	}
}

func TestCreatePatient_StatusError(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"expired"}`, http.StatusUnauthorized)
	})
	_, err := client.CreatePatient(context.Background(), NewPatient{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, []string{"mock-token"}, tokens.invalidated)
}

func TestCreatePatient_TokenFailure(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("resource endpoint must not be called without a token")
	})
	tokens.err = &AuthError{StatusCode: 500}
	_, err := client.CreatePatient(context.Background(), NewPatient{})
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestBookAppointment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/195900/appointments", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2", r.PostForm.Get("providerid"))
		assert.Equal(t, "1", r.PostForm.Get("departmentid"))
		assert.Equal(t, "4321", r.PostForm.Get("patientid"))
		assert.Equal(t, "checkup", r.PostForm.Get("reason"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"appointmentid":"998","date":"01/20/2026","starttime":"09:30"}`))
	})

	raw, err := client.BookAppointment(context.Background(), AppointmentBooking{
		ProviderID: "2", DepartmentID: "1", PatientID: "4321", Reason: "checkup",
	})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "998", payload["appointmentid"])
}

func TestBookAppointment_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "validation error", status: http.StatusBadRequest, body: `{"error":"invalid slot"}`},
		{name: "null body", status: http.StatusOK, body: `null`},
		{name: "empty body", status: http.StatusOK, body: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			raw, err := client.BookAppointment(context.Background(), AppointmentBooking{})
			assert.Error(t, err)
			assert.Nil(t, raw)
		})
	}
}

func TestBookAppointment_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.BookAppointment(ctx, AppointmentBooking{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListProviders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/195900/providers", r.URL.Path)
		w.Write([]byte(`{"providers":[
			{"providerid":71,"displayname":"Dr. Alice Park"},
			{"providerid":"72","displayname":"  "},
			{"providerid":73,"displayname":"Dr. Ben Ortiz"}
		],"totalcount":3}`))
	})

	providers, err := client.ListProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, Provider{ID: "71", DisplayName: "Dr. Alice Park"}, providers[0])
	assert.Equal(t, "", providers[1].DisplayName)
	assert.Equal(t, "73", providers[2].ID)
}

func TestListProviders_Malformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"providers": "nope"}`))
	})
	_, err := client.ListProviders(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
