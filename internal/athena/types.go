package athena

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NewPatient carries the demographics sent to the patients endpoint.
type NewPatient struct {
	FirstName    string
	LastName     string
	DOB          string // YYYY-MM-DD
	Gender       string
	DepartmentID string
}

// PatientRef identifies a patient created remotely.
type PatientRef struct {
	ID string
}

// AppointmentBooking is the form payload for the appointments endpoint.
type AppointmentBooking struct {
	ProviderID   string
	DepartmentID string
	PatientID    string
	Reason       string
}

// Provider is a practice provider as listed by the remote directory.
type Provider struct {
	ID          string
	DisplayName string
}

// flexibleString accepts a JSON string or number; the sandbox is not
// consistent about which one it returns for identifiers.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleString(n.String())
	return nil
}

type tokenResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   flexibleString `json:"expires_in"`
	TokenType   string         `json:"token_type"`
}

type patientResponse struct {
	PatientID flexibleString `json:"patientid"`
}

type providerResponse struct {
	ProviderID  flexibleString `json:"providerid"`
	DisplayName string         `json:"displayname"`
}

type providersResponse struct {
	Providers []providerResponse `json:"providers"`
}
