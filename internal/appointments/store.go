// Package appointments holds the locally synthesized ("demo") appointment
// ledger used when the sandbox booking pipeline cannot complete.
package appointments

import (
	"sync"
	"time"
)

// StatusScheduled is the status given to every fallback record.
const StatusScheduled = "Scheduled"

// Record is a locally stored appointment.
type Record struct {
	ID                   string    `json:"-"` // log correlation only
	ProviderUsername     string    `json:"providerUsername"`
	ProviderName         string    `json:"providerName"`
	FirstName            string    `json:"firstname"`
	LastName             string    `json:"lastname"`
	ReasonForAppointment string    `json:"reasonForAppointment"`
	Email                string    `json:"email,omitempty"`
	PhoneNumber          string    `json:"phoneNumber,omitempty"`
	AppointmentTime      time.Time `json:"appointmentTime"`
	Status               string    `json:"status"`
}

// Store is an append-only appointment ledger.
type Store interface {
	Append(rec Record)
	ListByProvider(username string) []Record
	Len() int
}

// MemoryStore keeps records in insertion order for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds rec to the end of the ledger.
func (s *MemoryStore) Append(rec Record) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

// ListByProvider returns a snapshot of the records whose ProviderUsername
// equals username exactly, oldest first.
func (s *MemoryStore) ListByProvider(username string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.ProviderUsername == username {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Store = (*MemoryStore)(nil)
