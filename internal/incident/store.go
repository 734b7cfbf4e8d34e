package incident

import (
	"fmt"
	"sort"
	"sync"
)

// IncidentStore persists incidents.
type IncidentStore interface {
	CreateIncident(inc *Incident) error
	GetIncident(id string) (*Incident, error)
	UpdateIncident(inc *Incident) error
	ListIncidentsForJob(jobID string) ([]*Incident, error)
	ListIncidentsByState(states ...State) ([]*Incident, error)
}

// TicketStore persists tickets.
type TicketStore interface {
	CreateTicket(t *Ticket) error
	GetTicket(id string) (*Ticket, error)
	UpdateTicket(t *Ticket) error
	ListTicketsForIncident(incidentID string) ([]*Ticket, error)
}

// MemoryIncidentStore is an in-memory implementation of IncidentStore.
type MemoryIncidentStore struct {
	mu        sync.RWMutex
	incidents map[string]*Incident
}

// NewMemoryIncidentStore creates a new in-memory incident store.
func NewMemoryIncidentStore() *MemoryIncidentStore {
	return &MemoryIncidentStore{incidents: make(map[string]*Incident)}
}

// CreateIncident creates a new incident.
func (s *MemoryIncidentStore) CreateIncident(inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.incidents[inc.ID]; exists {
		return fmt.Errorf("incident %s already exists", inc.ID)
	}
	s.incidents[inc.ID] = copyIncident(inc)
	return nil
}

// GetIncident retrieves an incident by ID.
func (s *MemoryIncidentStore) GetIncident(id string) (*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, exists := s.incidents[id]
	if !exists {
		return nil, fmt.Errorf("incident %s not found", id)
	}
	return copyIncident(inc), nil
}

// UpdateIncident updates an existing incident.
func (s *MemoryIncidentStore) UpdateIncident(inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.incidents[inc.ID]; !exists {
		return fmt.Errorf("incident %s not found", inc.ID)
	}
	s.incidents[inc.ID] = copyIncident(inc)
	return nil
}

// ListIncidentsForJob returns a job's incidents, newest first.
func (s *MemoryIncidentStore) ListIncidentsForJob(jobID string) ([]*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Incident
	for _, inc := range s.incidents {
		if inc.JobID == jobID {
			result = append(result, copyIncident(inc))
		}
	}
	sortIncidents(result)
	return result, nil
}

// ListIncidentsByState returns incidents in any of the given states,
// newest first.
func (s *MemoryIncidentStore) ListIncidentsByState(states ...State) ([]*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[State]bool, len(states))
	for _, st := range states {
		wanted[st] = true
	}

	var result []*Incident
	for _, inc := range s.incidents {
		if wanted[inc.State] {
			result = append(result, copyIncident(inc))
		}
	}
	sortIncidents(result)
	return result, nil
}

func copyIncident(inc *Incident) *Incident {
	incCopy := *inc
	incCopy.Timeline = append([]TimelineEvent(nil), inc.Timeline...)
	return &incCopy
}

func sortIncidents(incidents []*Incident) {
	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})
}

// MemoryTicketStore is an in-memory implementation of TicketStore.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewMemoryTicketStore creates a new in-memory ticket store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]*Ticket)}
}

// CreateTicket creates a new ticket.
func (s *MemoryTicketStore) CreateTicket(t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[t.ID]; exists {
		return fmt.Errorf("ticket %s already exists", t.ID)
	}
	s.tickets[t.ID] = copyTicket(t)
	return nil
}

// GetTicket retrieves a ticket by ID.
func (s *MemoryTicketStore) GetTicket(id string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tickets[id]
	if !exists {
		return nil, fmt.Errorf("ticket %s not found", id)
	}
	return copyTicket(t), nil
}

// UpdateTicket updates an existing ticket.
func (s *MemoryTicketStore) UpdateTicket(t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[t.ID]; !exists {
		return fmt.Errorf("ticket %s not found", t.ID)
	}
	s.tickets[t.ID] = copyTicket(t)
	return nil
}

// ListTicketsForIncident returns an incident's tickets, newest first.
func (s *MemoryTicketStore) ListTicketsForIncident(incidentID string) ([]*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Ticket
	for _, t := range s.tickets {
		if t.IncidentID == incidentID {
			result = append(result, copyTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func copyTicket(t *Ticket) *Ticket {
	tCopy := *t
	tCopy.Timeline = append([]TimelineEvent(nil), t.Timeline...)
	return &tCopy
}
