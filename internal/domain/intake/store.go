package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DraftStore keeps drafts between requests. Drafts live only in process
// memory; a restart discards them, as closing the form tab would.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]*Draft
	now    func() time.Time
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[uuid.UUID]*Draft), now: time.Now}
}

// Put stores d, assigning an id on first save.
func (s *DraftStore) Put(d *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.drafts[d.ID] = cloneDraft(d)
}

func (s *DraftStore) Get(id uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return cloneDraft(d), nil
}

// Update loads a draft, applies fn and saves the result unless fn fails.
func (s *DraftStore) Update(id uuid.UUID, fn func(d *Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	next := cloneDraft(cur)
	if err := fn(next); err != nil {
		return cloneDraft(cur), err
	}
	next.UpdatedAt = s.now()
	s.drafts[id] = next
	return cloneDraft(next), nil
}

func (s *DraftStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return false
	}
	delete(s.drafts, id)
	return true
}

func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

func cloneDraft(d *Draft) *Draft {
	cp := *d
	cp.Fields = make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		if codes, ok := v.([]int); ok {
			v = append([]int(nil), codes...)
		}
		cp.Fields[k] = v
	}
	cp.Consultations = append([]DraftConsultation(nil), d.Consultations...)
	if cp.Consultations == nil {
		cp.Consultations = []DraftConsultation{}
	}
	if d.PatientID != nil {
		id := *d.PatientID
		cp.PatientID = &id
	}
	return &cp
}
