package upload

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when an attachment id is not in the set.
var ErrNotFound = errors.New("attachment not found")

// Set is the uncommitted attachment collection of one wizard. Rejected
// operations leave it unchanged.
type Set struct {
	mu     sync.Mutex
	policy Policy
	items  []*Attachment
}

// NewSet creates an empty set governed by policy.
func NewSet(policy Policy) *Set {
	return &Set{policy: policy}
}

// Policy returns the governing policy.
func (s *Set) Policy() Policy {
	return s.policy
}

// Add appends an attachment after checking it against the policy.
func (s *Set) Add(a *Attachment) error {
	if err := s.policy.Check(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy.MaxFiles > 0 && len(s.items) >= s.policy.MaxFiles {
		return &Rejection{Reason: TooMany, Name: a.Name, Limit: int64(s.policy.MaxFiles)}
	}
	s.items = append(s.items, a)
	return nil
}

// Replace swaps the attachment with the given id for a new one, keeping its
// position. The old handle is released only when the new file is accepted.
func (s *Set) Replace(id string, a *Attachment) error {
	if err := s.policy.Check(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if existing.ID == id {
			existing.Release()
			s.items[i] = a
			return nil
		}
	}
	return ErrNotFound
}

// Remove drops and releases the attachment with the given id.
func (s *Set) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if existing.ID == id {
			existing.Release()
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// List returns the attachments in selection order.
func (s *Set) List() []*Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Attachment, len(s.items))
	copy(out, s.items)
	return out
}

// Detached returns independent copies of the attachments in selection
// order, for handing to a collaborator that runs outside the owner's lock.
func (s *Set) Detached() []*Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Attachment, len(s.items))
	for i, a := range s.items {
		out[i] = a.Detach()
	}
	return out
}

// Len returns the number of attachments.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Release drops every handle and empties the set.
func (s *Set) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.items {
		a.Release()
	}
	s.items = nil
}
