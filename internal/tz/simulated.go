package tz

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Simulated is a settable Source. It is safe for concurrent use.
type Simulated struct {
	mu  sync.Mutex
	id  Identifier
	err error
}

// NewSimulated returns a Simulated source reporting name. It panics if name
// is not a registry zone.
func NewSimulated(name string) *Simulated {
	id, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return &Simulated{id: id}
}

// Set changes the reported zone and clears any failure set with Fail.
func (s *Simulated) Set(name string) error {
	id, err := Parse(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.id = id
	s.err = nil
	s.mu.Unlock()
	return nil
}

// Fail makes Current report err until the next Set. A nil err clears it.
func (s *Simulated) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Simulated) Current() (Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", errors.Wrap(ErrUnavailable, s.err.Error())
	}
	return s.id, nil
}
