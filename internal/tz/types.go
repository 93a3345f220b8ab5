// Package tz resolves the host's current timezone identifier.
package tz

import (
	"strings"
	"time"
	_ "time/tzdata" // registry lookups must not depend on the host's zoneinfo

	"github.com/cockroachdb/errors"
)

// ErrUnavailable is returned when the host does not report a usable zone.
var ErrUnavailable = errors.New("timezone unavailable")

// Identifier is an IANA zone name such as "America/New_York".
type Identifier string

func (id Identifier) String() string { return string(id) }

// Location loads the zone described by the identifier.
func (id Identifier) Location() (*time.Location, error) {
	return time.LoadLocation(string(id))
}

// Parse validates name against the zone registry.
func Parse(name string) (Identifier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(ErrUnavailable, "empty zone name")
	}
	// LoadLocation accepts "Local", which names no zone at all.
	if name == "Local" {
		return "", errors.Wrapf(ErrUnavailable, "zone %q is not a registry name", name)
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", errors.Wrapf(ErrUnavailable, "unknown zone %q: %v", name, err)
	}
	return Identifier(name), nil
}

// Source reports the zone the host is currently configured with.
type Source interface {
	Current() (Identifier, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (Identifier, error)

func (f SourceFunc) Current() (Identifier, error) { return f() }
