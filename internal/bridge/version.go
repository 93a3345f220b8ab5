package bridge

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// supportedClients is the range of bridge protocol versions a client may
// declare. The event format only changes on a major bump.
const supportedClients = ">= 1.0.0, < 2.0.0"

// checkClientVersion accepts an empty version, which older clients omit.
func checkClientVersion(v string) error {
	if v == "" {
		return nil
	}
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid bridge version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(supportedClients)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("bridge version %s is not supported (want %s)", version, supportedClients)
	}
	return nil
}
