//go:build darwin

package tz

import (
	"os"

	"github.com/cockroachdb/errors"
)

const globalPreferencesPath = "/Library/Preferences/.GlobalPreferences.plist"

// platformZone reads the zone selected in System Settings.
func platformZone() (string, error) {
	data, err := os.ReadFile(globalPreferencesPath)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", globalPreferencesPath)
	}
	return zoneFromGlobalPreferences(data)
}
