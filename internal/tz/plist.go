package tz

import (
	"github.com/cockroachdb/errors"
	"howett.net/plist"
)

type globalPreferences struct {
	SelectedCity struct {
		TimeZoneName string `plist:"TimeZoneName"`
	} `plist:"com.apple.preferences.timezone.selected_city"`
}

// zoneFromGlobalPreferences decodes a macOS .GlobalPreferences.plist, in any
// of the plist encodings, and returns the selected city's zone name.
func zoneFromGlobalPreferences(data []byte) (string, error) {
	var prefs globalPreferences
	if _, err := plist.Unmarshal(data, &prefs); err != nil {
		return "", errors.Wrap(err, "decode global preferences")
	}
	if prefs.SelectedCity.TimeZoneName == "" {
		return "", errors.New("global preferences carry no selected city")
	}
	return prefs.SelectedCity.TimeZoneName, nil
}
