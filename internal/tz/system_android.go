//go:build android

package tz

import (
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// platformZone asks the Android property service for the device zone.
func platformZone() (string, error) {
	output, err := exec.Command("getprop", "persist.sys.timezone").Output()
	if err != nil {
		return "", errors.Wrap(err, "getprop persist.sys.timezone")
	}
	return strings.TrimSpace(string(output)), nil
}
