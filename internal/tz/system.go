package tz

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLocaltimePath = "/etc/localtime"
	DefaultTimezoneFile  = "/etc/timezone"
)

// SystemSource reads the zone the host is configured with. The zero value
// uses the default paths and the process environment.
type SystemSource struct {
	// LocaltimePath is the zoneinfo symlink, /etc/localtime by default.
	LocaltimePath string
	// TimezoneFile holds a bare zone name, /etc/timezone by default.
	TimezoneFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Probe is the last-resort platform lookup. Defaults to the build's
	// platform probe; set to a func returning "" to disable.
	Probe func() (string, error)
}

// NewSystemSource returns a SystemSource using the given paths. Empty
// arguments fall back to the defaults.
func NewSystemSource(localtimePath, timezoneFile string) *SystemSource {
	return &SystemSource{
		LocaltimePath: localtimePath,
		TimezoneFile:  timezoneFile,
	}
}

func (s *SystemSource) Current() (Identifier, error) {
	lookupEnv := s.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	// TZ overrides everything else, as it does for the time package.
	if tzEnv, found := lookupEnv("TZ"); found {
		tzEnv = strings.TrimPrefix(tzEnv, ":")
		if tzEnv == "" {
			return "UTC", nil
		}
		return Parse(tzEnv)
	}

	probe := s.Probe
	if probe == nil {
		probe = platformZone
	}

	lookups := []struct {
		name string
		fn   func() (string, error)
	}{
		{"localtime", func() (string, error) { return zoneFromLocaltime(s.localtimePath()) }},
		{"timezone-file", func() (string, error) { return zoneFromFile(s.timezoneFile()) }},
		{"platform", probe},
	}

	var failures []string
	for _, lookup := range lookups {
		name, err := lookup.fn()
		if err == nil && name == "" {
			continue
		}
		if err == nil {
			var id Identifier
			if id, err = Parse(name); err == nil {
				return id, nil
			}
		}
		log.WithFields(log.Fields{
			"lookup": lookup.name,
		}).WithError(err).Trace("Timezone lookup failed")
		failures = append(failures, lookup.name+": "+err.Error())
	}

	if len(failures) == 0 {
		return "", ErrUnavailable
	}
	return "", errors.Wrap(ErrUnavailable, strings.Join(failures, "; "))
}

func (s *SystemSource) localtimePath() string {
	if s.LocaltimePath == "" {
		return DefaultLocaltimePath
	}
	return s.LocaltimePath
}

func (s *SystemSource) timezoneFile() string {
	if s.TimezoneFile == "" {
		return DefaultTimezoneFile
	}
	return s.TimezoneFile
}

// WatchedPaths lists the files whose replacement signals a zone change.
func (s *SystemSource) WatchedPaths() []string {
	return []string{s.localtimePath(), s.timezoneFile()}
}

// zoneFromLocaltime extracts the zone name from a symlink such as
// /etc/localtime -> /usr/share/zoneinfo/America/Denver.
// The link itself names the zone the operator picked, so it wins over the
// end of the chain (US/Mountain rather than America/Denver).
func zoneFromLocaltime(path string) (string, error) {
	if link, err := os.Readlink(path); err == nil {
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(path), link)
		}
		if name, err := zoneFromZoneinfoPath(link); err == nil {
			return name, nil
		}
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return zoneFromZoneinfoPath(target)
}

func zoneFromZoneinfoPath(target string) (string, error) {
	target = filepath.ToSlash(target)
	const marker = "zoneinfo/"
	idx := strings.LastIndex(target, marker)
	if idx < 0 {
		return "", errors.Newf("%s is not inside a zoneinfo tree", target)
	}
	name := target[idx+len(marker):]
	// Some distributions keep duplicate trees under posix/ and right/.
	name = strings.TrimPrefix(name, "posix/")
	name = strings.TrimPrefix(name, "right/")
	if name == "" {
		return "", errors.Newf("%s names no zone", target)
	}
	return name, nil
}

func zoneFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	// The file may carry comments after the zone name.
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	return "", errors.Newf("%s is empty", path)
}
