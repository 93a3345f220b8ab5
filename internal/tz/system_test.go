package tz

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func noEnv(string) (string, bool) { return "", false }

func noProbe() (string, error) { return "", nil }

// newZoneinfoTree creates root/zoneinfo/<zone> and returns root/etc.
func newZoneinfoTree(t *testing.T, zones ...string) (string, string) {
	t.Helper()
	root := t.TempDir()
	for _, zone := range zones {
		p := filepath.Join(root, "zoneinfo", filepath.FromSlash(zone))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("TZif"), 0o644))
	}
	etc := filepath.Join(root, "etc")
	require.NoError(t, os.MkdirAll(etc, 0o755))
	return root, etc
}

func TestSystemSource_TZEnv(t *testing.T) {
	s := &SystemSource{
		LookupEnv: func(key string) (string, bool) {
			if key == "TZ" {
				return ":Europe/Berlin", true
			}
			return "", false
		},
		Probe: noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("Europe/Berlin"), id)
}

func TestSystemSource_TZEnvEmptyMeansUTC(t *testing.T) {
	s := &SystemSource{
		LookupEnv: func(string) (string, bool) { return "", true },
		Probe:     noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("UTC"), id)
}

func TestSystemSource_TZEnvInvalid(t *testing.T) {
	s := &SystemSource{
		LookupEnv: func(string) (string, bool) { return "Not/AZone", true },
		Probe:     noProbe,
	}
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSystemSource_LocaltimeSymlink(t *testing.T) {
	root, etc := newZoneinfoTree(t, "America/Denver")
	link := filepath.Join(etc, "localtime")
	require.NoError(t, os.Symlink(filepath.Join(root, "zoneinfo", "America", "Denver"), link))

	s := &SystemSource{
		LocaltimePath: link,
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("America/Denver"), id)
}

func TestSystemSource_LocaltimeKeepsLinkedName(t *testing.T) {
	root, etc := newZoneinfoTree(t, "America/Denver")
	alias := filepath.Join(root, "zoneinfo", "US", "Mountain")
	require.NoError(t, os.MkdirAll(filepath.Dir(alias), 0o755))
	require.NoError(t, os.Symlink(filepath.Join("..", "America", "Denver"), alias))
	link := filepath.Join(etc, "localtime")
	require.NoError(t, os.Symlink(alias, link))

	s := &SystemSource{
		LocaltimePath: link,
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("US/Mountain"), id)
}

func TestSystemSource_LocaltimeRelativeLink(t *testing.T) {
	_, etc := newZoneinfoTree(t, "Europe/Paris")
	link := filepath.Join(etc, "localtime")
	require.NoError(t, os.Symlink(filepath.Join("..", "zoneinfo", "Europe", "Paris"), link))

	s := &SystemSource{
		LocaltimePath: link,
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("Europe/Paris"), id)
}

func TestSystemSource_LocaltimeNestedLink(t *testing.T) {
	root, etc := newZoneinfoTree(t, "Europe/Paris")
	hop := filepath.Join(root, "etc", "zone-current")
	require.NoError(t, os.Symlink(filepath.Join(root, "zoneinfo", "Europe", "Paris"), hop))
	link := filepath.Join(etc, "localtime")
	require.NoError(t, os.Symlink(hop, link))

	s := &SystemSource{
		LocaltimePath: link,
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("Europe/Paris"), id)
}

func TestSystemSource_FallsBackToTimezoneFile(t *testing.T) {
	_, etc := newZoneinfoTree(t)
	// A regular file, not a symlink into a zoneinfo tree.
	require.NoError(t, os.WriteFile(filepath.Join(etc, "localtime"), []byte("TZif"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(etc, "timezone"), []byte("# set by installer\nAustralia/Sydney\n"), 0o644))

	s := &SystemSource{
		LocaltimePath: filepath.Join(etc, "localtime"),
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         noProbe,
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("Australia/Sydney"), id)
}

func TestSystemSource_FallsBackToProbe(t *testing.T) {
	_, etc := newZoneinfoTree(t)
	s := &SystemSource{
		LocaltimePath: filepath.Join(etc, "localtime"),
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         func() (string, error) { return "Asia/Kolkata", nil },
	}
	id, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Identifier("Asia/Kolkata"), id)
}

func TestSystemSource_NothingUsable(t *testing.T) {
	_, etc := newZoneinfoTree(t)
	s := &SystemSource{
		LocaltimePath: filepath.Join(etc, "localtime"),
		TimezoneFile:  filepath.Join(etc, "timezone"),
		LookupEnv:     noEnv,
		Probe:         func() (string, error) { return "", errors.New("no probe") },
	}
	_, err := s.Current()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSystemSource_WatchedPathsDefaults(t *testing.T) {
	s := NewSystemSource("", "")
	assert.Equal(t, []string{DefaultLocaltimePath, DefaultTimezoneFile}, s.WatchedPaths())
}

func TestZoneFromZoneinfoPath(t *testing.T) {
	cases := map[string]string{
		"/usr/share/zoneinfo/America/Denver":        "America/Denver",
		"/var/db/timezone/zoneinfo/Europe/Paris":    "Europe/Paris",
		"/usr/share/zoneinfo/posix/Asia/Tokyo":      "Asia/Tokyo",
		"/usr/share/zoneinfo/right/America/Chicago": "America/Chicago",
		"/usr/share/zoneinfo/UTC":                   "UTC",
	}
	for path, want := range cases {
		got, err := zoneFromZoneinfoPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := zoneFromZoneinfoPath("/etc/localtime")
	assert.Error(t, err)
	_, err = zoneFromZoneinfoPath("/usr/share/zoneinfo/")
	assert.Error(t, err)
}

func TestZoneFromGlobalPreferences(t *testing.T) {
	prefs := map[string]interface{}{
		"AppleLocale": "en_US",
		"com.apple.preferences.timezone.selected_city": map[string]interface{}{
			"Name":         "Denver",
			"TimeZoneName": "America/Denver",
		},
	}
	for _, format := range []int{plist.XMLFormat, plist.BinaryFormat} {
		data, err := plist.Marshal(prefs, format)
		require.NoError(t, err)

		zone, err := zoneFromGlobalPreferences(data)
		require.NoError(t, err)
		assert.Equal(t, "America/Denver", zone)
	}
}

func TestZoneFromGlobalPreferences_Missing(t *testing.T) {
	data, err := plist.Marshal(map[string]interface{}{"AppleLocale": "en_US"}, plist.XMLFormat)
	require.NoError(t, err)

	_, err = zoneFromGlobalPreferences(data)
	assert.Error(t, err)
}
