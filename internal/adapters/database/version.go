package database

import (
	"regexp"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// MinimumVersions are the oldest server releases each driver supports.
var MinimumVersions = map[config.Dialect]*version.Version{
	config.PostgreSQL: version.Must(version.NewVersion("9.6")),
	config.MySQL:      version.Must(version.NewVersion("5.7")),
	config.SQLite:     version.Must(version.NewVersion("3.8.3")),
}

var leadingVersion = regexp.MustCompile(`^\s*v?(\d+(?:\.\d+)*)`)

// ParseServerVersion extracts the numeric release from a server version
// string such as "14.5 (Debian 14.5-1)" or "8.0.33-0ubuntu0.22.04.2".
func ParseServerVersion(raw string) (*version.Version, error) {
	m := leadingVersion.FindStringSubmatch(raw)
	if m == nil {
		return nil, dberr.Newf(dberr.KindConnection, "version", "unrecognized server version %q", raw)
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return nil, dberr.Wrap(dberr.KindConnection, "version", err)
	}
	return v, nil
}

// CheckServerVersion parses raw and rejects releases older than the
// dialect's minimum.
func CheckServerVersion(d config.Dialect, raw string) (*version.Version, error) {
	v, err := ParseServerVersion(raw)
	if err != nil {
		return nil, err
	}
	if floor, ok := MinimumVersions[d]; ok && v.LessThan(floor) {
		return v, dberr.Newf(dberr.KindConnection, "version",
			"%s server %s is older than the supported minimum %s", d, v, floor)
	}
	return v, nil
}
