package dataverse

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinServerVersion is the oldest Dataverse release whose native API matches
// the endpoints used here.
const MinServerVersion = "5.0"

// ServerVersion returns the version reported by /api/info/version.
func (c *Client) ServerVersion(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	err := c.do(ctx, request{
		op:     "server_version",
		method: http.MethodGet,
		path:   "/api/info/version",
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckServerVersion reports whether reported satisfies the minimum.
// Dataverse reports versions such as "5.14" or "v. 4.20 build 1234";
// anything before the first digit is dropped.
func CheckServerVersion(reported, minimum string) (*semver.Version, bool, error) {
	cleaned := strings.TrimLeftFunc(reported, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if i := strings.IndexByte(cleaned, ' '); i >= 0 {
		cleaned = cleaned[:i]
	}

	v, err := semver.NewVersion(cleaned)
	if err != nil {
		return nil, false, fmt.Errorf("parsing server version %q: %w", reported, err)
	}
	c, err := semver.NewConstraint(">= " + minimum)
	if err != nil {
		return nil, false, fmt.Errorf("parsing minimum version %q: %w", minimum, err)
	}
	return v, c.Check(v), nil
}
