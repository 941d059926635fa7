// Package commit implements the direct commit path and commit message rendering.
package commit

import (
	"os"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/reposync/domain"
)

// TimestampLayout is the layout substituted for {timestamp}.
const TimestampLayout = "2006-01-02 15:04:05 -0700"

// DefaultTemplate is the commit message template used when none is configured.
const DefaultTemplate = "reposync sync: {timestamp} {hostname} [{scope}]"

// RenderMessage substitutes {timestamp}, {hostname} and {scope} in template.
// Unknown placeholders are left as-is.
func RenderMessage(template string, scope domain.CommitScope, now time.Time, host string) string {
	return strings.NewReplacer(
		"{timestamp}", now.Format(TimestampLayout),
		"{hostname}", host,
		"{scope}", scope.String(),
	).Replace(template)
}

// Renderer renders messages with a bound clock and hostname source.
type Renderer struct {
	Now      func() time.Time
	Hostname func() (string, error)
}

// NewRenderer returns a Renderer using the local clock and os.Hostname.
func NewRenderer() *Renderer {
	return &Renderer{Now: time.Now, Hostname: os.Hostname}
}

// Render renders template for scope. A hostname lookup failure renders an empty host.
func (r *Renderer) Render(template string, scope domain.CommitScope) string {
	now, hostname := time.Now, os.Hostname
	if r != nil && r.Now != nil {
		now = r.Now
	}
	if r != nil && r.Hostname != nil {
		hostname = r.Hostname
	}

	host, err := hostname()
	if err != nil {
		host = ""
	}
	return RenderMessage(template, scope, now(), host)
}
