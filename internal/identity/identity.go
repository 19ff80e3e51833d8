// Package identity derives a stable JobIdentity for a listing entry.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"jobbot-engine/internal/domain"
)

// Entry is what the resolver can observe about one listing row.
type Entry struct {
	Link     string
	Title    string
	Position int
	// Attr reads an attribute of the entry element. May be nil.
	Attr func(name string) (string, bool)
}

// Strategy tries to produce an identity from an entry.
type Strategy struct {
	Tier    string
	Resolve func(Entry) (domain.JobIdentity, bool)
}

// Strategies in resolution order. The last one always succeeds.
var Strategies = []Strategy{
	{Tier: "link", Resolve: fromLink},
	{Tier: "data-attr", Resolve: fromAttr("data-job-id")},
	{Tier: "dom-id", Resolve: fromAttr("id")},
	{Tier: "title-hash", Resolve: fromTitle},
}

// Resolve returns the first identity any strategy produces and the tier that
// produced it.
func Resolve(e Entry) (domain.JobIdentity, string) {
	for _, s := range Strategies {
		if id, ok := s.Resolve(e); ok {
			return id, s.Tier
		}
	}
	// unreachable while fromTitle is last
	id, _ := fromTitle(e)
	return id, "title-hash"
}

func fromLink(e Entry) (domain.JobIdentity, bool) {
	if id := extractQueryID(e.Link); id != "" {
		return domain.JobIdentity(id), true
	}
	if id := extractPathID(e.Link); id != "" {
		return domain.JobIdentity(id), true
	}
	return "", false
}

// extractQueryID reads the jobid= parameter; the key match ignores case.
func extractQueryID(u string) string {
	i := strings.Index(strings.ToLower(u), "jobid=")
	if i < 0 {
		return ""
	}
	tail := u[i+len("jobid="):]
	if j := strings.IndexAny(tail, "&#"); j >= 0 {
		tail = tail[:j]
	}
	return strings.TrimSpace(tail)
}

// extractPathID takes the segment after /job/ up to the next / or ?.
func extractPathID(u string) string {
	parts := strings.SplitN(u, "/job/", 2)
	if len(parts) < 2 {
		return ""
	}
	tail := parts[1]
	if j := strings.IndexAny(tail, "/?#"); j >= 0 {
		tail = tail[:j]
	}
	return strings.TrimSpace(tail)
}

func fromAttr(name string) func(Entry) (domain.JobIdentity, bool) {
	return func(e Entry) (domain.JobIdentity, bool) {
		if e.Attr == nil {
			return "", false
		}
		v, ok := e.Attr(name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return "", false
		}
		return domain.JobIdentity(v), true
	}
}

func fromTitle(e Entry) (domain.JobIdentity, bool) {
	sum := md5.Sum([]byte(e.Title))
	return domain.JobIdentity(fmt.Sprintf("job_%s_%d", hex.EncodeToString(sum[:])[:8], e.Position)), true
}

// CleanText collapses whitespace, including non-breaking spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
