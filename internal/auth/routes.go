// ABOUTME: Static classification of request paths into public and protected
// ABOUTME: An ordered exact/prefix rule table where the first match wins

package auth

import (
	"path"
	"strings"
)

// MatchKind selects how a rule pattern is compared with a path.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
)

// RouteClass is the authentication requirement for a path.
type RouteClass int

const (
	Public RouteClass = iota
	Protected
)

func (c RouteClass) String() string {
	if c == Protected {
		return "protected"
	}
	return "public"
}

// RouteRule is one row of a RouteTable.
type RouteRule struct {
	Match   MatchKind
	Pattern string
	Class   RouteClass
}

// RouteTable classifies paths by its rules in order. Paths that match no rule
// get the fallback class.
type RouteTable struct {
	rules    []RouteRule
	fallback RouteClass
}

// NewRouteTable builds a table. The rules slice is copied.
func NewRouteTable(rules []RouteRule, fallback RouteClass) *RouteTable {
	return &RouteTable{
		rules:    append([]RouteRule(nil), rules...),
		fallback: fallback,
	}
}

// DefaultRoutes protects every endpoint that runs a privileged relay operation.
// Unmatched paths (login, logout, me, pages, health) are public. That fallback
// is fail-open: a new privileged endpoint must be added here to be protected.
func DefaultRoutes() []RouteRule {
	return []RouteRule{
		{Match: MatchExact, Pattern: "/api/users", Class: Protected},
		{Match: MatchPrefix, Pattern: "/api/users/", Class: Protected},
		{Match: MatchExact, Pattern: "/api/status", Class: Protected},
		{Match: MatchExact, Pattern: "/api/logs", Class: Protected},
		{Match: MatchExact, Pattern: "/api/start", Class: Protected},
		{Match: MatchExact, Pattern: "/api/stop", Class: Protected},
		{Match: MatchExact, Pattern: "/api/restart", Class: Protected},
		{Match: MatchExact, Pattern: "/api/control", Class: Protected},
		{Match: MatchExact, Pattern: "/api/coturn-check", Class: Protected},
		{Match: MatchExact, Pattern: "/api/audit", Class: Protected},
	}
}

// DefaultRouteTable returns DefaultRoutes with a public fallback.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(DefaultRoutes(), Public)
}

// Classify returns the class of the first rule matching p.
// Both p as given and its cleaned form are classified, and the path is
// protected if either form is. "/api//status" is protected through its
// cleaned form; "/api/users/.." is protected through its raw form because
// the mux still routes it to a handler under /api/users/.
func (t *RouteTable) Classify(p string) RouteClass {
	raw := p
	if raw == "" || raw[0] != '/' {
		raw = "/" + raw
	}
	clean := cleanPath(p)

	class := t.classify(clean)
	if class != Protected && raw != clean && t.classify(raw) == Protected {
		return Protected
	}
	return class
}

func (t *RouteTable) classify(p string) RouteClass {
	for _, rule := range t.rules {
		if rule.matches(p) {
			return rule.Class
		}
	}
	return t.fallback
}

// Rules returns a copy of the rules in evaluation order.
func (t *RouteTable) Rules() []RouteRule {
	return append([]RouteRule(nil), t.rules...)
}

func (r RouteRule) matches(p string) bool {
	switch r.Match {
	case MatchExact:
		return p == r.Pattern || (len(p) > 1 && strings.TrimSuffix(p, "/") == r.Pattern)
	case MatchPrefix:
		return strings.HasPrefix(p, r.Pattern)
	default:
		return false
	}
}

// cleanPath normalizes p like net/http.ServeMux does, keeping a trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	if strings.HasSuffix(p, "/") && np != "/" {
		np += "/"
	}
	return np
}
