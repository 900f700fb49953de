package auth

import (
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
)

const (
	RoleAdmin   = "ADMIN"
	RoleDoctor  = "DOCTOR"
	RolePatient = "PATIENT"
)

// DefaultDenyMessage is used by rules without their own message.
const DefaultDenyMessage = "Access Denied - You don't have permission to perform this action"

// Rule grants a request matching Method and Pattern to Roles. An empty
// Method matches every method; nil Roles means any authenticated caller.
// Pattern uses "*" for one path segment and "**" for any number of them.
type Rule struct {
	Method  string
	Pattern string
	Roles   []string
	Message string
}

func (r Rule) matches(method, p string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	return MatchPath(r.Pattern, p)
}

func (r Rule) allows(role string) bool {
	if r.Roles == nil {
		return true
	}
	for _, want := range r.Roles {
		if want == role {
			return true
		}
	}
	return false
}

// Policy is an immutable ordered rule table; the first matching rule decides.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules []Rule) *Policy {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Policy{rules: cp}
}

var (
	adminOnly       = []string{RoleAdmin}
	adminDoctor     = []string{RoleAdmin, RoleDoctor}
	adminPatient    = []string{RoleAdmin, RolePatient}
	anyRole         = []string{RoleAdmin, RoleDoctor, RolePatient}
	msgPatientWrite = "Access Denied - Only ADMIN can modify patient records"
	msgDoctorWrite  = "Access Denied - Only ADMIN can modify doctor profiles"
)

// DefaultPolicy returns the access rules for the hospital API.
func DefaultPolicy() *Policy {
	return NewPolicy([]Rule{
		{http.MethodPost, "/patients/**", adminOnly, "Access Denied - Only ADMIN can create patients"},
		{http.MethodPut, "/patients/**", adminOnly, msgPatientWrite},
		{http.MethodDelete, "/patients/**", adminOnly, msgPatientWrite},
		{http.MethodGet, "/patients/**", adminDoctor, "Access Denied - Only ADMIN and DOCTOR can view patients"},

		{http.MethodPost, "/doctors/**", adminOnly, "Access Denied - Only ADMIN can register doctors"},
		{http.MethodPut, "/doctors/**", adminOnly, msgDoctorWrite},
		{http.MethodPatch, "/doctors/**", adminOnly, ""},
		{http.MethodDelete, "/doctors/**", adminOnly, msgDoctorWrite},
		{http.MethodGet, "/doctors/**", anyRole, ""},

		{http.MethodPost, "/appointments/**", adminPatient, "Access Denied - Only ADMIN and PATIENT can book appointments"},
		{http.MethodPut, "/appointments/*/status", adminDoctor, "Access Denied - Only ADMIN and DOCTOR can update appointment status"},
		{http.MethodPut, "/appointments/*/reschedule", adminDoctor, ""},
		{http.MethodPut, "/appointments/*/cancel", anyRole, ""},
		{http.MethodDelete, "/appointments/**", adminOnly, "Access Denied - Only ADMIN can delete appointments"},
		{http.MethodGet, "/appointments/**", nil, ""},

		{"", "/dashboard/**", adminOnly, ""},
	})
}

// Authorize returns whether role may perform method on p and, when denied,
// the message for the caller. Requests no rule matches are allowed.
func (pol *Policy) Authorize(method, p, role string) (bool, string) {
	p = normalize(p)
	for _, r := range pol.rules {
		if !r.matches(method, p) {
			continue
		}
		if r.allows(role) {
			return true, ""
		}
		if r.Message != "" {
			return false, r.Message
		}
		return false, DefaultDenyMessage
	}
	return true, ""
}

// Rules returns a copy of the rule table.
func (pol *Policy) Rules() []Rule {
	cp := make([]Rule, len(pol.rules))
	copy(cp, pol.rules)
	return cp
}

// Middleware enforces the policy for authenticated requests. Requests
// matched by skipper pass through untouched.
func (pol *Policy) Middleware(skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			role := RoleFromContext(c.Request().Context())
			if role == "" {
				return apperr.Unauthorized(msgAuthRequired, detailsAuthRequired)
			}
			if ok, msg := pol.Authorize(c.Request().Method, c.Request().URL.Path, role); !ok {
				return apperr.Forbidden(msg)
			}
			return next(c)
		}
	}
}

// MatchPath reports whether p matches an ant-style pattern. "*" matches
// within one segment and "**" matches zero or more whole segments.
func MatchPath(pattern, p string) bool {
	return matchSegments(split(pattern), split(normalize(p)))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pat[0], segs[0]); err != nil || !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func normalize(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
