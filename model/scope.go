package model

import "strings"

// The permission strings a client may request. The set is closed: anything
// outside it fails scope validation as a whole, there are no partial grants.
const (
	ScopeJobsRead          = "jobs:read"
	ScopeApplicationsRead  = "applications:read"
	ScopeApplicationsWrite = "applications:write"
)

var registeredScopes = map[string]struct{}{
	ScopeJobsRead:          {},
	ScopeApplicationsRead:  {},
	ScopeApplicationsWrite: {},
}

// IsRegisteredScope reports whether s is a member of the closed scope registry.
func IsRegisteredScope(s string) bool {
	_, ok := registeredScopes[s]
	return ok
}

// ValidateScopes returns the first unknown scope, if any. An empty request is
// rejected the same way: a grant must name at least one registered scope.
func ValidateScopes(scopes []string) (string, bool) {
	if len(scopes) == 0 {
		return "", false
	}
	for _, s := range scopes {
		if !IsRegisteredScope(s) {
			return s, false
		}
	}
	return "", true
}

// ScopesContain reports whether the granted set includes the required scope.
func ScopesContain(granted []string, required string) bool {
	for _, s := range granted {
		if s == required {
			return true
		}
	}
	return false
}

// ScopesSuperset reports whether every scope in want is present in have.
func ScopesSuperset(have, want []string) bool {
	for _, w := range want {
		if !ScopesContain(have, w) {
			return false
		}
	}
	return true
}

// ScopeUnion merges scope lists, preserving first-seen order.
func ScopeUnion(lists ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// SplitScopes parses a space-separated scope string, dropping empty tokens.
func SplitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Fields(raw) {
		out = append(out, s)
	}
	return out
}

// JoinScopes renders a scope list in the space-joined wire form.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
