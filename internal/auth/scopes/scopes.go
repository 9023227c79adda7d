// Package scopes is the static registry of permission scopes and the
// request-time enforcement gate. It has no dependencies and no state; both
// Implied and Authorize are pure functions.
package scopes

import (
	"fmt"
	"sort"
	"strings"
)

// Fine-grained scopes.
const (
	TasksRead     = "tasks:read"
	TasksWrite    = "tasks:write"
	ProjectsRead  = "projects:read"
	ProjectsWrite = "projects:write"
	CommentsRead  = "comments:read"
	CommentsWrite = "comments:write"
	Admin         = "admin"
)

// Legacy coarse scopes, kept for clients registered before the fine-grained
// split. Each expands to every matching fine-grained scope.
const (
	LegacyRead  = "read"
	LegacyWrite = "write"
)

var (
	readScopes  = []string{TasksRead, ProjectsRead, CommentsRead}
	writeScopes = []string{TasksWrite, ProjectsWrite, CommentsWrite}

	known = map[string]struct{}{
		TasksRead:     {},
		TasksWrite:    {},
		ProjectsRead:  {},
		ProjectsWrite: {},
		CommentsRead:  {},
		CommentsWrite: {},
		Admin:         {},
		LegacyRead:    {},
		LegacyWrite:   {},
	}
)

// Known reports whether s is a registered scope string.
func Known(s string) bool {
	_, ok := known[s]
	return ok
}

// All returns every registered scope, sorted, for documentation endpoints.
func All() []string {
	out := make([]string, 0, len(known))
	for s := range known {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Implied expands a granted scope set with everything the legacy aliases
// imply: "read" covers every *:read scope and "write" every *:write scope.
// All other scopes pass through unchanged. The result is deduplicated and
// sorted, which makes the function idempotent: Implied(Implied(s)) == Implied(s).
func Implied(granted []string) []string {
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
		switch s {
		case LegacyRead:
			for _, r := range readScopes {
				set[r] = struct{}{}
			}
		case LegacyWrite:
			for _, w := range writeScopes {
				set[w] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// InsufficientScopeError reports which required scopes the caller lacks.
type InsufficientScopeError struct {
	Missing []string
}

func (e *InsufficientScopeError) Error() string {
	return fmt.Sprintf("insufficient_scope: missing %s", strings.Join(e.Missing, " "))
}

// Authorize checks that the resolved scopes, after legacy implication
// expansion, are a superset of the required scopes. It fails closed with an
// *InsufficientScopeError naming every missing scope. Pure predicate, no
// side effects.
func Authorize(resolved, required []string) error {
	have := make(map[string]struct{})
	for _, s := range Implied(resolved) {
		have[s] = struct{}{}
	}

	var missing []string
	for _, req := range required {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &InsufficientScopeError{Missing: missing}
	}
	return nil
}

// Within reports whether every requested scope appears in allowed. It is the
// mint-time rule: requesting a scope outside the allowed set is an error,
// never a silent truncation.
func Within(requested, allowed []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
