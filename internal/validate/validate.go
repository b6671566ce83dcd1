// Package validate cross-checks declared module requirements against the
// enabled set. A registry silently missing a dependency produces runtime
// errors far from the cause, so an unmet requirement hard-fails the build.
package validate

import (
	"fmt"
	"sort"
	"strings"

	merrors "git.home.luguber.info/inful/modkit/internal/errors"
	"git.home.luguber.info/inful/modkit/internal/scanner"
)

// Violation is one module with requirements missing from the enabled set.
type Violation struct {
	Module  string
	Missing []string
}

// DependencyError reports every offending module at once.
type DependencyError struct {
	Violations []Violation
}

// Error renders the full report with a corrective hint.
func (e *DependencyError) Error() string {
	var b strings.Builder
	b.WriteString("unmet module dependencies:\n")
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "  module %q requires %s\n", v.Module, strings.Join(quoteAll(v.Missing), ", "))
	}
	b.WriteString("enable the missing modules in src/modules.yaml or remove the requirement")
	return b.String()
}

// Unwrap lets callers match the sentinel with errors.Is.
func (e *DependencyError) Unwrap() error { return merrors.ErrDependencyUnmet }

// Dependencies checks each module's declared requires list against the
// enabled-id set, using the metadata collected during the scan. It returns
// nil when every requirement is satisfied.
func Dependencies(modules []*scanner.Module) error {
	enabled := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		enabled[m.ID] = struct{}{}
	}

	var violations []Violation
	for _, m := range modules {
		var missing []string
		for _, req := range m.Requires {
			if _, ok := enabled[req]; !ok {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			violations = append(violations, Violation{Module: m.ID, Missing: missing})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].Module < violations[j].Module })
	return &DependencyError{Violations: violations}
}

func quoteAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
