package report

import (
	"fmt"

	"github.com/verustcode/materiality/pkg/errors"
)

// Kinds of configuration gap.
const (
	GapMapping   = "mapping"    // selection without a mapping row
	GapContentID = "content_id" // materiality without any content id
	GapScenario  = "scenario"   // scenario missing from the scenario mapping
	GapFragment  = "fragment"   // content file lacks the referenced fragment
)

// Warning is a non-fatal configuration gap surfaced alongside the report.
type Warning struct {
	Code    errors.ErrorCode `json:"code"`
	Kind    string           `json:"kind"`
	Message string           `json:"message"`
	Subject string           `json:"subject,omitempty"`
}

// gapCollector accumulates warnings, or fails on the first gap in strict mode.
type gapCollector struct {
	strict   bool
	warnings []Warning
	seen     map[string]bool
}

func newGapCollector(strict bool) *gapCollector {
	return &gapCollector{strict: strict, seen: make(map[string]bool)}
}

// gap records a configuration gap. In strict mode it returns the error to propagate.
func (g *gapCollector) gap(kind, subject, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if g.strict {
		return errors.New(errors.ErrCodeConfigurationGap, msg).
			WithDetails(map[string]string{"kind": kind, "subject": subject})
	}
	key := kind + "\x00" + msg
	if g.seen[key] {
		return nil
	}
	g.seen[key] = true
	g.warnings = append(g.warnings, Warning{
		Code:    errors.ErrCodeConfigurationGap,
		Kind:    kind,
		Message: msg,
		Subject: subject,
	})
	return nil
}

// counts returns the number of warnings per kind.
func (g *gapCollector) counts() map[string]int {
	out := make(map[string]int)
	for _, w := range g.warnings {
		out[w.Kind]++
	}
	return out
}
