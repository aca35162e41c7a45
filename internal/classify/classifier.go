// Package classify assigns the derived activity label for one
// assay/compound row. The engine is a layered-override design: an
// initial keyword scan of the assay name picks a provisional label, then
// a fixed sequence of override rules each unconditionally rewrites the
// label for rows matching their predicate. Later rules always win, so
// the rule order below is load-bearing.
package classify

import (
	"regexp"
	"strings"
)

// Activity labels.
const (
	LabelInactive                  = "Inactive"
	LabelInhibitor                 = "Inhibitor"
	LabelLigand                    = "Ligand"
	LabelInhibitorSubstrate        = "Inhibitor/Substrate"
	LabelInhibitorInducerModulator = "Inhibitor/Inducer/Modulator"
	LabelSubstrate                 = "Substrate"
	LabelInactivator               = "Inactivator"
	LabelActivator                 = "Activator"
	LabelInducer                   = "Inducer"
)

// InactivatorAID is the one assay whose active rows always classify as
// Inactivator, trumping every other rule.
const InactivatorAID = 1215398

var (
	substratePattern = regexp.MustCompile(`(?i)(activity of.*oxidation)|(activity at cyp.*phenotyping)|(activity at human recombinant cyp.*formation)|(activity at recombinant cyp.*formation)`)
	modulatorPattern = regexp.MustCompile(`(?i)(effect on cyp)|(effect on human recombinant cyp)|(effect on recombinant cyp)|(effect on human cyp)`)
	inducerPattern   = regexp.MustCompile(`(?i)(effect on cyp.*induction)|(induction of.*)`)
)

// Fields carries the row attributes the classifier reads. Missing
// attributes are empty strings and simply never match.
type Fields struct {
	Outcome      string // activity_outcome
	AssayName    string
	ActivityName string
	Direction    string // activity_direction
	AID          int
}

// rule is one override step: when match holds, label replaces whatever
// an earlier step assigned.
type rule struct {
	match func(Fields) bool
	label string
}

// overrides run in order after the keyword scan; each applies
// independently of what came before.
var overrides = []rule{
	{func(f Fields) bool {
		return f.ActivityName == "Km" || f.ActivityName == "Drug metabolism"
	}, LabelSubstrate},
	{func(f Fields) bool { return substratePattern.MatchString(f.AssayName) }, LabelSubstrate},
	{func(f Fields) bool { return modulatorPattern.MatchString(f.AssayName) }, LabelInhibitorInducerModulator},
	{func(f Fields) bool { return inducerPattern.MatchString(f.AssayName) }, LabelInducer},
	{func(f Fields) bool {
		return strings.Contains(strings.ToLower(f.Direction), "decreasing")
	}, LabelInhibitor},
	{func(f Fields) bool {
		return strings.Contains(strings.ToLower(f.Direction), "increasing")
	}, LabelActivator},
	{func(f Fields) bool { return f.AID == InactivatorAID }, LabelInactivator},
}

// Label returns the activity label for a row. Inactive rows are terminal.
// Rows whose outcome is neither Active nor Inactive get no label; the
// second return reports whether a label applies.
func Label(f Fields) (string, bool) {
	switch f.Outcome {
	case LabelInactive:
		return LabelInactive, true
	case "Active":
	default:
		return "", false
	}
	label := scanKeywords(f.AssayName)
	for _, r := range overrides {
		if r.match(f) {
			label = r.label
		}
	}
	return label, true
}

// scanKeywords picks the label of the keyword occurring earliest in the
// assay name; ties at the same position resolve to the keyword listed
// first in the table. No match defaults to Inhibitor/Inducer/Modulator.
func scanKeywords(assayName string) string {
	lower := strings.ToLower(assayName)
	best := len(lower)
	label := LabelInhibitorInducerModulator
	for _, kl := range orderedKeywords {
		pos := strings.Index(lower, kl.keyword)
		if pos >= 0 && pos < best {
			best = pos
			label = kl.label
		}
	}
	return label
}
