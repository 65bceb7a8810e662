package selection

import (
	"github.com/verustcode/materiality/internal/mapping"
)

// ErrorFlag reports whether the selections are too sparse to produce a meaningful
// report, with the message shown to the user. It never blocks generation.
func ErrorFlag(s *Selections, report ReportType) (bool, string) {
	what := "one exposure's materiality and scenario"
	if report == ReportScenario {
		what = "one scenario"
	}
	message := "Please select at least " + what + " before generating the report " +
		"and ensure you click the Next/Previous button to register your selection."

	if s == nil || s.IsEmpty() {
		return true, message
	}

	hasScenario := len(s.Scenarios()) > 0
	if report == ReportScenario {
		return !hasScenario, flagMessage(!hasScenario, message)
	}

	hasRating := false
	for _, r := range s.Exposures() {
		if r.Materiality().IsRated() {
			hasRating = true
			break
		}
	}
	ok := hasRating && hasScenario
	return !ok, flagMessage(!ok, message)
}

func flagMessage(flag bool, message string) string {
	if flag {
		return message
	}
	return ""
}

// Review is the tabular summary shown before generation.
type Review struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// BuildReview summarizes the stored selections for the given report type.
// N/A ratings are left out.
func BuildReview(s *Selections, report ReportType, institution string, tables *mapping.Tables) Review {
	review := Review{Title: "Review your selections"}
	if institution != "" && institution != NotApplicable {
		review.Title = institution + ": Review your selections"
	}

	var rated []Record
	for _, r := range s.All() {
		if r.Label != string(MaterialityNA) {
			rated = append(rated, r)
		}
	}

	switch report {
	case ReportScenario:
		review.Columns = []string{ColumnTitle("scenario")}
		for _, name := range s.Scenarios() {
			review.Rows = append(review.Rows, []string{name})
		}

	case ReportSector:
		review.Columns = []string{ColumnTitle("exposure"), ColumnTitle("label")}
		for _, r := range rated {
			label := r.Label
			if r.Exposure == CategorySectors {
				label = r.Sector
			}
			review.Rows = append(review.Rows, []string{r.Exposure, label})
		}

	default:
		review.Columns = []string{ColumnTitle("exposure"), ColumnTitle("sector"), ColumnTitle("type"), ColumnTitle("label")}
		byKey := make(map[string]Record)
		var scenarios []Record
		for _, r := range rated {
			if r.IsScenario() {
				scenarios = append(scenarios, r)
				continue
			}
			byKey[r.Key()] = r
		}
		// Mapping order for the institution, then scenarios.
		seen := make(map[string]bool)
		for _, row := range tables.ForInstitution(institution) {
			key := row.Exposure + "|" + row.Sector + "|" + row.Type
			r, ok := byKey[key]
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			review.Rows = append(review.Rows, []string{r.Exposure, r.Sector, r.Type, r.Label})
		}
		for _, r := range scenarios {
			review.Rows = append(review.Rows, []string{r.Exposure, r.Sector, r.Type, r.Label})
		}
	}

	return review
}
