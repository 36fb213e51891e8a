//go:build property

package timeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/epfo-tools/case-engine/internal/normalize"
)

type propDate struct {
	Day   int
	Month int
	Year  int
}

func genPropDate() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 28),
		gen.IntRange(1, 12),
		gen.IntRange(1990, 2030),
	).Map(func(vals []interface{}) propDate {
		return propDate{Day: vals[0].(int), Month: vals[1].(int), Year: vals[2].(int)}
	})
}

// Known dates come out in non-decreasing order no matter how the source
// lines are arranged, and no event is lost.
func TestExtractOrderingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("dates sort non-decreasing, events preserved", prop.ForAll(
		func(dates []propDate) bool {
			var lines []string
			for _, d := range dates {
				lines = append(lines, fmt.Sprintf("%02d-%02d-%d hearing held", d.Day, d.Month, d.Year))
			}
			events, _ := NewExtractor(300, nil).Extract(normalize.Normalize(strings.Join(lines, "\n")))
			if len(events) != len(dates) {
				return false
			}
			for i := 1; i < len(events); i++ {
				if events[i-1].Date == nil || events[i].Date == nil {
					return false
				}
				if events[i].Date.Before(*events[i-1].Date) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genPropDate()),
	))

	properties.Property("extraction is idempotent", prop.ForAll(
		func(dates []propDate) bool {
			var lines []string
			for _, d := range dates {
				lines = append(lines, fmt.Sprintf("%02d-%02d-%d matter adjourned", d.Day, d.Month, d.Year))
			}
			doc := normalize.Normalize(strings.Join(lines, "\n"))
			ex := NewExtractor(300, nil)
			first, _ := ex.Extract(doc)
			second, _ := ex.Extract(doc)
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i].Kind != second[i].Kind || first[i].SourceLine != second[i].SourceLine {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genPropDate()),
	))

	properties.TestingRun(t)
}
