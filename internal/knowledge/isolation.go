package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/local-guide/internal/model"
)

// CheckIsolation inspects a bound context for signs that it describes a
// different city: it must mention its own city, and no other registered city
// may be mentioned more than a tenth as often. It returns human-readable
// warnings; an empty slice means the context looks isolated.
func CheckIsolation(c model.Context, registry *Registry) []string {
	if c.IsZero() || registry == nil {
		return nil
	}

	lower := strings.ToLower(c.Text)
	own := countMentions(lower, c.City)

	var warnings []string
	if own == 0 {
		warnings = append(warnings, fmt.Sprintf("context for %s never mentions %s", c.City, c.City.Title()))
	}

	for _, other := range registry.Cities() {
		if other == c.City {
			continue
		}
		n := countMentions(lower, other)
		if n == 0 {
			continue
		}
		if own == 0 || n*10 > own {
			warnings = append(warnings,
				fmt.Sprintf("context for %s mentions %s %d times (own city %d times)", c.City, other, n, own))
		}
	}
	return warnings
}

func countMentions(lowerText string, city model.City) int {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(string(city)) + `\b`)
	return len(re.FindAllStringIndex(lowerText, -1))
}
