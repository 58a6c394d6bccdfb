package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// FuzzyMatchName is MatchName with a small edit-distance tolerance, for
// labels that site admins type by hand ("Lesson s", "Lessions").
func FuzzyMatchName(name string, matchers []string, maxDistance int) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
		if matchr.DamerauLevenshtein(name, m) <= maxDistance {
			return true
		}
	}
	return false
}
