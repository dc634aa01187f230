package valuegeneration

import "strings"

// FixtureMap maps a handler parameter name to the ordered literal candidates its fixture function declared.
// Fixture candidates are consulted before any random or dictionary-based generation for a matching parameter.
type FixtureMap map[string][]any

// NewFixtureMap creates a FixtureMap from the raw fixture declarations scanned from the test contract. Declaration
// keys carry the "fixture" prefix (e.g. "fixtureOwner"), which is stripped so candidates can be looked up by the
// bare parameter name.
func NewFixtureMap(declared map[string][]any) FixtureMap {
	fixtures := make(FixtureMap, len(declared))
	for name, candidates := range declared {
		paramName := strings.TrimPrefix(name, "fixture")
		if paramName == "" || len(candidates) == 0 {
			continue
		}
		// Parameter names start lowercase while the fixture suffix is capitalized.
		paramName = strings.ToLower(paramName[:1]) + paramName[1:]
		fixtures[paramName] = candidates
	}
	return fixtures
}

// CandidatesFor returns the ordered fixture candidates declared for the provided parameter name, or nil when no
// fixture covers it.
func (f FixtureMap) CandidatesFor(paramName string) []any {
	return f[paramName]
}
