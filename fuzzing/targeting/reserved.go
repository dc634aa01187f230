package targeting

import "strings"

// reservedMethodNames describes exact method names which are test-harness infrastructure and are never fuzzed,
// even on an explicitly targeted test contract.
var reservedMethodNames = map[string]struct{}{
	"setUp":          {},
	"afterInvariant": {},
	"failed":         {},
	"IS_TEST":        {},
}

// reservedMethodPrefixes describes method name prefixes which mark declarations rather than handlers: test
// methods, fixture functions and targeting capability functions. Invariant method prefixes are covered by
// IsInvariantMethodName.
var reservedMethodPrefixes = []string{
	"test",
	"fixture",
	"target",
	"exclude",
}

// IsReservedMethodName reports whether the provided method name is test-harness infrastructure which must never
// enter the fuzzed selector universe.
func IsReservedMethodName(name string) bool {
	if _, ok := reservedMethodNames[name]; ok {
		return true
	}
	if IsInvariantMethodName(name) {
		return true
	}
	for _, prefix := range reservedMethodPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IsInvariantMethodName reports whether the provided method name declares an invariant to be checked after every
// call.
func IsInvariantMethodName(name string) bool {
	return strings.HasPrefix(name, "invariant") || strings.HasPrefix(name, "statefulFuzz")
}
