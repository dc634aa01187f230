package fuzzing

import "sync"

var (
	registeredTestsLock sync.Mutex
	registeredTests     []TestDefinition
)

// RegisterTest registers a test definition globally, in the manner of database/sql driver registration. Backend
// integrations register their test contracts at init time so the CLI can fuzz them without knowing how their
// execution environments are constructed.
func RegisterTest(definition TestDefinition) {
	registeredTestsLock.Lock()
	defer registeredTestsLock.Unlock()
	registeredTests = append(registeredTests, definition)
}

// RegisteredTests returns a copy of the globally registered test definitions.
func RegisteredTests() []TestDefinition {
	registeredTestsLock.Lock()
	defer registeredTestsLock.Unlock()
	definitions := make([]TestDefinition, len(registeredTests))
	copy(definitions, registeredTests)
	return definitions
}
