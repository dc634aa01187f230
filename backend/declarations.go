package backend

import (
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/common"
)

// DeploymentRecord describes a single contract deployed during test setup.
type DeploymentRecord struct {
	// Address describes the address the contract was deployed at.
	Address common.Address

	// Contract describes the contract definition deployed at the address.
	Contract *contracts.Contract
}

// SelectorFilter scopes a set of 4-byte selectors to a deployed contract address. It mirrors the shape of the
// targetSelectors/excludeSelectors capability function return values.
type SelectorFilter struct {
	// Address describes the deployed contract the selectors belong to.
	Address common.Address

	// Selectors describes the 4-byte method selectors being targeted or excluded.
	Selectors [][4]byte
}

// ArtifactSelectorFilter scopes a set of 4-byte selectors to a build artifact name rather than a deployed address,
// applying to every deployment of that artifact.
type ArtifactSelectorFilter struct {
	// Artifact describes the name of the build artifact the selectors belong to.
	Artifact string

	// Selectors describes the 4-byte method selectors being targeted.
	Selectors [][4]byte
}

// Declarations describes everything the one-time declaration scan discovered on the test contract: targeting
// capability declarations, fixtures, invariant methods and the afterInvariant hook.
type Declarations struct {
	// TargetContracts describes the deployed addresses returned by the targetContracts capability function.
	TargetContracts []common.Address

	// ExcludeContracts describes the deployed addresses returned by the excludeContracts capability function.
	ExcludeContracts []common.Address

	// TargetArtifacts describes the artifact names returned by the targetArtifacts capability function.
	TargetArtifacts []string

	// ExcludeArtifacts describes the artifact names returned by the excludeArtifacts capability function.
	ExcludeArtifacts []string

	// TargetSelectors describes the address-scoped selector filters returned by targetSelectors.
	TargetSelectors []SelectorFilter

	// TargetArtifactSelectors describes the artifact-scoped selector filters returned by targetArtifactSelectors.
	TargetArtifactSelectors []ArtifactSelectorFilter

	// ExcludeSelectors describes the address-scoped selector filters returned by excludeSelectors.
	ExcludeSelectors []SelectorFilter

	// TargetSenders describes the sender addresses returned by the targetSenders capability function. When
	// non-empty, they replace the default sender pool.
	TargetSenders []common.Address

	// ExcludeSenders describes the sender addresses returned by the excludeSenders capability function.
	ExcludeSenders []common.Address

	// Fixtures maps a parameter name to the ordered literal candidates declared by its fixture function.
	Fixtures map[string][]any

	// Invariants describes the names of the invariant methods declared on the test contract.
	Invariants []string

	// HasAfterInvariant indicates whether the test contract declares an afterInvariant hook.
	HasAfterInvariant bool

	// TestContractAddress describes the deployed address of the test contract itself.
	TestContractAddress common.Address

	// TestContractName describes the name of the test contract.
	TestContractName string
}
