// Package targeting resolves deployment records and test-contract declarations into the universe of contracts,
// selectors and senders a fuzzing campaign may exercise.
package targeting

import (
	"fmt"
	"sort"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrNoContractsToFuzz indicates target resolution produced an empty universe: no contract retained at least one
// fuzzable selector. This is a setup error, not a test failure.
var ErrNoContractsToFuzz = errors.New("no contracts to fuzz: target resolution produced an empty universe")

// ErrNoSenders indicates sender resolution produced an empty pool after applying excludes and the infrastructure
// deny-list.
var ErrNoSenders = errors.New("no sender addresses available after applying excludes")

// Target describes a single contract in the resolved universe along with the methods which may be called on it.
type Target struct {
	// Address describes the deployed address of the target contract.
	Address common.Address

	// Contract describes the contract definition deployed at the address.
	Contract *contracts.Contract

	// Methods describes the fuzzable state-mutating methods retained after selector filtering.
	Methods []abi.Method
}

// TargetMethod describes a single (contract, method) pair in the flattened universe, the unit of uniform selector
// sampling.
type TargetMethod struct {
	// Target describes the contract the method belongs to.
	Target *Target

	// Method describes the ABI method.
	Method abi.Method
}

// CanonicalName returns the canonical "Contract.sig" name for the target method, used as the metrics table key.
func (t TargetMethod) CanonicalName() string {
	return fmt.Sprintf("%s.%s", t.Target.Contract.Name(), t.Method.Sig)
}

// Universe describes the resolved fuzzing universe: the contracts and methods which may be called and the sender
// pool calls may originate from.
type Universe struct {
	// Targets describes the contracts retained by resolution, ordered by deployment.
	Targets []*Target

	// Senders describes the resolved sender pool.
	Senders []common.Address

	// methods caches the flattened (contract, method) pair list.
	methods []TargetMethod
}

// Methods returns the flattened (contract, method) pair list of the universe. Sampling uniformly over this list
// weights contracts by their method counts.
func (u *Universe) Methods() []TargetMethod {
	return u.methods
}

// TargetByAddress returns the target deployed at the provided address, or nil if the address is not targeted.
func (u *Universe) TargetByAddress(addr common.Address) *Target {
	for _, target := range u.Targets {
		if target.Address == addr {
			return target
		}
	}
	return nil
}

// MethodFor returns the flattened universe entry matching the provided address and selector, or nil if the pair
// is not fuzzable.
func (u *Universe) MethodFor(addr common.Address, selector [4]byte) *TargetMethod {
	for i := range u.methods {
		if u.methods[i].Target.Address == addr && [4]byte(u.methods[i].Method.ID[:4]) == selector {
			return &u.methods[i]
		}
	}
	return nil
}

// Resolve computes the fuzzing universe from the backend's deployment records, the scanned declarations and the
// configured sender addresses.
//
// Resolution follows a replace-then-subtract model: any target declaration replaces the default
// all-deployed-contracts set, excludes subtract from whichever set is active, selector filters restrict a target's
// methods, and reserved selectors are always removed. The declaring test contract enters the universe only when
// explicitly targeted. An empty universe yields ErrNoContractsToFuzz.
func Resolve(deployments []*backend.DeploymentRecord, declarations *backend.Declarations, configSenders []common.Address) (*Universe, error) {
	deploymentsByAddress := make(map[common.Address]*backend.DeploymentRecord, len(deployments))
	for _, deployment := range deployments {
		deploymentsByAddress[deployment.Address] = deployment
	}

	// Index the declaration filters for lookup during per-contract resolution. Presence of a declaration is
	// tracked separately from its contents: a contract declared with an empty selector list contributes no
	// selectors, which is different from a contract with no declaration at all.
	targetSelectorsByAddress := make(map[common.Address][][4]byte)
	declaredSelectorAddresses := make(map[common.Address]struct{})
	for _, filter := range declarations.TargetSelectors {
		declaredSelectorAddresses[filter.Address] = struct{}{}
		targetSelectorsByAddress[filter.Address] = append(targetSelectorsByAddress[filter.Address], filter.Selectors...)
	}
	targetSelectorsByArtifact := make(map[string][][4]byte)
	declaredSelectorArtifacts := make(map[string]struct{})
	for _, filter := range declarations.TargetArtifactSelectors {
		declaredSelectorArtifacts[filter.Artifact] = struct{}{}
		targetSelectorsByArtifact[filter.Artifact] = append(targetSelectorsByArtifact[filter.Artifact], filter.Selectors...)
	}
	excludeSelectorsByAddress := make(map[common.Address]map[[4]byte]struct{})
	for _, filter := range declarations.ExcludeSelectors {
		if excludeSelectorsByAddress[filter.Address] == nil {
			excludeSelectorsByAddress[filter.Address] = make(map[[4]byte]struct{})
		}
		for _, selector := range filter.Selectors {
			excludeSelectorsByAddress[filter.Address][selector] = struct{}{}
		}
	}
	targetArtifacts := make(map[string]struct{}, len(declarations.TargetArtifacts))
	for _, artifact := range declarations.TargetArtifacts {
		targetArtifacts[artifact] = struct{}{}
	}
	excludeArtifacts := make(map[string]struct{}, len(declarations.ExcludeArtifacts))
	for _, artifact := range declarations.ExcludeArtifacts {
		excludeArtifacts[artifact] = struct{}{}
	}
	excludeContracts := make(map[common.Address]struct{}, len(declarations.ExcludeContracts))
	for _, addr := range declarations.ExcludeContracts {
		excludeContracts[addr] = struct{}{}
	}

	// An explicitly targeted address set replaces the default all-deployed set.
	explicitTargeting := len(declarations.TargetContracts) > 0 || len(declarations.TargetArtifacts) > 0 ||
		len(declarations.TargetSelectors) > 0 || len(declarations.TargetArtifactSelectors) > 0

	// explicitAddresses tracks addresses the test contract named directly; only these may pull the test contract
	// itself into the universe.
	explicitAddresses := make(map[common.Address]struct{})
	for _, addr := range declarations.TargetContracts {
		explicitAddresses[addr] = struct{}{}
	}
	for addr := range declaredSelectorAddresses {
		explicitAddresses[addr] = struct{}{}
	}

	var candidates []*backend.DeploymentRecord
	if explicitTargeting {
		seen := make(map[common.Address]struct{})
		appendCandidate := func(deployment *backend.DeploymentRecord) {
			if _, dup := seen[deployment.Address]; dup {
				return
			}
			seen[deployment.Address] = struct{}{}
			candidates = append(candidates, deployment)
		}
		// Preserve deployment order regardless of which declaration targeted the contract.
		for _, deployment := range deployments {
			_, byAddress := explicitAddresses[deployment.Address]
			_, byArtifact := targetArtifacts[deployment.Contract.ArtifactName()]
			_, byArtifactSelectors := declaredSelectorArtifacts[deployment.Contract.ArtifactName()]
			if byAddress || byArtifact || byArtifactSelectors {
				appendCandidate(deployment)
			}
		}
	} else {
		for _, deployment := range deployments {
			if deployment.Address == declarations.TestContractAddress {
				continue
			}
			candidates = append(candidates, deployment)
		}
	}

	// Apply the subtractive declarations and build per-target method sets.
	targets := make([]*Target, 0, len(candidates))
	for _, candidate := range candidates {
		if _, excluded := excludeContracts[candidate.Address]; excluded {
			continue
		}
		if _, excluded := excludeArtifacts[candidate.Contract.ArtifactName()]; excluded {
			continue
		}
		// The test contract is fuzzable only when named by address; artifact targeting is not explicit enough.
		if candidate.Address == declarations.TestContractAddress {
			if _, explicit := explicitAddresses[candidate.Address]; !explicit {
				continue
			}
		}

		_, addressDeclared := declaredSelectorAddresses[candidate.Address]
		_, artifactDeclared := declaredSelectorArtifacts[candidate.Contract.ArtifactName()]
		methods := resolveMethods(candidate,
			targetSelectorsByAddress[candidate.Address], addressDeclared,
			targetSelectorsByArtifact[candidate.Contract.ArtifactName()], artifactDeclared,
			excludeSelectorsByAddress[candidate.Address])
		if len(methods) == 0 {
			continue
		}
		targets = append(targets, &Target{
			Address:  candidate.Address,
			Contract: candidate.Contract,
			Methods:  methods,
		})
	}

	if len(targets) == 0 {
		return nil, ErrNoContractsToFuzz
	}

	senders, err := resolveSenders(declarations, configSenders)
	if err != nil {
		return nil, err
	}

	universe := &Universe{
		Targets: targets,
		Senders: senders,
	}
	for _, target := range universe.Targets {
		for _, method := range target.Methods {
			universe.methods = append(universe.methods, TargetMethod{Target: target, Method: method})
		}
	}
	return universe, nil
}

// resolveMethods computes the fuzzable method set for a single candidate deployment, applying targeted selector
// restriction, selector exclusion and unconditional reserved-selector removal. A selector restriction declared
// with an empty selector list means the contract contributes no selectors at all.
func resolveMethods(deployment *backend.DeploymentRecord, addressSelectors [][4]byte, addressDeclared bool, artifactSelectors [][4]byte, artifactDeclared bool, excludedSelectors map[[4]byte]struct{}) []abi.Method {
	// Address-scoped selector filters take precedence over artifact-scoped ones.
	restriction, restricted := addressSelectors, addressDeclared
	if !restricted {
		restriction, restricted = artifactSelectors, artifactDeclared
	}
	if restricted && len(restriction) == 0 {
		return nil
	}
	restrictionSet := make(map[[4]byte]struct{}, len(restriction))
	for _, selector := range restriction {
		restrictionSet[selector] = struct{}{}
	}

	methods := deployment.Contract.StateMutatingMethods()

	// Sort by name for a deterministic universe regardless of ABI map iteration order.
	sort.Slice(methods, func(i, j int) bool { return methods[i].Sig < methods[j].Sig })

	resolved := make([]abi.Method, 0, len(methods))
	for _, method := range methods {
		if IsReservedMethodName(method.Name) {
			continue
		}
		selector := [4]byte(method.ID[:4])
		if restricted {
			if _, targeted := restrictionSet[selector]; !targeted {
				continue
			}
		}
		if _, excluded := excludedSelectors[selector]; excluded {
			continue
		}
		resolved = append(resolved, method)
	}
	return resolved
}

// resolveSenders computes the sender pool. Declared target senders replace the configured pool, which replaces
// the built-in defaults; excludes and the infrastructure deny-list always subtract.
func resolveSenders(declarations *backend.Declarations, configSenders []common.Address) ([]common.Address, error) {
	var pool []common.Address
	switch {
	case len(declarations.TargetSenders) > 0:
		pool = declarations.TargetSenders
	case len(configSenders) > 0:
		pool = configSenders
	default:
		pool = DefaultSenderPool()
	}

	senders := filterSenders(pool, declarations.ExcludeSenders, declarations.TestContractAddress)
	if len(senders) == 0 {
		return nil, ErrNoSenders
	}
	return senders, nil
}
