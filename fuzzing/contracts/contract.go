package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contracts describes an array of contracts
type Contracts []*Contract

// ContractByName returns the contract definition with the provided name, or nil if no definition matches.
func (c Contracts) ContractByName(name string) *Contract {
	for i := 0; i < len(c); i++ {
		if c[i].Name() == name {
			return c[i]
		}
	}
	return nil
}

// Contract describes a contract definition known to the execution backend: its name, the artifact it was built
// from, and its ABI.
type Contract struct {
	// name represents the name of the contract.
	name string

	// artifactName represents the name of the build artifact this contract was derived from. Multiple deployments
	// may share a single artifact.
	artifactName string

	// contractAbi describes the ABI of the contract.
	contractAbi abi.ABI

	// candidateMethods are the methods that can be called on the contract after targeting/excluding is performed.
	candidateMethods []abi.Method
}

// NewContract returns a new Contract instance with the provided information. Candidate methods initially contain
// every method in the ABI.
func NewContract(name string, artifactName string, contractAbi abi.ABI) *Contract {
	var methods []abi.Method
	for _, method := range contractAbi.Methods {
		methods = append(methods, method)
	}
	return &Contract{
		name:             name,
		artifactName:     artifactName,
		contractAbi:      contractAbi,
		candidateMethods: methods,
	}
}

func containsMethod(methods []string, target string) bool {
	for _, method := range methods {
		if method == target {
			return true
		}
	}
	return false
}

// WithTargetMethods filters the candidate methods down to those whose canonical "Contract.sig" name appears in
// the provided list.
func (c *Contract) WithTargetMethods(target []string) *Contract {
	var candidateMethods []abi.Method
	for _, method := range c.candidateMethods {
		canonicalSig := strings.Join([]string{c.name, method.Sig}, ".")
		if containsMethod(target, canonicalSig) {
			candidateMethods = append(candidateMethods, method)
		}
	}
	c.candidateMethods = candidateMethods
	return c
}

// WithExcludedMethods filters out the candidate methods whose canonical "Contract.sig" name appears in the
// provided list.
func (c *Contract) WithExcludedMethods(excludedMethods []string) *Contract {
	var candidateMethods []abi.Method
	for _, method := range c.candidateMethods {
		canonicalSig := strings.Join([]string{c.name, method.Sig}, ".")
		if !containsMethod(excludedMethods, canonicalSig) {
			candidateMethods = append(candidateMethods, method)
		}
	}
	c.candidateMethods = candidateMethods
	return c
}

// Name returns the name of the contract.
func (c *Contract) Name() string {
	return c.name
}

// ArtifactName returns the name of the build artifact this contract was derived from.
func (c *Contract) ArtifactName() string {
	return c.artifactName
}

// Abi returns the ABI of the contract.
func (c *Contract) Abi() *abi.ABI {
	return &c.contractAbi
}

// CandidateMethods returns the methods that can be called on the contract after targeting/excluding is performed.
func (c *Contract) CandidateMethods() []abi.Method {
	return c.candidateMethods
}

// MethodBySelector returns the ABI method matching the provided 4-byte selector, or nil if the contract does not
// define one.
func (c *Contract) MethodBySelector(selector [4]byte) *abi.Method {
	for i := 0; i < len(c.candidateMethods); i++ {
		method := c.candidateMethods[i]
		if [4]byte(method.ID[:4]) == selector {
			return &method
		}
	}
	return nil
}

// StateMutatingMethods returns the candidate methods which can mutate contract state (non-view, non-pure).
func (c *Contract) StateMutatingMethods() []abi.Method {
	var methods []abi.Method
	for _, method := range c.candidateMethods {
		if !method.IsConstant() {
			methods = append(methods, method)
		}
	}
	return methods
}
