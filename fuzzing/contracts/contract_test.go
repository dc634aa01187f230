package contracts

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenABIJSON = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"pure"}
]`

func newTokenContract(t *testing.T) *Contract {
	parsed, err := abi.JSON(strings.NewReader(tokenABIJSON))
	require.NoError(t, err)
	return NewContract("Token", "Token.sol:Token", parsed)
}

func methodNames(methods []abi.Method) []string {
	names := make([]string, 0, len(methods))
	for _, method := range methods {
		names = append(names, method.Name)
	}
	return names
}

// TestNewContractCandidates checks a fresh contract's candidate methods cover the whole ABI.
func TestNewContractCandidates(t *testing.T) {
	contract := newTokenContract(t)
	assert.Equal(t, "Token", contract.Name())
	assert.Equal(t, "Token.sol:Token", contract.ArtifactName())
	assert.ElementsMatch(t, []string{"transfer", "approve", "balanceOf", "totalSupply"}, methodNames(contract.CandidateMethods()))
}

// TestStateMutatingMethods checks view and pure methods are filtered out.
func TestStateMutatingMethods(t *testing.T) {
	contract := newTokenContract(t)
	assert.ElementsMatch(t, []string{"transfer", "approve"}, methodNames(contract.StateMutatingMethods()))
}

// TestWithTargetMethods checks targeting restricts candidates by canonical name.
func TestWithTargetMethods(t *testing.T) {
	contract := newTokenContract(t).WithTargetMethods([]string{"Token.transfer(address,uint256)"})
	assert.ElementsMatch(t, []string{"transfer"}, methodNames(contract.CandidateMethods()))

	// A name that does not match the contract leaves nothing.
	empty := newTokenContract(t).WithTargetMethods([]string{"Other.transfer(address,uint256)"})
	assert.Empty(t, empty.CandidateMethods())
}

// TestWithExcludedMethods checks exclusion removes candidates by canonical name.
func TestWithExcludedMethods(t *testing.T) {
	contract := newTokenContract(t).WithExcludedMethods([]string{"Token.approve(address,uint256)"})
	assert.ElementsMatch(t, []string{"transfer", "balanceOf", "totalSupply"}, methodNames(contract.CandidateMethods()))
}

// TestMethodBySelector checks selector lookup respects the candidate filter.
func TestMethodBySelector(t *testing.T) {
	contract := newTokenContract(t)
	transferSelector := [4]byte(contract.Abi().Methods["transfer"].ID[:4])

	method := contract.MethodBySelector(transferSelector)
	require.NotNil(t, method)
	assert.Equal(t, "transfer", method.Name)

	assert.Nil(t, contract.MethodBySelector([4]byte{0xde, 0xad, 0xbe, 0xef}))

	// A filtered-out method is no longer resolvable by selector.
	contract.WithExcludedMethods([]string{"Token.transfer(address,uint256)"})
	assert.Nil(t, contract.MethodBySelector(transferSelector))
}

// TestContractsByName checks named lookup over a contract list.
func TestContractsByName(t *testing.T) {
	token := newTokenContract(t)
	list := Contracts{token}
	assert.Equal(t, token, list.ContractByName("Token"))
	assert.Nil(t, list.ContractByName("Missing"))
}
