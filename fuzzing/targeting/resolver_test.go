package targeting

import (
	"strings"
	"testing"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaultABIJSON = `[
	{"type":"function","name":"deposit","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"totalAssets","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"setUp","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"invariant_solvent","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"fixture_amount","inputs":[],"outputs":[{"name":"","type":"uint256[]"}],"stateMutability":"nonpayable"}
]`

var (
	vaultAddress  = common.HexToAddress("0x0000000000000000000000000000000000001000")
	tokenAddress  = common.HexToAddress("0x0000000000000000000000000000000000002000")
	testAddress   = common.HexToAddress("0x0000000000000000000000000000000000003000")
	aliceSender   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bobSender     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	vaultContract = contracts.NewContract("Vault", "Vault.sol:Vault", mustParseABI(vaultABIJSON))
	tokenContract = contracts.NewContract("Token", "Token.sol:Token", mustParseABI(vaultABIJSON))
	testContract  = contracts.NewContract("VaultTest", "VaultTest.t.sol:VaultTest", mustParseABI(vaultABIJSON))
)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}

// testDeployments returns a vault, a token and the deployed test contract.
func testDeployments() []*backend.DeploymentRecord {
	return []*backend.DeploymentRecord{
		{Address: vaultAddress, Contract: vaultContract},
		{Address: tokenAddress, Contract: tokenContract},
		{Address: testAddress, Contract: testContract},
	}
}

func baseDeclarations() *backend.Declarations {
	return &backend.Declarations{
		TestContractAddress: testAddress,
		TestContractName:    "VaultTest",
		Invariants:          []string{"invariant_solvent"},
	}
}

func methodSelector(contract *contracts.Contract, name string) [4]byte {
	return [4]byte(contract.Abi().Methods[name].ID[:4])
}

func methodNames(target *Target) []string {
	names := make([]string, 0, len(target.Methods))
	for _, method := range target.Methods {
		names = append(names, method.Name)
	}
	return names
}

// TestResolveDefaultsToAllDeployed checks the default universe is every deployed contract except the test
// contract itself, with view methods and reserved names removed.
func TestResolveDefaultsToAllDeployed(t *testing.T) {
	universe, err := Resolve(testDeployments(), baseDeclarations(), nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 2)
	assert.Equal(t, vaultAddress, universe.Targets[0].Address)
	assert.Equal(t, tokenAddress, universe.Targets[1].Address)

	// Only the two state-mutating handlers survive: views, setUp, invariants and fixtures are never fuzzable.
	assert.ElementsMatch(t, []string{"deposit", "withdraw"}, methodNames(universe.Targets[0]))
	assert.Len(t, universe.Methods(), 4)
}

// TestResolveTargetContractsReplacesDefault checks targetContracts replaces the all-deployed default set.
func TestResolveTargetContractsReplacesDefault(t *testing.T) {
	declarations := baseDeclarations()
	declarations.TargetContracts = []common.Address{tokenAddress}

	universe, err := Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 1)
	assert.Equal(t, tokenAddress, universe.Targets[0].Address)
}

// TestResolveExcludeSubtracts checks excludeContracts subtracts from whichever set is active.
func TestResolveExcludeSubtracts(t *testing.T) {
	declarations := baseDeclarations()
	declarations.ExcludeContracts = []common.Address{vaultAddress}

	universe, err := Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 1)
	assert.Equal(t, tokenAddress, universe.Targets[0].Address)

	// Excluding an explicitly targeted contract still subtracts it.
	declarations = baseDeclarations()
	declarations.TargetContracts = []common.Address{vaultAddress, tokenAddress}
	declarations.ExcludeContracts = []common.Address{vaultAddress}
	universe, err = Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 1)
	assert.Equal(t, tokenAddress, universe.Targets[0].Address)
}

// TestResolveArtifactTargeting checks targetArtifacts selects every deployment of the named artifact.
func TestResolveArtifactTargeting(t *testing.T) {
	secondVault := common.HexToAddress("0x0000000000000000000000000000000000001001")
	deployments := append(testDeployments(), &backend.DeploymentRecord{Address: secondVault, Contract: vaultContract})
	declarations := baseDeclarations()
	declarations.TargetArtifacts = []string{"Vault.sol:Vault"}

	universe, err := Resolve(deployments, declarations, nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 2)
	assert.Equal(t, vaultAddress, universe.Targets[0].Address)
	assert.Equal(t, secondVault, universe.Targets[1].Address)
}

// TestResolveSelectorFilters checks address-scoped selector filters restrict a target's method set and exclusion
// filters subtract from it.
func TestResolveSelectorFilters(t *testing.T) {
	declarations := baseDeclarations()
	declarations.TargetSelectors = []backend.SelectorFilter{{
		Address:   vaultAddress,
		Selectors: [][4]byte{methodSelector(vaultContract, "deposit")},
	}}

	universe, err := Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	vault := universe.TargetByAddress(vaultAddress)
	require.NotNil(t, vault)
	assert.Equal(t, []string{"deposit"}, methodNames(vault))

	declarations = baseDeclarations()
	declarations.ExcludeSelectors = []backend.SelectorFilter{{
		Address:   vaultAddress,
		Selectors: [][4]byte{methodSelector(vaultContract, "deposit")},
	}}
	universe, err = Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	vault = universe.TargetByAddress(vaultAddress)
	require.NotNil(t, vault)
	assert.Equal(t, []string{"withdraw"}, methodNames(vault))
}

// TestResolveEmptyDeclaredSelectorList checks a contract declared with an empty selector list contributes no
// selectors at all, rather than falling back onto its full method set.
func TestResolveEmptyDeclaredSelectorList(t *testing.T) {
	declarations := baseDeclarations()
	declarations.TargetContracts = []common.Address{tokenAddress}
	declarations.TargetSelectors = []backend.SelectorFilter{{
		Address:   vaultAddress,
		Selectors: [][4]byte{},
	}}

	universe, err := Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	assert.Nil(t, universe.TargetByAddress(vaultAddress))
	require.NotNil(t, universe.TargetByAddress(tokenAddress))

	// The same holds for an artifact-scoped declaration with an empty list.
	declarations = baseDeclarations()
	declarations.TargetContracts = []common.Address{tokenAddress}
	declarations.TargetArtifactSelectors = []backend.ArtifactSelectorFilter{{
		Artifact:  "Vault.sol:Vault",
		Selectors: [][4]byte{},
	}}
	universe, err = Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	assert.Nil(t, universe.TargetByAddress(vaultAddress))

	// With no other target remaining, the empty declaration alone yields an empty universe.
	declarations = baseDeclarations()
	declarations.TargetSelectors = []backend.SelectorFilter{{
		Address:   vaultAddress,
		Selectors: [][4]byte{},
	}}
	_, err = Resolve(testDeployments(), declarations, nil)
	assert.ErrorIs(t, err, ErrNoContractsToFuzz)
}

// TestResolveTestContractRequiresExplicitAddress checks the declaring test contract is fuzzable only when it is
// named by address, never via artifact targeting.
func TestResolveTestContractRequiresExplicitAddress(t *testing.T) {
	declarations := baseDeclarations()
	declarations.TargetArtifacts = []string{"VaultTest.t.sol:VaultTest"}
	_, err := Resolve(testDeployments(), declarations, nil)
	assert.ErrorIs(t, err, ErrNoContractsToFuzz)

	declarations = baseDeclarations()
	declarations.TargetContracts = []common.Address{testAddress}
	universe, err := Resolve(testDeployments(), declarations, nil)
	require.NoError(t, err)
	require.Len(t, universe.Targets, 1)
	assert.Equal(t, testAddress, universe.Targets[0].Address)
}

// TestResolveEmptyUniverse checks resolution reports a setup error when nothing is fuzzable.
func TestResolveEmptyUniverse(t *testing.T) {
	declarations := baseDeclarations()
	_, err := Resolve(nil, declarations, nil)
	assert.ErrorIs(t, err, ErrNoContractsToFuzz)

	// A target whose selector restriction matches nothing drops out entirely.
	declarations = baseDeclarations()
	declarations.TargetContracts = []common.Address{vaultAddress}
	declarations.TargetSelectors = []backend.SelectorFilter{{
		Address:   vaultAddress,
		Selectors: [][4]byte{{0xde, 0xad, 0xbe, 0xef}},
	}}
	_, err = Resolve(testDeployments(), declarations, nil)
	assert.ErrorIs(t, err, ErrNoContractsToFuzz)
}

// TestResolveSenderPrecedence checks declared senders replace configured senders which replace the defaults.
func TestResolveSenderPrecedence(t *testing.T) {
	universe, err := Resolve(testDeployments(), baseDeclarations(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSenderPool(), universe.Senders)

	universe, err = Resolve(testDeployments(), baseDeclarations(), []common.Address{aliceSender})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{aliceSender}, universe.Senders)

	declarations := baseDeclarations()
	declarations.TargetSenders = []common.Address{bobSender}
	universe, err = Resolve(testDeployments(), declarations, []common.Address{aliceSender})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{bobSender}, universe.Senders)
}

// TestResolveSenderFiltering checks excluded senders, denied infrastructure addresses and the test contract are
// always removed from the pool.
func TestResolveSenderFiltering(t *testing.T) {
	cheatAddress := common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")
	configSenders := []common.Address{aliceSender, bobSender, cheatAddress, testAddress, aliceSender}
	declarations := baseDeclarations()
	declarations.ExcludeSenders = []common.Address{bobSender}

	universe, err := Resolve(testDeployments(), declarations, configSenders)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{aliceSender}, universe.Senders)

	// Excluding the entire pool is a setup error.
	declarations.ExcludeSenders = []common.Address{aliceSender, bobSender}
	_, err = Resolve(testDeployments(), declarations, configSenders)
	assert.ErrorIs(t, err, ErrNoSenders)
}

// TestDefaultSenderPoolIsStable checks the built-in sender pool is deterministic and avoids denied addresses.
func TestDefaultSenderPoolIsStable(t *testing.T) {
	pool := DefaultSenderPool()
	assert.Len(t, pool, 5)
	assert.Equal(t, pool, DefaultSenderPool())
	for _, sender := range pool {
		assert.False(t, IsDeniedSender(sender))
	}
}

// TestIsDeniedSender checks the deny-list covers the precompile range and the zero address.
func TestIsDeniedSender(t *testing.T) {
	assert.True(t, IsDeniedSender(common.Address{}))
	assert.True(t, IsDeniedSender(common.BytesToAddress([]byte{0x01})))
	assert.True(t, IsDeniedSender(common.BytesToAddress([]byte{0x09})))
	assert.False(t, IsDeniedSender(common.BytesToAddress([]byte{0x0a})))
	assert.False(t, IsDeniedSender(aliceSender))
}

// TestUniverseLookups checks the address and selector lookup helpers.
func TestUniverseLookups(t *testing.T) {
	universe, err := Resolve(testDeployments(), baseDeclarations(), nil)
	require.NoError(t, err)

	assert.Nil(t, universe.TargetByAddress(testAddress))
	require.NotNil(t, universe.TargetByAddress(vaultAddress))

	depositSelector := methodSelector(vaultContract, "deposit")
	targetMethod := universe.MethodFor(vaultAddress, depositSelector)
	require.NotNil(t, targetMethod)
	assert.Equal(t, "Vault.deposit(uint256)", targetMethod.CanonicalName())
	assert.Nil(t, universe.MethodFor(testAddress, depositSelector))
}
