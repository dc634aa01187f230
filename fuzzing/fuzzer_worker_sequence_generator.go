package fuzzing

import (
	"math/big"
	"math/rand"
	"sync"

	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/targeting"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/utils/randomutils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// CallSequenceGenerator generates the calls a worker executes during one run: a (contract, method) pair sampled
// over the flattened universe, a sender sampled from the sender pool, and argument values drawn from fixtures,
// the campaign dictionary or fresh random generation.
type CallSequenceGenerator struct {
	// universe describes the resolved fuzzing universe calls are sampled from.
	universe *targeting.Universe

	// fixtures maps parameter names to their author-declared literal candidates.
	fixtures valuegeneration.FixtureMap

	// valueGenerator generates argument values when no fixture candidate is used.
	valueGenerator valuegeneration.ValueGenerator

	// fixtureBias describes the probability a fixture candidate is used for a parameter which declares fixtures.
	fixtureBias float32

	// randomProvider offers a source of random data for sampling decisions.
	randomProvider *rand.Rand

	// methodChooser samples the flattened (contract, method) pair calls target. Equal weights make sampling
	// uniform over the pair list, so a contract contributes proportionally to its method count.
	methodChooser *randomutils.WeightedRandomChooser[targeting.TargetMethod]

	// senderChooser samples the sender a call originates from.
	senderChooser *randomutils.WeightedRandomChooser[common.Address]
}

// NewCallSequenceGenerator creates a CallSequenceGenerator sampling over the provided universe.
func NewCallSequenceGenerator(universe *targeting.Universe, fixtures valuegeneration.FixtureMap, valueGenerator valuegeneration.ValueGenerator, fixtureBias float32, randomProvider *rand.Rand) *CallSequenceGenerator {
	generator := &CallSequenceGenerator{
		universe:       universe,
		fixtures:       fixtures,
		valueGenerator: valueGenerator,
		fixtureBias:    fixtureBias,
		randomProvider: randomProvider,
		methodChooser:  randomutils.NewWeightedRandomChooserWithRand[targeting.TargetMethod](randomProvider, &sync.Mutex{}),
		senderChooser:  randomutils.NewWeightedRandomChooserWithRand[common.Address](randomProvider, &sync.Mutex{}),
	}
	for _, targetMethod := range universe.Methods() {
		generator.methodChooser.AddChoices(randomutils.NewWeightedRandomChoice(targetMethod, big.NewInt(1)))
	}
	for _, sender := range universe.Senders {
		generator.senderChooser.AddChoices(randomutils.NewWeightedRandomChoice(sender, big.NewInt(1)))
	}
	return generator
}

// GenerateCall produces one new fuzzed call targeting a sampled method of the universe.
func (g *CallSequenceGenerator) GenerateCall() (*calls.Call, error) {
	targetMethod, err := g.methodChooser.Choose()
	if err != nil {
		return nil, errors.Wrap(err, "cannot generate a call over an empty universe")
	}
	sender, err := g.senderChooser.Choose()
	if err != nil {
		return nil, errors.Wrap(err, "cannot generate a call without senders")
	}

	// Generate each argument, preferring fixture candidates for parameters which declare them.
	provenance := calls.ProvenanceFreshRandom
	if _, dictionaryBacked := g.valueGenerator.(*valuegeneration.MutatingValueGenerator); dictionaryBacked {
		provenance = calls.ProvenanceFromDictionary
	}
	inputValues := make([]any, len(targetMethod.Method.Inputs))
	for i, input := range targetMethod.Method.Inputs {
		if candidates := g.fixtures.CandidatesFor(input.Name); len(candidates) > 0 && g.randomProvider.Float32() < g.fixtureBias {
			inputValues[i] = candidates[g.randomProvider.Intn(len(candidates))]
			provenance = calls.ProvenanceFromFixture
			continue
		}
		inputValues[i] = valuegeneration.GenerateAbiValue(g.valueGenerator, &targetMethod.Method.Inputs[i].Type)
	}

	method := targetMethod.Method
	return calls.NewCall(*sender, targetMethod.Target.Address, targetMethod.Target.Contract, &method, inputValues, provenance), nil
}
