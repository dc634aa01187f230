package randomutils

import (
	"math/big"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

// WeightedRandomChoice describes a value with an associated weight, for use with a WeightedRandomChooser.
type WeightedRandomChoice[T any] struct {
	// Data describes the value to be returned when this choice is selected.
	Data T

	// weight describes how likely this choice is to be selected, relative to other choices in the chooser.
	weight *big.Int
}

// NewWeightedRandomChoice creates a WeightedRandomChoice with the provided underlying data and weight.
func NewWeightedRandomChoice[T any](data T, weight *big.Int) *WeightedRandomChoice[T] {
	return &WeightedRandomChoice[T]{
		Data:   data,
		weight: new(big.Int).Set(weight),
	}
}

// WeightedRandomChooser takes a set of weighted choices and returns them at random, where choices with larger
// weights are proportionally more likely to be selected.
type WeightedRandomChooser[T any] struct {
	// Choices describes the weighted choices to select from.
	Choices []*WeightedRandomChoice[T]

	// totalWeights describes the sum of all weights of all Choices.
	totalWeights *big.Int

	// randomProvider is used to select choices at random.
	randomProvider *rand.Rand

	// randomProviderLock is a lock to offer thread safety to the random number generator.
	randomProviderLock *sync.Mutex
}

// NewWeightedRandomChooser creates a WeightedRandomChooser with a new random provider and lock.
func NewWeightedRandomChooser[T any]() *WeightedRandomChooser[T] {
	return NewWeightedRandomChooserWithRand[T](rand.New(rand.NewSource(rand.Int63())), &sync.Mutex{})
}

// NewWeightedRandomChooserWithRand creates a WeightedRandomChooser with the provided random provider and lock.
func NewWeightedRandomChooserWithRand[T any](randomProvider *rand.Rand, randomProviderLock *sync.Mutex) *WeightedRandomChooser[T] {
	return &WeightedRandomChooser[T]{
		Choices:            make([]*WeightedRandomChoice[T], 0),
		totalWeights:       big.NewInt(0),
		randomProvider:     randomProvider,
		randomProviderLock: randomProviderLock,
	}
}

// ChoiceCount returns the count of choices added to this chooser.
func (c *WeightedRandomChooser[T]) ChoiceCount() int {
	return len(c.Choices)
}

// AddChoices adds weighted choices to the chooser, allowing them to be returned by Choose.
func (c *WeightedRandomChooser[T]) AddChoices(choices ...*WeightedRandomChoice[T]) {
	c.randomProviderLock.Lock()
	defer c.randomProviderLock.Unlock()

	for _, choice := range choices {
		c.totalWeights = new(big.Int).Add(c.totalWeights, choice.weight)
	}
	c.Choices = append(c.Choices, choices...)
}

// Choose selects a random weighted choice from this chooser and returns its underlying data. Choices with larger
// weights are proportionally more likely to be returned. Returns an error if no choices exist or all weights are
// zero.
func (c *WeightedRandomChooser[T]) Choose() (*T, error) {
	c.randomProviderLock.Lock()
	defer c.randomProviderLock.Unlock()

	if len(c.Choices) == 0 || c.totalWeights.Cmp(big.NewInt(0)) == 0 {
		return nil, errors.New("weighted random chooser has no choices to choose from")
	}

	// Select a position in the total weight space, then find the choice which that position falls within.
	selectedWeightPosition := new(big.Int).Rand(c.randomProvider, c.totalWeights)
	for _, choice := range c.Choices {
		if selectedWeightPosition.Cmp(choice.weight) < 0 {
			return &choice.Data, nil
		}
		selectedWeightPosition = new(big.Int).Sub(selectedWeightPosition, choice.weight)
	}
	return nil, errors.New("weighted random chooser failed to select a choice")
}
