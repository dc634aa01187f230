package fuzzing

import (
	"context"

	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/corpus"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/utils"
)

// argumentShrinkStaleLimit is the number of consecutive unsuccessful argument simplification attempts after
// which argument shrinking is considered to have reached a fixed point.
const argumentShrinkStaleLimit = 25

// removeSequenceElement returns a copy of the sequence without the element at the provided index.
func removeSequenceElement(sequence calls.CallSequence, index int) calls.CallSequence {
	candidate := make(calls.CallSequence, 0, len(sequence)-1)
	candidate = append(candidate, sequence[:index]...)
	candidate = append(candidate, sequence[index+1:]...)
	return candidate
}

// shrinkCallSequence minimizes a failing call sequence while preserving its failure reason. Candidates are
// replayed from the setup snapshot and kept only when they reproduce the identical failure, so the returned
// sequence always fails the same way as the original. The search is bounded by the configured shrink run limit;
// the second return value indicates the budget (or the campaign timeout) cut minimization short.
func (fw *FuzzerWorker) shrinkCallSequence(ctx context.Context, original calls.CallSequence, reason corpus.FailureReason) (calls.CallSequence, bool) {
	budget := fw.fuzzer.config.Fuzzing.ShrinkRunLimit

	// Assume rejection failures depend on the whole retry history rather than the retained calls, so removing
	// calls cannot preserve them meaningfully.
	if budget == 0 || len(original) == 0 || reason.Kind == corpus.FailureKindAssumeRejectionsExceeded {
		return original, false
	}

	// replay executes a candidate from a restored setup snapshot, consuming one unit of budget. On reproduction
	// it returns the observed sequence, which may be a shorter prefix of the candidate.
	replay := func(candidate calls.CallSequence) (calls.CallSequence, bool) {
		budget--
		if err := fw.executor.Restore(fw.setupSnapshot); err != nil {
			return nil, false
		}
		observed, observedReason, err := fw.executeSequence(ctx, fetchFromSequence(candidate), len(candidate), false)
		if err != nil || observedReason == nil || !observedReason.Equal(reason) {
			return nil, false
		}
		return observed, true
	}

	best := original

	// Reverted calls left no state behind, so they can all be dropped in a single candidate. The final call is
	// always retained as it is the one the failure surfaced on.
	pruned := make(calls.CallSequence, 0, len(best))
	for i, element := range best {
		reverted := element.Result != nil && element.Result.Reverted
		if !reverted || i == len(best)-1 {
			pruned = append(pruned, element)
		}
	}
	if len(pruned) < len(best) && budget > 0 {
		if observed, reproduced := replay(pruned); reproduced {
			best = observed
		}
	}

	// Call removal: a deterministic earliest-first scan interleaved with random removals, repeated until neither
	// finds a removable call.
	for budget > 0 && !utils.CheckContextDone(ctx) {
		improved := false
		for i := 0; i < len(best) && budget > 0 && len(best) > 1; i++ {
			if observed, reproduced := replay(removeSequenceElement(best, i)); reproduced {
				best = observed
				improved = true
				i--
			}
		}
		for attempt := 0; attempt < len(best) && budget > 0 && len(best) > 1; attempt++ {
			index := fw.randomProvider.Intn(len(best))
			if observed, reproduced := replay(removeSequenceElement(best, index)); reproduced {
				best = observed
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	// Argument simplification: mutate one call's arguments toward canonical minima and keep the candidate when
	// the failure persists.
	staleAttempts := 0
	for budget > 0 && staleAttempts < argumentShrinkStaleLimit && !utils.CheckContextDone(ctx) {
		index := fw.randomProvider.Intn(len(best))
		candidate := best.Clone()
		call := candidate[index].Call
		simplifiedValues := make([]any, len(call.InputValues))
		for j, value := range call.InputValues {
			simplified, err := valuegeneration.MutateAbiValue(fw.valueGenerator, fw.shrinkingMutator, &call.Method.Inputs[j].Type, value)
			if err != nil {
				simplified = value
			}
			simplifiedValues[j] = simplified
		}
		candidate[index].Call = call.WithInputValues(simplifiedValues)

		if observed, reproduced := replay(candidate); reproduced {
			best = observed
			staleAttempts = 0
		} else {
			staleAttempts++
		}
	}

	exhausted := budget <= 0 || utils.CheckContextDone(ctx)
	return best, exhausted
}
