package trainer

import (
	"context"
	"log"
	"strings"

	"jitrlcse/internal/metrics"
	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
	"jitrlcse/internal/rlerrors"
)

// slotResult is one mini-batch slot's outcome: either a valid updated
// parameter vector, or a discard (missing context / diverging replay),
// tracked separately so the round summary can report "gacked: N" per §7.
type slotResult struct {
	updatedParams []float64
	ok            bool
}

// runSlot executes one rollout+update pair (§4.7 step 1): invoke the
// rollout call, compute the reward vector from current Q/V estimates,
// invoke the update call, verify replay determinism, and call qv_update on
// success. Any failure reduces to a discarded slot — the trainer never
// retries within a round (§7: "retry policy is statistical").
func runSlot(
	ctx context.Context,
	driver *replayhost.Driver,
	m qv.Method,
	store *qv.Store,
	theta []float64,
	alpha float64,
	iterSalt int64,
) slotResult {
	idx := m.Index

	rolloutOpts := replayhost.NewBuilder().
		Metrics().
		RL(theta).
		RLAlpha(alpha).
		RandomCSE(iterSalt).
		Build()

	rolloutStdout, err := driver.Run(ctx, &idx, rolloutOpts)
	if err != nil {
		log.Printf("trainer: rollout failed for %s: %v", m, err)
		return slotResult{}
	}

	rolloutLine, ok := lastBaseline(rolloutStdout)
	if !ok {
		return slotResult{}
	}
	perfScore := rolloutLine.PerfScoreOrMissing()
	if perfScore == metrics.MissingPerfScore {
		return slotResult{}
	}
	sequence := qv.ParseSequence(rolloutLine.SequenceOrMissing())

	baselineScore := baselinePerfScore(store, m)
	values := store.SequenceToValues(m, sequence)
	rewards := rewardVector(values, baselineScore)

	updateOpts := replayhost.NewBuilder().
		Metrics().
		RL(theta).
		RLAlpha(alpha).
		RandomCSE(iterSalt).
		ReplayCSE(sequence.String()).
		ReplayCSEReward(rewards).
		Build()

	updateStdout, err := driver.Run(ctx, &idx, updateOpts)
	if err != nil {
		log.Printf("trainer: update failed for %s: %v", m, err)
		return slotResult{}
	}

	updateLine, ok := lastBaseline(updateStdout)
	if !ok {
		return slotResult{}
	}
	updatedPerfScore := updateLine.PerfScoreOrMissing()
	if updatedPerfScore == metrics.MissingPerfScore {
		return slotResult{}
	}

	if updatedPerfScore != perfScore {
		diverr := &rlerrors.DivergingReplayFailure{
			RolloutPerfScore: perfScore,
			UpdatePerfScore:  updatedPerfScore,
			RolloutStdout:    rolloutStdout,
			UpdateStdout:     updateStdout,
		}
		log.Printf("trainer: %v", diverr)
		return slotResult{}
	}

	store.Update(m, sequence, perfScore, false)

	rep := metrics.ParseStream(strings.NewReader(updateStdout))
	if len(rep.UpdatedParams) == 0 {
		return slotResult{}
	}
	params := metrics.ParseFloatCSV(rep.UpdatedParams[len(rep.UpdatedParams)-1])

	return slotResult{updatedParams: params, ok: true}
}

// lastBaseline returns the last baseline metric line found in stdout, the
// compiler's per-invocation perf/sequence record.
func lastBaseline(stdout string) (metrics.Line, bool) {
	rep := metrics.ParseStream(strings.NewReader(stdout))
	if len(rep.Baselines) == 0 {
		return metrics.Line{}, false
	}
	return rep.Baselines[len(rep.Baselines)-1], true
}

func baselinePerfScore(store *qv.Store, m qv.Method) float64 {
	bst, ok := store.BaselineState(m)
	if !ok {
		return 1.0
	}
	sd, ok := store.StateData(bst)
	if !ok {
		return 1.0
	}
	return sd.BasePerfScore
}

// averageParams implements the mini-batch averaging rule (§4.7, P6): the
// element-wise mean of every successful slot's updated-parameter vector. A
// minibatch with zero valid runs returns (nil, false), leaving θ unchanged
// for that method (P5).
func averageParams(slots []slotResult) ([]float64, bool) {
	var sum []float64
	n := 0
	for _, s := range slots {
		if !s.ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(s.updatedParams))
		}
		for i, v := range s.updatedParams {
			if i < len(sum) {
				sum[i] += v
			}
		}
		n++
	}
	if n == 0 {
		return nil, false
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum, true
}
