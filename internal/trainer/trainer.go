// Package trainer implements the Policy-Gradient Trainer (§4.7), the
// algorithmic centerpiece of the training core. It does not compute
// gradients itself: it orchestrates a compiler that, given θ, produces
// stochastic rollouts and REINFORCE-with-baseline updates, and it averages
// the returned parameter vectors across each mini-batch.
//
// The mini-batch parallel-for is grounded on the teacher's errgroup usage
// in server/fastview/client.go's Sync(): one errgroup.WithContext bounds
// every slot in a mini-batch and waits for all of them. Every slot failure
// is reduced to a per-slot outcome by runSlot, so no slot returns an error
// through the group.
package trainer

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"jitrlcse/internal/greedyeval"
	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
	"jitrlcse/internal/trainerconfig"
)

// RoundSummary is emitted after every round for progress reporting (§6.4).
type RoundSummary struct {
	Round       int
	MethodStats []MethodRoundStats
	ThetaStable bool
}

// MethodRoundStats is one method's outcome within a round.
type MethodRoundStats struct {
	Method       qv.Method
	NumSucceeded int
	NumGacked    int
}

// Result is the outcome of a full Trainer.Run.
type Result struct {
	FinalTheta []float64
	Rounds     int
	Greedy     []greedyeval.Result
}

// ProgressFunc is called after every round, following the teacher's
// ProgressFunc(ctx, count) hook in reinforcement.Train.
type ProgressFunc func(ctx context.Context, summary RoundSummary)

// Trainer runs the round/mini-batch training loop described in §4.7.
type Trainer struct {
	Driver  *replayhost.Driver
	Store   *qv.Store
	Config  trainerconfig.TrainingConfig
	Methods []qv.Method
	// Corpus identifies the method corpus Methods were drawn from, needed
	// to resolve qv.Method keys when classifying greedy evaluation lines.
	Corpus string

	// Progress is called after every round, if set.
	Progress ProgressFunc
}

// Run executes the full training loop and returns the final θ.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	ctx, cancel, err := t.Config.WithTrainingDeadline(ctx)
	if err != nil {
		return Result{}, err
	}
	defer cancel()

	// 25-dimensional feature vector (§4.7's policy formulation).
	const numFeatures = 25
	theta := t.Config.ParamVector(numFeatures)

	var greedyResults []greedyeval.Result
	stableRounds := 0
	round := 0

	for round = 0; round < t.Config.Rounds; round++ {
		select {
		case <-ctx.Done():
			return Result{FinalTheta: theta, Rounds: round, Greedy: greedyResults}, ctx.Err()
		default:
		}

		prevTheta := append([]float64(nil), theta...)
		summary := RoundSummary{Round: round}

		for _, m := range t.Methods {
			stats, nextTheta, err := t.runMethodMinibatch(ctx, m, theta, round)
			if err != nil {
				return Result{FinalTheta: theta, Rounds: round, Greedy: greedyResults}, err
			}
			summary.MethodStats = append(summary.MethodStats, stats)
			theta = nextTheta
		}

		if thetaEqual(theta, prevTheta) {
			stableRounds++
		} else {
			stableRounds = 0
		}
		summary.ThetaStable = stableRounds >= t.Config.StopOnStable

		if t.Progress != nil {
			t.Progress(ctx, summary)
		}

		if t.Config.SummaryInterval > 0 && round%t.Config.SummaryInterval == 0 {
			printRoundTable(summary)
			result, err := greedyeval.Evaluate(ctx, t.Driver, t.Corpus, t.Store, theta, round)
			if err != nil {
				log.Printf("trainer: greedy evaluation failed at round %d: %v", round, err)
			} else {
				greedyResults = append(greedyResults, result)
			}
		}

		if t.Config.StopOnStable > 0 && stableRounds >= t.Config.StopOnStable {
			break
		}
	}

	return Result{FinalTheta: theta, Rounds: round, Greedy: greedyResults}, nil
}

// runMethodMinibatch executes one method's mini-batch within a round (§4.7
// step 1-2): minibatch_size rollout+update pairs run in parallel against
// the same pre-minibatch θ, and the successful results' parameter vectors
// are averaged to produce the θ the next method in the round sees.
func (t *Trainer) runMethodMinibatch(ctx context.Context, m qv.Method, theta []float64, round int) (MethodRoundStats, []float64, error) {
	size := t.Config.MinibatchSize
	slots := make([]slotResult, size)

	if t.Config.Sequential {
		for i := 0; i < size; i++ {
			slots[i] = runSlot(ctx, t.Driver, m, t.Store, theta, t.Config.Alpha, iterSalt(t.Config.Salt, size, t.Config.Rounds, round, i))
		}
	} else {
		group, groupCtx := errgroup.WithContext(ctx)
		for i := 0; i < size; i++ {
			i := i
			group.Go(func() error {
				slots[i] = runSlot(groupCtx, t.Driver, m, t.Store, theta, t.Config.Alpha, iterSalt(t.Config.Salt, size, t.Config.Rounds, round, i))
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return MethodRoundStats{Method: m}, theta, err
		}
	}

	stats := MethodRoundStats{Method: m}
	for _, s := range slots {
		if s.ok {
			stats.NumSucceeded++
		} else {
			stats.NumGacked++
		}
	}

	avg, ok := averageParams(slots)
	if !ok {
		return stats, theta, nil
	}
	return stats, avg, nil
}

// iterSalt computes the per-slot RNG salt (§4.7 step 1.1):
// salt*minibatch*rounds + r*minibatch + i.
func iterSalt(salt int64, minibatch, rounds, r, i int) int64 {
	return salt*int64(minibatch)*int64(rounds) + int64(r)*int64(minibatch) + int64(i)
}

func thetaEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// printRoundTable prints the per-method summary line (§6.4), following the
// teacher's preference for a plain tabular Printf over a logging framework.
func printRoundTable(summary RoundSummary) {
	fmt.Printf("round %d:\n", summary.Round)
	for _, s := range summary.MethodStats {
		fmt.Printf("  %s: succeeded=%d gacked=%d\n", s.Method, s.NumSucceeded, s.NumGacked)
	}
}
