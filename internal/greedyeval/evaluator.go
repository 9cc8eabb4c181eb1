// Package greedyeval implements the Greedy Evaluator (§4.8): run the
// greedy (deterministic argmax) policy across the entire corpus in one
// batch invocation and compute the aggregate geometric-mean ratio versus
// each method's Collection-Cache baseline.
package greedyeval

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"jitrlcse/internal/atomicfloat"
	"jitrlcse/internal/metrics"
	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
)

// epsilon is the comparison tolerance for classifying a method as
// better/same/worse than baseline (§4.8, §9: "noted as 1e-4").
const epsilon = 1e-4

// Result is the outcome of one greedy evaluation (§4.8).
type Result struct {
	Round       int
	Geomean     float64
	NumBetter   int
	NumSame     int
	NumWorse    int
	BestMethod  string
	BestRatio   float64
	WorstMethod string
	WorstRatio  float64
}

// Evaluate runs evaluate_greedy(θ, round_index) (§4.8): invoke the Replay
// Host in batch mode with the greedy policy, then for each retained method
// line compute ratio = baselinePerfScore/greedyPerfScore against store's
// already-seeded Collection Cache baseline, classifying better/same/worse
// within epsilon and accumulating the geometric mean of ratios.
func Evaluate(ctx context.Context, driver *replayhost.Driver, corpus string, store *qv.Store, theta []float64, roundIndex int) (Result, error) {
	opts := replayhost.NewBuilder().
		Metrics().
		RL(theta).
		RLGreedy().
		Build()

	stdout, err := driver.Run(ctx, nil, opts)
	if err != nil {
		return Result{}, err
	}

	rep := metrics.ParseStream(strings.NewReader(stdout))
	return classify(rep, corpus, store, roundIndex), nil
}

func classify(rep metrics.Report, corpus string, store *qv.Store, roundIndex int) Result {
	logSum := atomicfloat.New(0)
	n := atomicfloat.New(0)
	better := atomicfloat.New(0)
	same := atomicfloat.New(0)
	worse := atomicfloat.New(0)

	var mu sync.Mutex
	bestRatio, worstRatio := 0.0, math.Inf(1)
	bestMethod, worstMethod := "", ""

	var wg sync.WaitGroup
	for _, line := range rep.Baselines {
		line := line
		if !line.HasNumCand || line.NumCand == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()

			idx, err := strconv.Atoi(line.MethodIndex)
			if err != nil {
				return
			}
			m := qv.Method{Corpus: corpus, Index: idx}
			bst, ok := store.BaselineState(m)
			if !ok {
				return
			}
			bd, ok := store.StateData(bst)
			if !ok {
				return
			}

			base := bd.BasePerfScore
			greedy := line.PerfScoreOrMissing()
			if base == 0 || greedy == 0 || greedy == metrics.MissingPerfScore || math.IsNaN(base) || math.IsNaN(greedy) {
				return
			}

			ratio := base / greedy
			n.Add(1)
			logSum.Add(math.Log(ratio))

			switch {
			case ratio > 1+epsilon:
				better.Add(1)
			case ratio < 1-epsilon:
				worse.Add(1)
			default:
				same.Add(1)
			}

			mu.Lock()
			if ratio > bestRatio {
				bestRatio = ratio
				bestMethod = line.MethodIndex
			}
			if ratio < worstRatio {
				worstRatio = ratio
				worstMethod = line.MethodIndex
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	result := Result{
		Round:     roundIndex,
		NumBetter: int(better.Load()),
		NumSame:   int(same.Load()),
		NumWorse:  int(worse.Load()),
	}
	if n.Load() > 0 {
		result.Geomean = math.Exp(logSum.Load() / n.Load())
	} else {
		result.Geomean = 1.0
	}
	result.BestMethod, result.BestRatio = bestMethod, bestRatio
	result.WorstMethod, result.WorstRatio = worstMethod, worstRatio
	return result
}
