// Package mcmc implements the MCMC Explorer (§4.6): per method, either
// enumerate every CSE bitmask or sample random-salt trials, feed every
// result into the Q/V store, and accumulate per-method summary statistics.
//
// The fan-out/fan-in shape is grounded directly on the teacher's
// alphaMonteCarloVanillaTrain: a pool of worker goroutines produces trial
// results on their own channels, channerics.Merge fans them into one
// channel, and a single serializing goroutine (here calling qv.Store.Update
// instead of the teacher's AtomicAdd-based value propagation) consumes it
// so that Q/V mutation is never concurrent with itself.
package mcmc

import (
	"context"
	"math"
	"strings"

	channerics "github.com/niceyeti/channerics/channels"

	"jitrlcse/internal/atomicfloat"
	"jitrlcse/internal/metrics"
	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
)

// Options configures a run of Explore (§4.6).
type Options struct {
	// MinCandidatesForRandomTrials is the enumerate/sample threshold.
	// Explore applies no default; trainerconfig.MCMCConfig.WithDefaults
	// sets it to 10 when unset.
	MinCandidatesForRandomTrials int
	// NumRandomTrials is the sample size used above the threshold.
	NumRandomTrials int
	// Salt seeds the random-salt trials.
	Salt int64
}

// MethodSummary is the per-method aggregate computed after all of a
// method's invocations complete (§4.6).
type MethodSummary struct {
	Method         qv.Method
	BestPerfScore  float64
	WorstPerfScore float64
	BaseScore      float64
	// NoCseScore is the perf score observed for the "perform nothing, stop
	// immediately" trial ("0"), when enumeration happened to run it
	// (mask 0). Zero if never observed.
	NoCseScore     float64
	BestSequence   qv.Sequence
	BestNumCse     uint
	NumRuns        int
	NumBeatingBase int
	NumGacked      int
}

// Result is the overall outcome of Explore across every method, including
// the geometric-mean ratios accumulated across methods (§4.6).
type Result struct {
	Methods []MethodSummary

	// Geometric-mean ratios across methods, accumulated as
	// exp(mean(log(ratio))).
	GeomeanBaselineOverBest float64
	GeomeanBestOverNoCSE    float64
	GeomeanBaselineOverNoCSE float64
}

type trialResult struct {
	method    qv.Method
	sequence  qv.Sequence
	perfScore float64
	numCse    uint
	gacked    bool
}

// Explore runs the MCMC exploration over methods, feeding every trial
// result into store and returning per-method summaries (§4.6).
func Explore(ctx context.Context, driver *replayhost.Driver, methods []qv.Method, store *qv.Store, opts Options) Result {
	var summaries []MethodSummary

	logBestOverBase := atomicfloat.New(0)
	logBestOverNoCSE := atomicfloat.New(0)
	logBaseOverNoCSE := atomicfloat.New(0)
	nMethods, nNoCse := 0, 0

	for _, m := range methods {
		summary := exploreMethod(ctx, driver, m, store, opts)
		summaries = append(summaries, summary)

		if summary.NumRuns == 0 {
			continue
		}
		nMethods++
		if summary.BestPerfScore > 0 {
			logBestOverBase.Add(math.Log(summary.BaseScore / summary.BestPerfScore))
		}
		if summary.NoCseScore > 0 {
			nNoCse++
			logBestOverNoCSE.Add(math.Log(summary.BestPerfScore / summary.NoCseScore))
			logBaseOverNoCSE.Add(math.Log(summary.BaseScore / summary.NoCseScore))
		}
	}

	result := Result{Methods: summaries}
	if nMethods > 0 {
		result.GeomeanBaselineOverBest = math.Exp(logBestOverBase.Load() / float64(nMethods))
	}
	if nNoCse > 0 {
		result.GeomeanBestOverNoCSE = math.Exp(logBestOverNoCSE.Load() / float64(nNoCse))
		result.GeomeanBaselineOverNoCSE = math.Exp(logBaseOverNoCSE.Load() / float64(nNoCse))
	}
	return result
}

// exploreMethod runs every trial for one method, in parallel, and
// serializes their Q/V updates and summary accumulation through a single
// consuming goroutine.
func exploreMethod(ctx context.Context, driver *replayhost.Driver, m qv.Method, store *qv.Store, opts Options) MethodSummary {
	baseState, _ := store.BaselineState(m)
	baseData, _ := store.StateData(baseState)

	numCand := baseData.NumCand

	baseScore := baseData.BasePerfScore

	workers := make([]<-chan trialResult, 0)
	if int(numCand) < opts.MinCandidatesForRandomTrials {
		total := uint64(1) << numCand
		for mask := uint64(0); mask < total; mask++ {
			workers = append(workers, runTrial(ctx, driver, m, maskOptions(mask), baseScore))
		}
	} else {
		for i := 0; i < opts.NumRandomTrials; i++ {
			salt := opts.Salt + int64(i)
			workers = append(workers, runTrial(ctx, driver, m, saltOptions(salt), baseScore))
		}
	}

	results := channerics.Merge(ctx.Done(), workers...)

	summary := MethodSummary{
		Method:         m,
		BestPerfScore:  baseData.BasePerfScore,
		WorstPerfScore: baseData.BasePerfScore,
		BaseScore:      baseData.BasePerfScore,
		BestSequence:   baseState.Sequence(),
		BestNumCse:     baseData.NumCses,
	}

	for tr := range results {
		summary.NumRuns++
		if tr.gacked {
			summary.NumGacked++
		}

		store.Update(m, tr.sequence, tr.perfScore, false)

		if tr.perfScore < summary.BaseScore {
			summary.NumBeatingBase++
		}
		if tr.perfScore < summary.BestPerfScore ||
			(tr.perfScore == summary.BestPerfScore && tr.numCse < summary.BestNumCse) {
			summary.BestPerfScore = tr.perfScore
			summary.BestSequence = tr.sequence
			summary.BestNumCse = tr.numCse
		}
		if tr.perfScore > summary.WorstPerfScore {
			summary.WorstPerfScore = tr.perfScore
		}
		if !tr.gacked && tr.sequence.Pretty() == "" {
			summary.NoCseScore = tr.perfScore
		}
	}

	return summary
}

// maskOptions builds the tuning options for a deterministic bitmask trial.
func maskOptions(mask uint64) replayhost.Options {
	return replayhost.NewBuilder().
		Metrics().
		CSEHashDisabled().
		CSEMask(mask).
		Build()
}

// saltOptions builds the tuning options for a random-salt trial.
func saltOptions(salt int64) replayhost.Options {
	return replayhost.NewBuilder().
		Metrics().
		CSEHashDisabled().
		RandomCSE(salt).
		Build()
}

// runTrial launches one Replay Host invocation in its own goroutine,
// reporting the parsed trial outcome on the returned channel. Runs that
// report the missing-value perf score sentinel are recorded "gacked" and
// their baseline score substituted so the run counts as neutral (§4.6).
func runTrial(ctx context.Context, driver *replayhost.Driver, m qv.Method, opts replayhost.Options, baseScore float64) <-chan trialResult {
	out := make(chan trialResult, 1)
	go func() {
		defer close(out)

		idx := m.Index
		stdout, err := driver.Run(ctx, &idx, opts)
		if err != nil {
			return
		}

		rep := metrics.ParseStream(strings.NewReader(stdout))
		if len(rep.Baselines) == 0 {
			return
		}
		line := rep.Baselines[len(rep.Baselines)-1]

		seq := qv.ParseSequence(line.SequenceOrMissing())
		perf := line.PerfScoreOrMissing()

		gacked := perf == metrics.MissingPerfScore
		if gacked {
			perf = baseScore
		}

		select {
		case out <- trialResult{method: m, sequence: seq, perfScore: perf, numCse: line.NumCse, gacked: gacked}:
		case <-ctx.Done():
		}
	}()
	return out
}
