// Package selector implements the Method Selector (§4.4): chooses the
// training subset from the cached corpus using candidate-count filters,
// optional random sampling with a fixed seed, and/or explicit index lists.
package selector

import (
	"math/rand"

	"jitrlcse/internal/qv"
)

// Options configures Select.
type Options struct {
	// NumMethods caps the sample size. Zero means unbounded.
	NumMethods int
	// MinCandidates/MaxCandidates are inclusive bounds on baseline NumCand.
	MinCandidates uint
	MaxCandidates uint
	// RandomSample shuffles the filtered corpus with a seeded RNG instead
	// of taking it in corpus order.
	RandomSample bool
	// RandomSampleSeed seeds the shuffle. A *private* RNG is used (rather
	// than mutating math/rand's global source) so that two concurrently
	// running selections with different seeds can never interfere with
	// each other's sequence.
	RandomSampleSeed int64
	// UseSpecific, if non-empty, ignores the filter entirely and returns
	// exactly these method indices (in the order given).
	UseSpecific []int
	// UseAdditional is appended to the selection after filtering.
	UseAdditional []int
}

// candidateCount looks up a method's NumCand from the store's baseline
// state, defaulting to 0 if the method was never seeded.
func candidateCount(store *qv.Store, m qv.Method) uint {
	st, ok := store.BaselineState(m)
	if !ok {
		return 0
	}
	sd, ok := store.StateData(st)
	if !ok {
		return 0
	}
	return sd.NumCand
}

func cseCount(store *qv.Store, m qv.Method) uint {
	st, ok := store.BaselineState(m)
	if !ok {
		return 0
	}
	sd, ok := store.StateData(st)
	if !ok {
		return 0
	}
	return sd.NumCses
}

// Select implements the select operation (§4.4).
func Select(corpus []qv.Method, store *qv.Store, opts Options) []qv.Method {
	if len(opts.UseSpecific) > 0 {
		return resolveIndices(corpus, opts.UseSpecific)
	}

	filtered := make([]qv.Method, 0, len(corpus))
	for _, m := range corpus {
		if cseCount(store, m) == 0 {
			continue
		}
		cand := candidateCount(store, m)
		if cand < opts.MinCandidates || cand > opts.MaxCandidates {
			continue
		}
		filtered = append(filtered, m)
	}

	if opts.RandomSample {
		rng := rand.New(rand.NewSource(opts.RandomSampleSeed))
		rng.Shuffle(len(filtered), func(i, j int) {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		})
	}

	if opts.NumMethods > 0 && opts.NumMethods < len(filtered) {
		filtered = filtered[:opts.NumMethods]
	}

	if len(opts.UseAdditional) > 0 {
		filtered = append(filtered, resolveIndices(corpus, opts.UseAdditional)...)
	}

	return filtered
}

// resolveIndices maps raw method indices back to qv.Method values from the
// known corpus, preserving the requested order. An index with no matching
// corpus entry is skipped.
func resolveIndices(corpus []qv.Method, indices []int) []qv.Method {
	byIndex := make(map[int]qv.Method, len(corpus))
	for _, m := range corpus {
		byIndex[m.Index] = m
	}

	out := make([]qv.Method, 0, len(indices))
	for _, idx := range indices {
		if m, ok := byIndex[idx]; ok {
			out = append(out, m)
		}
	}
	return out
}
