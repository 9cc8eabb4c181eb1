package qv

import "sync"

// Store holds the Q/V tables and the Baseline/Best maps (§3). All mutating
// operations are serialized by mu; reads performed during training never
// race with writes, matching §4.5's "serialized by a single lock" contract.
//
// This is the explicit "Training Context" the re-architecture notes (§9)
// call for in place of the teacher's package-level globals: every operation
// takes a *Store rather than reaching for shared package state.
type Store struct {
	mu sync.Mutex

	q        map[StateAndAction]*StateAndActionData
	v        map[State]*StateData
	baseline map[Method]State
	best     map[Method]State

	// seedV is a snapshot of v taken as of the most recent SeedBaseline
	// call for each state; Forget restores exactly this, discarding any
	// state/edge created by later Update calls (P4).
	seedV map[State]*StateData
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		q:        make(map[StateAndAction]*StateAndActionData),
		v:        make(map[State]*StateData),
		baseline: make(map[Method]State),
		best:     make(map[Method]State),
		seedV:    make(map[State]*StateData),
	}
}

// SeedBaseline records the Collection Cache's baseline observation for a
// method: the terminal state reached by the compiler's built-in heuristic,
// and the perf score/CSE counts it produced there (§4.3).
func (s *Store) SeedBaseline(m Method, seq Sequence, perfScore float64, numCses, numCand uint) {
	seq.Validate(m)

	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Method: m, Seq: seq.String()}
	sd := newStateData()
	sd.BestPerfScore = perfScore
	sd.AveragePerfScore = perfScore
	sd.BasePerfScore = perfScore
	sd.NumVisits = 1
	sd.NumCses = numCses
	sd.NumCand = numCand
	sd.Baseline = true

	s.v[st] = sd
	s.baseline[m] = st
	s.seedV[st] = sd.clone()
}

// ensureState lazily creates a state's StateData, copying the fallback
// BasePerfScore/NumCses/NumCand down from its parent (spec: "copied to
// children as the fallback V"). Callers must hold mu.
func (s *Store) ensureState(st State, parent *StateData) *StateData {
	if sd, ok := s.v[st]; ok {
		return sd
	}
	sd := newStateData()
	if parent != nil {
		sd.BasePerfScore = parent.BasePerfScore
		sd.NumCses = parent.NumCses
		sd.NumCand = parent.NumCand
		sd.BestPerfScore = parent.BasePerfScore
	}
	s.v[st] = sd
	return sd
}

// Update is qv_update (§4.5): walk the sequence from the initial state,
// creating intermediate states/edges as needed, updating Q/V along the way,
// and returns whether the terminal perf score strictly improved the
// method's current Best.
func (s *Store) Update(m Method, seq Sequence, perfScore float64, isBaseline bool) bool {
	seq.Validate(m)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := InitialState(m)
	curData := s.ensureState(cur, nil)

	for _, action := range seq {
		nextSeq := cur.Sequence().Append(action)
		next := State{Method: m, Seq: nextSeq.String()}
		nextData := s.ensureState(next, curData)

		curData.Children[action] = next

		edge := StateAndAction{State: cur, Action: action}
		sad, ok := s.q[edge]
		if !ok {
			sad = &StateAndActionData{BestPerfScore: perfScore, NumVisits: 1, Baseline: isBaseline}
			s.q[edge] = sad
		} else {
			sad.NumVisits++
			if perfScore < sad.BestPerfScore {
				sad.BestPerfScore = perfScore
			}
			if isBaseline {
				sad.Baseline = true
			}
		}

		// I1: this state's best is the min over all its outgoing edges;
		// only the edge just touched could have changed, so folding the
		// new edge best into the existing state best keeps the invariant
		// without a second recompute pass.
		curData.NumVisits++
		curData.AveragePerfScore = (curData.AveragePerfScore*float64(curData.NumVisits-1) + perfScore) / float64(curData.NumVisits)
		if curData.NumVisits == 1 || sad.BestPerfScore < curData.BestPerfScore {
			curData.BestPerfScore = sad.BestPerfScore
		}

		cur, curData = next, nextData
	}

	// Snapshot Best[m]'s value before this call's own mutations touch it:
	// when the terminal state already is Best[m], curData above is the same
	// *StateData the comparison below must read the pre-update value of.
	prevBest := s.currentBestLocked(m)

	// cur is now the terminal state; I2.
	curData.NumVisits++
	curData.AveragePerfScore = (curData.AveragePerfScore*float64(curData.NumVisits-1) + perfScore) / float64(curData.NumVisits)
	if curData.NumVisits == 1 || perfScore < curData.BestPerfScore {
		curData.BestPerfScore = perfScore
	}
	if isBaseline {
		curData.Baseline = true
	}

	return s.maybeUpdateBest(m, cur, curData.BestPerfScore, prevBest)
}

// currentBestLocked returns Best[m]'s current BestPerfScore (falling back to
// Baseline[m]), taken before the caller's own in-flight mutation of that same
// StateData so a later strictly-improves comparison isn't fooled by aliasing
// with the just-mutated terminal state. Callers must hold mu.
func (s *Store) currentBestLocked(m Method) float64 {
	cur, ok := s.best[m]
	if !ok {
		cur = s.lazyBaselineLocked(m)
	}
	return s.v[cur].BestPerfScore
}

// maybeUpdateBest replaces Best[m] if terminal strictly improves on
// prevBest, the pre-mutation snapshot of Best[m]'s value (I4), with ties
// retaining the earlier sequence. Callers must hold mu.
func (s *Store) maybeUpdateBest(m Method, terminal State, terminalBest, prevBest float64) bool {
	if terminalBest < prevBest {
		s.best[m] = terminal
		return true
	}
	return false
}

// lazyBaselineLocked returns Baseline[m], which I3 guarantees exists before
// any rollout is issued. Callers must hold mu.
func (s *Store) lazyBaselineLocked(m Method) State {
	return s.baseline[m]
}

// BaselineState returns Baseline[m].
func (s *Store) BaselineState(m Method) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.baseline[m]
	return st, ok
}

// BestState returns Best[m], falling back to Baseline[m] if no rollout has
// yet improved on it. It does not create a baseline: for a method that was
// never seeded it returns the zero State.
func (s *Store) BestState(m Method) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.best[m]; ok {
		return st
	}
	return s.lazyBaselineLocked(m)
}

// StateValue returns V[st].BestPerfScore, and whether st is known.
func (s *Store) StateValue(st State) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.v[st]
	if !ok {
		return 0, false
	}
	return sd.BestPerfScore, true
}

// StateData returns a copy of the StateData for st, if known.
func (s *Store) StateData(st State) (StateData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.v[st]
	if !ok {
		return StateData{}, false
	}
	return *sd.clone(), true
}

// EdgeData returns a copy of the StateAndActionData for edge, if known.
func (s *Store) EdgeData(edge StateAndAction) (StateAndActionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sad, ok := s.q[edge]
	if !ok {
		return StateAndActionData{}, false
	}
	return *sad.clone(), true
}

// SequenceToValues returns, for each prefix state along seq (including the
// initial empty prefix and the full sequence), V[s].BestPerfScore if known,
// else V[Baseline[m]].BasePerfScore. The result has length len(seq)+1 (§4.5,
// §8 round-trip property).
func (s *Store) SequenceToValues(m Method, seq Sequence) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	fallback := 0.0
	if bst, ok := s.baseline[m]; ok {
		if sd, ok := s.v[bst]; ok {
			fallback = sd.BasePerfScore
		}
	}

	vals := make([]float64, len(seq)+1)
	for i := 0; i <= len(seq); i++ {
		st := State{Method: m, Seq: Sequence(seq[:i]).String()}
		if sd, ok := s.v[st]; ok {
			vals[i] = sd.BestPerfScore
		} else {
			vals[i] = fallback
		}
	}
	return vals
}

// Forget restores V to exactly the baseline-seeded entries (their visit
// counts, averages and best values as seeded), discarding every state and
// child link created by later Update calls; clears Q and Best; retains the
// Baseline map (§4.5). This is used between the MCMC and Policy-Gradient
// phases when they must not share knowledge.
func (s *Store) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v = make(map[State]*StateData, len(s.seedV))
	for st, sd := range s.seedV {
		s.v[st] = sd.clone()
	}
	s.q = make(map[StateAndAction]*StateAndActionData)
	s.best = make(map[Method]State)
}
