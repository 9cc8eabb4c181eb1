package trainer

import "jitrlcse/internal/qv"

// rewardVector implements the reward-shaping formula (§4.7): given the
// per-prefix-state V values along a rollout (length T+1, as returned by
// qv.Store.SequenceToValues) and the method's baseline score, compute the
// per-step advantage-flavored reward r_i = (V_i - V_{i+1}) / baselineScore
// for i = 0 .. T-1.
//
// The sign follows directly from lower-is-better: a transition that
// improves the best-known score (V_i > V_{i+1}) yields a positive reward.
func rewardVector(values []float64, baselineScore float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	rewards := make([]float64, len(values)-1)
	for i := 0; i < len(rewards); i++ {
		rewards[i] = (values[i] - values[i+1]) / baselineScore
	}
	return rewards
}

// valuesAlong is a small convenience wrapping Store.SequenceToValues. It
// has no caller: runSlot calls SequenceToValues directly, and reward.go's
// tests pass literal V vectors straight to rewardVector (mirroring S3's
// literal fixture).
func valuesAlong(store *qv.Store, m qv.Method, seq qv.Sequence) []float64 {
	return store.SequenceToValues(m, seq)
}
