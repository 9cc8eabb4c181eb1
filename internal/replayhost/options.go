package replayhost

import (
	"strconv"
	"strings"

	"jitrlcse/internal/metrics"
)

// Option is one `<KEY>=<VALUE>` tuning option string forwarded to the
// Replay Host (§6.1). Centralizing the catalog here keeps the Metrics
// Parser and this Option Builder the only two components that touch the
// wire format, per the re-architecture notes.
type Option string

func opt(key, val string) Option {
	return Option(key + "=" + val)
}

// Options is an ordered sequence of tuning option strings; order is
// preserved as built, since the Replay Host reads them positionally in
// some modes (e.g. streaming).
type Options []Option

// Strings renders Options as the plain string slice exec.Cmd wants for
// argv.
func (o Options) Strings() []string {
	out := make([]string, len(o))
	for i, opt := range o {
		out[i] = string(opt)
	}
	return out
}

// Builder accumulates Options with one method per recognized wire key.
type Builder struct {
	opts Options
}

// NewBuilder returns an empty option Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Metrics requests per-method metrics lines.
func (b *Builder) Metrics() *Builder {
	b.opts = append(b.opts, opt("Metrics", "1"))
	return b
}

// CSEHashDisabled disables hashing-based CSE filtering, required for
// deterministic MCMC/rollout behavior.
func (b *Builder) CSEHashDisabled() *Builder {
	b.opts = append(b.opts, opt("CSEHash", "0"))
	return b
}

// CSEMask requests exactly the CSEs whose index bits are set in mask.
func (b *Builder) CSEMask(mask uint64) *Builder {
	b.opts = append(b.opts, opt("CSEMask", strconv.FormatUint(mask, 16)))
	return b
}

// RandomCSE requests stochastic CSE selection seeded by salt.
func (b *Builder) RandomCSE(salt int64) *Builder {
	b.opts = append(b.opts, opt("RandomCSE", strconv.FormatInt(salt, 10)))
	return b
}

// RL sets the policy parameter vector θ.
func (b *Builder) RL(theta []float64) *Builder {
	b.opts = append(b.opts, opt("RL", metrics.FormatFloatCSV(theta)))
	return b
}

// RLAlpha sets the learning rate α.
func (b *Builder) RLAlpha(alpha float64) *Builder {
	b.opts = append(b.opts, opt("RLAlpha", strconv.FormatFloat(alpha, 'f', -1, 64)))
	return b
}

// RLGreedy requests the deterministic argmax policy.
func (b *Builder) RLGreedy() *Builder {
	b.opts = append(b.opts, opt("RLGreedy", "1"))
	return b
}

// RLVerbose requests internal preference/likelihood lines.
func (b *Builder) RLVerbose() *Builder {
	b.opts = append(b.opts, opt("RLVerbose", "1"))
	return b
}

// ReplayCSE requests replaying a specific CSE sequence (the update call).
func (b *Builder) ReplayCSE(seq string) *Builder {
	b.opts = append(b.opts, opt("ReplayCSE", seq))
	return b
}

// ReplayCSEReward sets the per-step reward vector for a REINFORCE update.
func (b *Builder) ReplayCSEReward(rewards []float64) *Builder {
	b.opts = append(b.opts, opt("ReplayCSEReward", metrics.FormatFloatCSV(rewards)))
	return b
}

// RLCandidateFeatures requests per-candidate feature lines.
func (b *Builder) RLCandidateFeatures() *Builder {
	b.opts = append(b.opts, opt("RLCandidateFeatures", "1"))
	return b
}

// Build returns the accumulated Options.
func (b *Builder) Build() Options {
	return b.opts
}

// String renders the options space-joined, for logging.
func (o Options) String() string {
	toks := make([]string, len(o))
	for i, opt := range o {
		toks[i] = string(opt)
	}
	return strings.Join(toks, " ")
}
