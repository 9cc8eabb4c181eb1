// Package trainerconfig loads the many training options enumerated in
// §4.4/§4.6/§4.7 from an external YAML document, following the same
// two-stage viper-then-yaml decode the teacher uses: viper reads the outer
// envelope (a `kind` discriminator plus an opaque `def` block), which is
// then re-marshaled and decoded into the concrete, strongly-typed config
// for that kind. This keeps the many training options out of ambient/global
// parameter passing, per the re-architecture notes (§9).
package trainerconfig

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"jitrlcse/internal/rlerrors"
)

// OuterConfig is the envelope every recognized config file shares: Kind
// selects which concrete config Def should be decoded as.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// SelectorConfig mirrors the Method Selector's recognized options (§4.4).
type SelectorConfig struct {
	NumMethods       int    `yaml:"numMethods"`
	MinCandidates    uint   `yaml:"minCandidates"`
	MaxCandidates    uint   `yaml:"maxCandidates"`
	RandomSample     bool   `yaml:"randomSample"`
	RandomSampleSeed int64  `yaml:"randomSampleSeed"`
	UseSpecific      []int  `yaml:"useSpecific"`
	UseAdditional    []int  `yaml:"useAdditional"`
}

// MCMCConfig mirrors the MCMC Explorer's recognized options (§4.6).
type MCMCConfig struct {
	MinCandidatesForRandomTrials int `yaml:"minCandidatesForRandomTrials"`
	NumRandomTrials              int `yaml:"numRandomTrials"`
	Salt                         int64 `yaml:"salt"`
	Selector                     SelectorConfig `yaml:"selector"`
}

// defaultMinCandidatesForRandomTrials is the enumerate/sample threshold
// (§4.6: "default 10").
const defaultMinCandidatesForRandomTrials = 10

// WithDefaults fills zero-valued MCMC fields with their documented
// defaults.
func (c MCMCConfig) WithDefaults() MCMCConfig {
	if c.MinCandidatesForRandomTrials == 0 {
		c.MinCandidatesForRandomTrials = defaultMinCandidatesForRandomTrials
	}
	return c
}

// TrainingConfig mirrors the Policy-Gradient Trainer's recognized options
// (§4.7's table).
type TrainingConfig struct {
	Rounds             int            `yaml:"rounds"`
	MinibatchSize      int            `yaml:"minibatchSize"`
	Alpha              float64        `yaml:"alpha"`
	Salt               int64          `yaml:"salt"`
	SummaryInterval    int            `yaml:"summaryInterval"`
	InitialParameters  []float64      `yaml:"initialParameters"`
	Sequential         bool           `yaml:"sequential"`
	StopOnStable       int            `yaml:"stopOnStable"`
	TrainingDeadline   map[string]string `yaml:"trainingDeadline"`
	Selector           SelectorConfig `yaml:"selector"`
}

const (
	defaultRounds          = 10000
	defaultMinibatchSize   = 25
	defaultAlpha           = 0.02
	defaultSummaryInterval = 100
	defaultStopOnStable    = 50
)

// WithDefaults fills zero-valued fields with their documented defaults
// (§4.7's table).
func (c TrainingConfig) WithDefaults() TrainingConfig {
	if c.Rounds == 0 {
		c.Rounds = defaultRounds
	}
	if c.MinibatchSize == 0 {
		c.MinibatchSize = defaultMinibatchSize
	}
	if c.Alpha == 0 {
		c.Alpha = defaultAlpha
	}
	if c.SummaryInterval == 0 {
		c.SummaryInterval = defaultSummaryInterval
	}
	if c.StopOnStable == 0 {
		c.StopOnStable = defaultStopOnStable
	}
	return c
}

// ParamVector returns exactly n entries: InitialParameters padded with
// zeros, or truncated to its first n entries if it is longer.
func (c TrainingConfig) ParamVector(n int) []float64 {
	theta := make([]float64, n)
	copy(theta, c.InitialParameters)
	return theta
}

// WithTrainingDeadline returns a context bounded by the configured
// deadline, if one is set, following the teacher's
// TrainingConfig.WithTrainingDeadline.
func (c TrainingConfig) WithTrainingDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := c.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// decodeOuter runs the viper-then-yaml two-stage decode shared by every
// config kind: viper reads the file into the generic OuterConfig envelope,
// then Def is re-marshaled to YAML bytes and unmarshaled into out.
func decodeOuter(path string, wantKind string, out interface{}) error {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	if err := vp.ReadInConfig(); err != nil {
		return &rlerrors.ConfigurationError{Setting: path, Reason: err.Error()}
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return &rlerrors.ConfigurationError{Setting: path, Reason: err.Error()}
	}
	if outer.Kind != wantKind {
		return &rlerrors.ConfigurationError{Setting: "kind", Reason: "expected kind " + wantKind + ", got " + outer.Kind}
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return &rlerrors.ConfigurationError{Setting: path, Reason: err.Error()}
	}
	if err := yaml.Unmarshal(spec, out); err != nil {
		return &rlerrors.ConfigurationError{Setting: path, Reason: err.Error()}
	}
	return nil
}

// MCMCFromYaml loads a `kind: mcmc` config document.
func MCMCFromYaml(path string) (*MCMCConfig, error) {
	cfg := &MCMCConfig{}
	if err := decodeOuter(path, "mcmc", cfg); err != nil {
		return nil, err
	}
	withDefaults := cfg.WithDefaults()
	return &withDefaults, nil
}

// TrainingFromYaml loads a `kind: policygradient` config document.
func TrainingFromYaml(path string) (*TrainingConfig, error) {
	cfg := &TrainingConfig{}
	if err := decodeOuter(path, "policygradient", cfg); err != nil {
		return nil, err
	}
	withDefaults := cfg.WithDefaults()
	return &withDefaults, nil
}
