// Package guardrail implements the pre-LLM input screener: a pipeline of
// independent detectors, each producing a score in [0,1] and a reason,
// aggregated into a single threat score that decides whether to block a
// turn before it ever reaches the model (spec §4.5).
//
// No third-party dependency in the example corpus covers prompt-injection
// heuristics, pattern scanning, or Shannon entropy; these are expressed
// directly against regexp/unicode/math, matching how the corpus treats
// other bespoke, domain-specific scoring logic (see DESIGN.md Open
// Question 5).
package guardrail

import (
	"regexp"

	"github.com/mantlecore/agentcore/core"
)

// Config configures the detector pipeline (spec §8 `guardrail_config`).
type Config struct {
	Enabled                   bool
	StrictMode                bool
	Sensitivity               float64
	MaxInputLength            int
	EnablePatternDetection    bool
	EnableHeuristicDetection  bool
	EnableEncodingDetection   bool
	EnableEntropyDetection    bool
	EnableSequentialDetection bool
	EnableLengthDetection     bool
	AllowlistPatterns         []string
	BlocklistPatterns         []string
}

// DefaultConfig matches spec §8's documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		StrictMode:                false,
		Sensitivity:               1.0,
		MaxInputLength:            10000,
		EnablePatternDetection:    true,
		EnableHeuristicDetection:  true,
		EnableEncodingDetection:   true,
		EnableEntropyDetection:    true,
		EnableSequentialDetection: true,
		EnableLengthDetection:     true,
	}
}

// DetectorResult is one detector's verdict.
type DetectorResult struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// Result is the aggregate outcome of running the pipeline against one
// input string. Kind is set only when Blocked, naming the typed error
// the caller should surface — core.ErrInputTooLong when the length
// detector triggered the block, core.ErrGuardrailBlocked otherwise
// (spec §8).
type Result struct {
	Blocked   bool             `json:"blocked"`
	Threat    float64          `json:"threat"`
	Kind      core.ErrorKind   `json:"kind,omitempty"`
	Detectors []DetectorResult `json:"detectors"`
}

// RefusalResponse is the synthetic assistant response returned in place of
// a model call when Screen blocks an input (spec §4.5).
const RefusalResponse = "I can't help with that request."

// detectorFunc is the common signature every detector implements.
type detectorFunc func(Config, string) DetectorResult

// Guardrail runs the configured detector pipeline against input text.
type Guardrail struct {
	cfg       Config
	allowlist []*regexp.Regexp
	blocklist []*regexp.Regexp
}

// New compiles cfg's allow/blocklist patterns and returns a ready Guardrail.
// Invalid regexes are skipped rather than causing a construction error,
// since a guardrail misconfiguration should fail open on the offending
// pattern, not take down the whole pipeline.
func New(cfg Config) *Guardrail {
	return &Guardrail{
		cfg:       cfg,
		allowlist: compileAll(cfg.AllowlistPatterns),
		blocklist: compileAll(cfg.BlocklistPatterns),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// Screen runs the pipeline against input and returns the aggregate Result.
func (g *Guardrail) Screen(input string) Result {
	if !g.cfg.Enabled {
		return Result{}
	}

	for _, re := range g.allowlist {
		if re.MatchString(input) {
			return Result{Blocked: false, Threat: 0}
		}
	}
	for _, re := range g.blocklist {
		if re.MatchString(input) {
			return Result{
				Blocked: true,
				Threat:  1,
				Kind:    core.ErrGuardrailBlocked,
				Detectors: []DetectorResult{{Name: "blocklist", Score: 1, Reason: "matched blocklist pattern"}},
			}
		}
	}

	var results []DetectorResult
	maxScore := 0.0
	maxName := ""

	run := func(enabled bool, name string, fn detectorFunc) {
		if !enabled {
			return
		}
		res := fn(g.cfg, input)
		res.Name = name
		results = append(results, res)
		if res.Score > maxScore {
			maxScore = res.Score
			maxName = name
		}
	}

	run(g.cfg.EnablePatternDetection, "pattern", detectPattern)
	run(g.cfg.EnableHeuristicDetection, "heuristic", detectHeuristic)
	run(g.cfg.EnableEncodingDetection, "encoding", detectEncoding)
	run(g.cfg.EnableEntropyDetection, "entropy", detectEntropy)
	run(g.cfg.EnableSequentialDetection, "sequential", detectSequential)
	run(g.cfg.EnableLengthDetection, "length", detectLength)

	threat := maxScore * g.cfg.Sensitivity
	if threat > 1 {
		threat = 1
	}

	blocked := (g.cfg.StrictMode && threat > 0) || threat > 0.5

	var kind core.ErrorKind
	if blocked {
		kind = core.ErrGuardrailBlocked
		if maxName == "length" {
			kind = core.ErrInputTooLong
		}
		// Another detector may tie the length detector's score of 1 and be
		// recorded first; an over-length input is still input_too_long.
		for _, res := range results {
			if res.Name == "length" && res.Score > 0 {
				kind = core.ErrInputTooLong
			}
		}
	}

	return Result{Blocked: blocked, Threat: threat, Kind: kind, Detectors: results}
}
