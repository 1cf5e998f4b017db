// Package drain implements incremental log template mining: a bounded-memory,
// single-pass clustering of log lines into generalized patterns.
//
// For every incoming line the engine preprocesses and tokenizes it via a
// pluggable ParsingStrategy, descends a parse tree keyed first on token
// count and then on leading token values, scores the line against the
// clusters at the reached leaf, and either merges it into the best match or
// creates a new cluster. Two hard bounds keep memory finite under
// adversarial input: a per-node branching cap (maxChildren) and a global
// cluster cap (maxClusters). Both degrade matching precision instead of
// failing.
//
// The engine is a deterministic fold over an ordered line sequence.
// Template identity is order-dependent: the first line to reach a leaf
// establishes the initial literal pattern. Callers must treat input order
// as part of the contract. One engine instance must not be fed from
// multiple goroutines.
package drain

import (
	"fmt"
)

// Default engine configuration.
const (
	DefaultDepth        = 4
	DefaultSimThreshold = 0.4
	DefaultMaxChildren  = 100
	DefaultMaxClusters  = 1000
	DefaultMaxSamples   = 3
)

// unparsableToken is the single-token pattern of the synthetic cluster
// absorbing lines the strategy failed on.
const unparsableToken = "<unparsable>"

// Config holds the frozen per-engine configuration. Validated once at
// construction; never mutated afterwards.
type Config struct {
	// Depth is the total tree depth counted from the root. Must be >= 2;
	// the engine descends depth-2 token levels below the length bucket.
	Depth int

	// MaxChildren caps the distinct children of any tree node.
	MaxChildren int

	// MaxClusters caps the total cluster count across the tree.
	MaxClusters int

	// MaxSamples caps the stored variable-value sample lists per cluster.
	MaxSamples int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Depth:       DefaultDepth,
		MaxChildren: DefaultMaxChildren,
		MaxClusters: DefaultMaxClusters,
		MaxSamples:  DefaultMaxSamples,
	}
}

func (c Config) validate() error {
	if c.Depth < 2 {
		return fmt.Errorf("drain: depth must be at least 2, got %d", c.Depth)
	}
	if c.MaxChildren < 1 {
		return fmt.Errorf("drain: max children must be at least 1, got %d", c.MaxChildren)
	}
	if c.MaxClusters < 1 {
		return fmt.Errorf("drain: max clusters must be at least 1, got %d", c.MaxClusters)
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("drain: max samples must not be negative, got %d", c.MaxSamples)
	}
	return nil
}

// ErrorPolicy controls how the engine reacts when the strategy fails on a
// line.
type ErrorPolicy int

const (
	// AbsorbUnparsable records the failed line in a synthetic
	// "unparsable" cluster and continues. This is the default: one
	// malformed line should not cost the whole batch.
	AbsorbUnparsable ErrorPolicy = iota

	// AbortOnError surfaces the wrapped strategy error to the caller and
	// stops ingestion.
	AbortOnError
)

// MatchHook is called whenever a line is matched into or creates a
// cluster, before Ingest returns. Hooks attach auxiliary metadata to the
// cluster (severity, URLs, status codes, …) without taking part in the
// matching algorithm.
type MatchHook func(c *Cluster, line string, created bool)

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy replaces the default masking strategy.
func WithStrategy(s ParsingStrategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithErrorPolicy sets the strategy-error policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMatchHook registers a per-match hook. Hooks run in registration
// order.
func WithMatchHook(h MatchHook) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, h)
	}
}

// Engine is the incremental template-mining engine. Construct one per run
// with New; it exclusively owns its tree and clusters.
type Engine struct {
	cfg      Config
	strategy ParsingStrategy
	policy   ErrorPolicy
	hooks    []MatchHook

	tree     *parseTree
	clusters []*Cluster

	lines         int
	degradedLines int
	strategyErrs  int
	unparsable    *Cluster
}

// New creates an Engine with the given configuration. The configuration is
// validated and frozen; an invalid configuration is a fatal construction
// error, never recovered automatically.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		strategy: NewMaskingStrategy(DefaultSimThreshold, nil),
		policy:   AbsorbUnparsable,
		tree:     newParseTree(cfg.Depth, cfg.MaxChildren),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Ingest processes one line and returns the cluster that absorbed it.
// Lines must be fed in input order; the line index recorded in FirstSeen
// and LastSeen is the zero-based position in the ingestion sequence.
//
// A nil cluster with a non-nil error is only returned under AbortOnError.
func (e *Engine) Ingest(line string) (*Cluster, error) {
	idx := e.lines

	masked, err := e.strategy.Preprocess(line)
	if err != nil {
		return e.strategyFailed(idx, line, fmt.Errorf("preprocess line %d: %w", idx, err))
	}
	tokens, err := e.strategy.Tokenize(masked)
	if err != nil {
		return e.strategyFailed(idx, line, fmt.Errorf("tokenize line %d: %w", idx, err))
	}

	leaf, leafDepth := e.tree.descend(tokens)
	candidates := e.leafClusters(leaf)

	best, sim := bestMatch(candidates, tokens)
	if best != nil && sim >= e.strategy.SimThreshold(leafDepth) {
		best.absorb(tokens, idx, e.cfg.MaxSamples)
		e.finish(best, line, false)
		return best, nil
	}

	if len(e.clusters) < e.cfg.MaxClusters {
		c := newCluster(len(e.clusters)+1, tokens, idx)
		e.clusters = append(e.clusters, c)
		e.tree.attach(leaf, c.ID)
		e.finish(c, line, true)
		return c, nil
	}

	// Cluster cap reached: absorb into the best-scoring cluster at the
	// leaf regardless of threshold, or the best across the whole tree if
	// the leaf is empty.
	fallback := best
	if fallback == nil {
		fallback, _ = bestMatch(e.clusters, tokens)
	}
	fallback.absorb(tokens, idx, e.cfg.MaxSamples)
	e.degradedLines++
	e.finish(fallback, line, false)
	return fallback, nil
}

// finish runs the match hooks and advances the line counter.
func (e *Engine) finish(c *Cluster, line string, created bool) {
	for _, hook := range e.hooks {
		hook(c, line, created)
	}
	e.lines++
}

// strategyFailed applies the error policy for a line the strategy could
// not handle.
func (e *Engine) strategyFailed(idx int, line string, err error) (*Cluster, error) {
	if e.policy == AbortOnError {
		return nil, err
	}

	e.strategyErrs++
	if e.unparsable == nil {
		if len(e.clusters) >= e.cfg.MaxClusters {
			// Cap saturated before the first unparsable line: the
			// degraded path has to carry it so the cluster bound holds.
			fallback, _ := bestMatch(e.clusters, []string{unparsableToken})
			fallback.absorb([]string{unparsableToken}, idx, 0)
			e.degradedLines++
			e.finish(fallback, line, false)
			return fallback, nil
		}
		c := newCluster(len(e.clusters)+1, []string{unparsableToken}, idx)
		e.clusters = append(e.clusters, c)
		e.unparsable = c
		e.finish(c, line, true)
		return c, nil
	}
	e.unparsable.absorb([]string{unparsableToken}, idx, 0)
	e.finish(e.unparsable, line, false)
	return e.unparsable, nil
}

// leafClusters resolves a leaf's cluster IDs to clusters, preserving
// insertion order.
func (e *Engine) leafClusters(leaf int32) []*Cluster {
	ids := e.tree.clustersAt(leaf)
	if len(ids) == 0 {
		return nil
	}
	clusters := make([]*Cluster, len(ids))
	for i, id := range ids {
		clusters[i] = e.clusters[id-1]
	}
	return clusters
}

// Clusters returns all clusters in creation order. The slice is a copy;
// the clusters are the engine's own and must not be mutated concurrently
// with Ingest.
func (e *Engine) Clusters() []*Cluster {
	out := make([]*Cluster, len(e.clusters))
	copy(out, e.clusters)
	return out
}

// Lines returns the number of lines ingested so far.
func (e *Engine) Lines() int {
	return e.lines
}

// DegradedLines returns the number of lines absorbed via the
// cap-saturated fallback path.
func (e *Engine) DegradedLines() int {
	return e.degradedLines
}

// StrategyErrors returns the number of lines the strategy failed on.
func (e *Engine) StrategyErrors() int {
	return e.strategyErrs
}

// TreeSize returns the number of allocated parse tree nodes.
func (e *Engine) TreeSize() int {
	return e.tree.size()
}
