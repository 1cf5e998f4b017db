package drain

import "strings"

// Cluster is one extracted log template: the generalized token pattern for
// a group of similar lines plus aggregate metadata.
//
// A cluster is created the first time a leaf receives a line with no
// sufficiently similar sibling, and mutated on every later matching line.
// It is owned exclusively by its engine and never deleted.
type Cluster struct {
	// ID is the creation-ordered identifier, starting at 1.
	ID int `json:"id"`

	// Tokens is the generalized pattern: each position is either a
	// literal token or the wildcard. Length is fixed at creation.
	Tokens []string `json:"tokens"`

	// Occurrences counts the lines absorbed into this cluster.
	Occurrences int `json:"occurrences"`

	// Samples holds up to maxSamples lists of concrete values observed
	// at wildcard positions, one list per sampled line.
	Samples [][]string `json:"samples,omitempty"`

	// FirstSeen and LastSeen are zero-based input line indices.
	FirstSeen int `json:"first_seen"`
	LastSeen  int `json:"last_seen"`

	// Meta holds auxiliary metadata attached by match hooks. The engine
	// never reads it.
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// newCluster creates a cluster whose pattern is the candidate sequence
// verbatim, with no wildcards.
func newCluster(id int, tokens []string, lineIdx int) *Cluster {
	pattern := make([]string, len(tokens))
	copy(pattern, tokens)
	return &Cluster{
		ID:          id,
		Tokens:      pattern,
		Occurrences: 1,
		FirstSeen:   lineIdx,
		LastSeen:    lineIdx,
	}
}

// absorb merges a matching line into the cluster. Every pattern position
// whose literal disagrees with the candidate becomes a wildcard; wildcards
// never revert. Positions beyond the shorter sequence are left alone, which
// only matters on the degraded path where lengths can differ.
func (c *Cluster) absorb(tokens []string, lineIdx, maxSamples int) {
	n := len(c.Tokens)
	if len(tokens) < n {
		n = len(tokens)
	}

	for i := 0; i < n; i++ {
		if c.Tokens[i] != Wildcard && c.Tokens[i] != tokens[i] {
			c.Tokens[i] = Wildcard
		}
	}

	if len(c.Samples) < maxSamples {
		var vars []string
		for i := 0; i < n; i++ {
			if c.Tokens[i] == Wildcard {
				vars = append(vars, tokens[i])
			}
		}
		if len(vars) > 0 {
			c.Samples = append(c.Samples, vars)
		}
	}

	c.Occurrences++
	c.LastSeen = lineIdx
}

// Pattern renders the template with the wildcard placeholder at
// generalized positions.
func (c *Cluster) Pattern() string {
	return strings.Join(c.Tokens, " ")
}

// WildcardCount returns the number of generalized pattern positions.
func (c *Cluster) WildcardCount() int {
	count := 0
	for _, tok := range c.Tokens {
		if tok == Wildcard {
			count++
		}
	}
	return count
}

// SetMeta stores an auxiliary metadata value, allocating the map lazily.
func (c *Cluster) SetMeta(key string, value interface{}) {
	if c.Meta == nil {
		c.Meta = make(map[string]interface{})
	}
	c.Meta[key] = value
}

// GetMeta returns an auxiliary metadata value.
func (c *Cluster) GetMeta(key string) (interface{}, bool) {
	v, ok := c.Meta[key]
	return v, ok
}
