package drain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// stubStrategy gives tests full control over preprocessing, tokenization,
// and thresholds.
type stubStrategy struct {
	threshold  float64
	thresholdF func(depth int) float64
	failOn     string
}

func (s *stubStrategy) Preprocess(line string) (string, error) {
	if s.failOn != "" && line == s.failOn {
		return "", errors.New("bad line")
	}
	return line, nil
}

func (s *stubStrategy) Tokenize(line string) ([]string, error) {
	return strings.Fields(line), nil
}

func (s *stubStrategy) SimThreshold(depth int) float64 {
	if s.thresholdF != nil {
		return s.thresholdF(depth)
	}
	if s.threshold > 0 {
		return s.threshold
	}
	return DefaultSimThreshold
}

func mustEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func ingestAll(t *testing.T, e *Engine, lines []string) {
	t.Helper()
	for _, line := range lines {
		if _, err := e.Ingest(line); err != nil {
			t.Fatalf("Ingest(%q) error = %v", line, err)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults valid", DefaultConfig(), false},
		{"minimal valid", Config{Depth: 2, MaxChildren: 1, MaxClusters: 1, MaxSamples: 0}, false},
		{"depth too small", Config{Depth: 1, MaxChildren: 10, MaxClusters: 10, MaxSamples: 3}, true},
		{"zero children", Config{Depth: 4, MaxChildren: 0, MaxClusters: 10, MaxSamples: 3}, true},
		{"zero clusters", Config{Depth: 4, MaxChildren: 10, MaxClusters: 0, MaxSamples: 3}, true},
		{"negative samples", Config{Depth: 4, MaxChildren: 10, MaxClusters: 10, MaxSamples: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskedVariantsCollapse(t *testing.T) {
	// Default masking strategy: lines differing only in the IP must
	// produce exactly one template.
	e := mustEngine(t, DefaultConfig())
	ingestAll(t, e, []string{
		"INFO Connection from 192.168.1.1 established",
		"INFO Connection from 192.168.1.2 established",
	})

	clusters := e.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if got := clusters[0].Pattern(); got != "INFO Connection from <*> established" {
		t.Errorf("Pattern() = %q", got)
	}
	if clusters[0].Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", clusters[0].Occurrences)
	}
}

func TestMergeGeneralizesDifferingPosition(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{}))
	ingestAll(t, e, []string{
		"user login alice ok",
		"user login bob ok",
	})

	clusters := e.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if got := c.Pattern(); got != "user login <*> ok" {
		t.Errorf("Pattern() = %q", got)
	}
	if c.FirstSeen != 0 || c.LastSeen != 1 {
		t.Errorf("FirstSeen/LastSeen = %d/%d, want 0/1", c.FirstSeen, c.LastSeen)
	}
	if want := [][]string{{"bob"}}; !reflect.DeepEqual(c.Samples, want) {
		t.Errorf("Samples = %v, want %v", c.Samples, want)
	}
}

func TestWildcardIsMonotonic(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{}))
	ingestAll(t, e, []string{
		"task run alpha done",
		"task run beta done",
		"task run alpha done", // literal reappears; wildcard must not revert
	})

	clusters := e.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if got := clusters[0].Pattern(); got != "task run <*> done" {
		t.Errorf("Pattern() = %q", got)
	}
	if clusters[0].Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", clusters[0].Occurrences)
	}
}

func TestClusterCapAbsorbsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClusters = 1
	e := mustEngine(t, cfg, WithStrategy(&stubStrategy{}))

	// Three structurally different lines, including different lengths.
	ingestAll(t, e, []string{
		"alpha beta gamma",
		"completely different line with more tokens",
		"short",
	})

	clusters := e.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", clusters[0].Occurrences)
	}
	if e.DegradedLines() != 2 {
		t.Errorf("DegradedLines() = %d, want 2", e.DegradedLines())
	}
}

func TestLengthBucketsPartition(t *testing.T) {
	// An exact threshold cannot merge across token counts: length is the
	// primary branch key, so these lines must never share a template.
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{threshold: 1.0}))
	ingestAll(t, e, []string{
		"connect host port",
		"connect host",
		"connect host port retry",
	})

	if got := len(e.Clusters()); got != 3 {
		t.Errorf("expected 3 clusters, got %d", got)
	}
}

func TestBranchCapDegradesGracefully(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChildren = 3
	e := mustEngine(t, cfg, WithStrategy(&stubStrategy{}))

	// Far more distinct leading tokens than the branch cap allows. Every
	// line must still be ingested; clustering just gets coarser.
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("svc%c handling request", 'a'+i))
	}
	ingestAll(t, e, lines)

	if e.Lines() != 20 {
		t.Errorf("Lines() = %d, want 20", e.Lines())
	}
	total := 0
	for _, c := range e.Clusters() {
		total += c.Occurrences
	}
	if total != 20 {
		t.Errorf("sum of occurrences = %d, want 20", total)
	}
}

func TestSumOfOccurrencesEqualsLines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClusters = 3
	e := mustEngine(t, cfg, WithStrategy(&stubStrategy{failOn: "!!corrupt!!"}))

	lines := []string{
		"one two three",
		"one two four",
		"!!corrupt!!",
		"totally different structure here now",
		"another shape of line",
		"one two three",
		"!!corrupt!!",
	}
	ingestAll(t, e, lines)

	if e.Lines() != len(lines) {
		t.Fatalf("Lines() = %d, want %d", e.Lines(), len(lines))
	}
	total := 0
	for _, c := range e.Clusters() {
		total += c.Occurrences
	}
	if total != len(lines) {
		t.Errorf("sum of occurrences = %d, want %d", total, len(lines))
	}
	if got := len(e.Clusters()); got > cfg.MaxClusters {
		t.Errorf("cluster count %d exceeds cap %d", got, cfg.MaxClusters)
	}
}

func TestDeterminism(t *testing.T) {
	lines := []string{
		"INFO Connection from 10.0.0.1 established",
		"WARN disk usage at 91 percent",
		"INFO Connection from 10.0.0.2 established",
		"ERROR failed to write /var/lib/app/data.db",
		"WARN disk usage at 93 percent",
	}

	run := func() Report {
		e := mustEngine(t, DefaultConfig())
		ingestAll(t, e, lines)
		return e.Report()
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ between identical runs:\n%+v\n%+v", first, second)
	}
}

func TestMaxSamplesBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSamples = 2
	e := mustEngine(t, cfg, WithStrategy(&stubStrategy{}))

	for i := 0; i < 6; i++ {
		if _, err := e.Ingest(fmt.Sprintf("job finished j%d", i)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	for _, c := range e.Clusters() {
		if len(c.Samples) > cfg.MaxSamples {
			t.Errorf("cluster %d has %d samples, cap is %d", c.ID, len(c.Samples), cfg.MaxSamples)
		}
	}
}

func TestEmptyLineIsNotAnError(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{}))
	c, err := e.Ingest("")
	if err != nil {
		t.Fatalf("Ingest(\"\") error = %v", err)
	}
	if len(c.Tokens) != 0 {
		t.Errorf("expected zero-length pattern, got %v", c.Tokens)
	}
	if e.Lines() != 1 {
		t.Errorf("Lines() = %d, want 1", e.Lines())
	}
}

func TestStrategyErrorAbsorbed(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{failOn: "broken"}))
	ingestAll(t, e, []string{"ok line here", "broken", "broken", "ok line here"})

	if e.StrategyErrors() != 2 {
		t.Errorf("StrategyErrors() = %d, want 2", e.StrategyErrors())
	}
	if e.Lines() != 4 {
		t.Errorf("Lines() = %d, want 4", e.Lines())
	}

	var unparsable *Cluster
	for _, c := range e.Clusters() {
		if c.Pattern() == unparsableToken {
			unparsable = c
		}
	}
	if unparsable == nil {
		t.Fatal("no unparsable cluster created")
	}
	if unparsable.Occurrences != 2 {
		t.Errorf("unparsable Occurrences = %d, want 2", unparsable.Occurrences)
	}
}

func TestStrategyErrorAborts(t *testing.T) {
	e := mustEngine(t, DefaultConfig(),
		WithStrategy(&stubStrategy{failOn: "broken"}),
		WithErrorPolicy(AbortOnError))

	if _, err := e.Ingest("fine"); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	_, err := e.Ingest("broken")
	if err == nil {
		t.Fatal("expected error under AbortOnError")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error %q does not name the line index", err)
	}
}

func TestMatchHookObservesCreationAndMatches(t *testing.T) {
	type event struct {
		id      int
		created bool
	}
	var events []event
	hook := func(c *Cluster, line string, created bool) {
		events = append(events, event{c.ID, created})
		c.SetMeta("last_line", line)
	}

	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{}), WithMatchHook(hook))
	ingestAll(t, e, []string{"cache miss key1", "cache miss key2"})

	want := []event{{1, true}, {1, false}}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("hook events = %v, want %v", events, want)
	}

	v, ok := e.Clusters()[0].GetMeta("last_line")
	if !ok || v != "cache miss key2" {
		t.Errorf("meta last_line = %v, want %q", v, "cache miss key2")
	}
}

func TestTiesPreferEarliestCluster(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithStrategy(&stubStrategy{threshold: 0.7}))

	// Two clusters in the same leaf (0.6 similarity to each other, below
	// the threshold) that a third line matches equally at 0.8.
	ingestAll(t, e, []string{"a b c d e", "a b c x y"})
	if len(e.Clusters()) != 2 {
		t.Fatalf("setup expected 2 clusters, got %d", len(e.Clusters()))
	}

	c, err := e.Ingest("a b c d y")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if c.ID != 1 {
		t.Errorf("tie broken to cluster %d, want earliest (1)", c.ID)
	}
}
