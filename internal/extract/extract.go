// Package extract provides peripheral metadata extractors that run as
// engine match hooks. They attach severity, URL, status code, duration,
// and correlation-id aggregates to clusters at the moment a line is
// matched or created, without taking part in matching itself.
package extract

import (
	"regexp"

	"github.com/distillog/distill/internal/config"
	"github.com/distillog/distill/internal/drain"
)

// Metadata keys written into Cluster.Meta.
const (
	MetaSeverity       = "severity"
	MetaURLs           = "urls"
	MetaStatusCodes    = "status_codes"
	MetaDurations      = "durations"
	MetaCorrelationIDs = "correlation_ids"
)

// maxMetaValues bounds the distinct values kept per metadata key, so a
// high-cardinality field cannot grow a cluster without limit.
const maxMetaValues = 5

// Extractor inspects a raw line and updates one cluster metadata facet.
type Extractor interface {
	Apply(c *drain.Cluster, line string)
}

// Hook adapts a set of extractors into a single engine match hook.
func Hook(extractors ...Extractor) drain.MatchHook {
	return func(c *drain.Cluster, line string, created bool) {
		for _, x := range extractors {
			x.Apply(c, line)
		}
	}
}

// Default returns the standard extractor set.
func Default() []Extractor {
	return []Extractor{
		Severity(),
		URLs(),
		StatusCodes(),
		Durations(),
		CorrelationIDs(),
	}
}

// severityExtractor keeps the highest severity seen for a cluster.
type severityExtractor struct {
	re *regexp.Regexp
}

// Severity returns an extractor recording the highest log level observed
// across a cluster's lines under MetaSeverity.
func Severity() Extractor {
	return &severityExtractor{
		re: regexp.MustCompile(`(?i)\b(DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL)\b`),
	}
}

func (x *severityExtractor) Apply(c *drain.Cluster, line string) {
	match := x.re.FindString(line)
	if match == "" {
		return
	}
	level := config.ParseLevel(match)
	if level == config.LevelUnknown {
		return
	}

	if prev, ok := c.GetMeta(MetaSeverity); ok {
		if config.ParseLevel(prev.(string)) >= level {
			return
		}
	}
	c.SetMeta(MetaSeverity, level.String())
}

// valueExtractor collects up to maxMetaValues distinct capture values
// under a metadata key.
type valueExtractor struct {
	key string
	re  *regexp.Regexp
}

// URLs returns an extractor collecting distinct URLs under MetaURLs.
func URLs() Extractor {
	return &valueExtractor{
		key: MetaURLs,
		re:  regexp.MustCompile(`\bhttps?://[^\s"']+`),
	}
}

// StatusCodes returns an extractor collecting distinct HTTP status codes
// under MetaStatusCodes. Bare three-digit numbers are too ambiguous, so
// the code must follow a status marker.
func StatusCodes() Extractor {
	return &valueExtractor{
		key: MetaStatusCodes,
		re:  regexp.MustCompile(`(?i)\bstatus(?:[_ -]?code)?[=: ]+"?([1-5]\d{2})\b`),
	}
}

// Durations returns an extractor collecting distinct duration values
// under MetaDurations.
func Durations() Extractor {
	return &valueExtractor{
		key: MetaDurations,
		re:  regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:ns|µs|us|ms|s)\b`),
	}
}

// CorrelationIDs returns an extractor collecting distinct request, trace,
// and correlation identifiers under MetaCorrelationIDs.
func CorrelationIDs() Extractor {
	return &valueExtractor{
		key: MetaCorrelationIDs,
		re:  regexp.MustCompile(`(?i)\b(?:request|trace|correlation)[_-]?id[=: ]+"?([A-Za-z0-9_-]{4,})`),
	}
}

func (x *valueExtractor) Apply(c *drain.Cluster, line string) {
	match := x.re.FindStringSubmatch(line)
	if match == nil {
		return
	}
	value := match[0]
	if len(match) > 1 {
		value = match[1]
	}

	var values []string
	if prev, ok := c.GetMeta(x.key); ok {
		values = prev.([]string)
	}
	if len(values) >= maxMetaValues {
		return
	}
	for _, v := range values {
		if v == value {
			return
		}
	}
	c.SetMeta(x.key, append(values, value))
}
