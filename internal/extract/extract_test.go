package extract

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/distillog/distill/internal/drain"
)

func TestSeverityKeepsHighest(t *testing.T) {
	c := &drain.Cluster{}
	x := Severity()

	x.Apply(c, "INFO starting up")
	if got, _ := c.GetMeta(MetaSeverity); got != "INFO" {
		t.Errorf("severity = %v, want INFO", got)
	}

	x.Apply(c, "ERROR something broke")
	if got, _ := c.GetMeta(MetaSeverity); got != "ERROR" {
		t.Errorf("severity = %v, want ERROR", got)
	}

	// A lower level never demotes the recorded severity.
	x.Apply(c, "DEBUG details follow")
	if got, _ := c.GetMeta(MetaSeverity); got != "ERROR" {
		t.Errorf("severity = %v, want ERROR after DEBUG line", got)
	}
}

func TestSeverityAliases(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"warning: disk almost full", "WARN"},
		{"CRITICAL meltdown imminent", "FATAL"},
		{"plain line with no level", ""},
	}

	for _, tt := range tests {
		c := &drain.Cluster{}
		Severity().Apply(c, tt.line)
		got, ok := c.GetMeta(MetaSeverity)
		if tt.want == "" {
			if ok {
				t.Errorf("line %q set severity %v, want none", tt.line, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("line %q severity = %v, want %s", tt.line, got, tt.want)
		}
	}
}

func TestURLExtractor(t *testing.T) {
	c := &drain.Cluster{}
	x := URLs()

	x.Apply(c, "GET https://api.example.com/v1/users failed")
	x.Apply(c, "GET https://api.example.com/v1/users failed")
	x.Apply(c, "redirect to http://example.org/login")
	x.Apply(c, "nothing to see here")

	got, _ := c.GetMeta(MetaURLs)
	want := []string{"https://api.example.com/v1/users", "http://example.org/login"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("urls = %v, want %v", got, want)
	}
}

func TestStatusCodeRequiresMarker(t *testing.T) {
	c := &drain.Cluster{}
	x := StatusCodes()

	x.Apply(c, "request finished status=503")
	x.Apply(c, `upstream replied status_code: "404"`)
	x.Apply(c, "received 200 bytes") // bare number, not a status

	got, _ := c.GetMeta(MetaStatusCodes)
	want := []string{"503", "404"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("status codes = %v, want %v", got, want)
	}
}

func TestDurationExtractor(t *testing.T) {
	c := &drain.Cluster{}
	x := Durations()

	x.Apply(c, "query took 12.5ms")
	x.Apply(c, "slow request: 3 s elapsed")

	got, _ := c.GetMeta(MetaDurations)
	want := []string{"12.5ms", "3 s"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("durations = %v, want %v", got, want)
	}
}

func TestCorrelationIDExtractor(t *testing.T) {
	c := &drain.Cluster{}
	x := CorrelationIDs()

	x.Apply(c, "handled request_id=abc-123 ok")
	x.Apply(c, `trace-id: "f00dcafe" sampled`)

	got, _ := c.GetMeta(MetaCorrelationIDs)
	want := []string{"abc-123", "f00dcafe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("correlation ids = %v, want %v", got, want)
	}
}

func TestValueExtractorBounded(t *testing.T) {
	c := &drain.Cluster{}
	x := URLs()

	for i := 0; i < 20; i++ {
		x.Apply(c, fmt.Sprintf("fetch https://example.com/item/%d done", i))
	}

	got, _ := c.GetMeta(MetaURLs)
	if n := len(got.([]string)); n != maxMetaValues {
		t.Errorf("kept %d urls, want at most %d", n, maxMetaValues)
	}
}

func TestHookRunsAllExtractors(t *testing.T) {
	c := &drain.Cluster{}
	hook := Hook(Default()...)

	hook(c, "ERROR status=500 fetching https://example.com took 40ms request_id=r1", true)

	for _, key := range []string{MetaSeverity, MetaStatusCodes, MetaURLs, MetaDurations, MetaCorrelationIDs} {
		if _, ok := c.GetMeta(key); !ok {
			t.Errorf("hook did not populate %s", key)
		}
	}
}
