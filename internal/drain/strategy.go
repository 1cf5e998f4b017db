package drain

import (
	"regexp"
	"strings"
)

// Wildcard is the placeholder token marking a variable pattern position.
const Wildcard = "<*>"

// ParsingStrategy supplies the line preprocessing, tokenization, and
// per-depth similarity thresholds the engine uses. The engine calls the
// three methods once per line, in this order:
//
//	Preprocess(line) -> masked line
//	Tokenize(masked) -> token sequence
//	SimThreshold(depth) -> threshold in [0.0, 1.0]
//
// Implementations must be deterministic: the engine's output is a pure
// function of the input line order and the strategy.
type ParsingStrategy interface {
	Preprocess(line string) (string, error)
	Tokenize(line string) ([]string, error)
	SimThreshold(depth int) float64
}

// MaskPattern defines a built-in masking pattern for variable content.
type MaskPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Description string
}

// Built-in masking patterns for common variable fields. Masking happens
// before tokenization so that lines differing only in these fields
// collapse into the same template.
var (
	// IPv4 addresses, optionally with a port: 192.168.1.1, 10.0.0.1:8080
	ipv4MaskRegex = regexp.MustCompile(`\b(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)(?::\d{1,5})?\b`)

	// UUIDs: 550e8400-e29b-41d4-a716-446655440000
	uuidMaskRegex = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	// ISO 8601 style timestamps: 2024-01-02T15:04:05Z, 2024-01-02 15:04:05
	timestampMaskRegex = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?\b`)

	// Hex literals and long hex runs: 0xdeadbeef, 7f3a9c
	hexMaskRegex = regexp.MustCompile(`\b0[xX][0-9a-fA-F]+\b|\b[0-9a-fA-F]{6,}\b`)

	// Standalone numbers, integer or decimal: 42, 3.14, id=123
	numberMaskRegex = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

	// Filesystem paths with at least two components: /var/log/app.log
	pathMaskRegex = regexp.MustCompile(`/[\w.-]+(?:/[\w.-]+)+`)

	// MAC addresses: 00:1B:44:11:3A:B7
	macMaskRegex = regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}(?:[0-9A-Fa-f]{2})\b`)
)

// BuiltInMasks contains all available masking patterns, selectable by name.
var BuiltInMasks = map[string]MaskPattern{
	"ipv4": {
		Name:        "ipv4",
		Regex:       ipv4MaskRegex,
		Description: "IPv4 addresses with optional port",
	},
	"uuid": {
		Name:        "uuid",
		Regex:       uuidMaskRegex,
		Description: "UUIDs",
	},
	"timestamp": {
		Name:        "timestamp",
		Regex:       timestampMaskRegex,
		Description: "ISO 8601 style timestamps",
	},
	"hex": {
		Name:        "hex",
		Regex:       hexMaskRegex,
		Description: "Hex literals and long hex runs",
	},
	"number": {
		Name:        "number",
		Regex:       numberMaskRegex,
		Description: "Bare integers and decimals",
	},
	"path": {
		Name:        "path",
		Regex:       pathMaskRegex,
		Description: "Filesystem paths",
	},
	"mac": {
		Name:        "mac",
		Regex:       macMaskRegex,
		Description: "MAC addresses",
	},
}

// DefaultMasks returns the recommended masks, in application order.
// More specific patterns run before the generic number mask so that an
// IPv4 octet is not half-consumed as a bare number.
func DefaultMasks() []string {
	return []string{
		"timestamp",
		"ipv4",
		"uuid",
		"mac",
		"path",
		"hex",
		"number",
	}
}

// GetMasks returns the masks matching the given names, preserving order.
// Unknown names are silently ignored.
func GetMasks(names []string) []MaskPattern {
	masks := make([]MaskPattern, 0, len(names))
	for _, name := range names {
		if mask, ok := BuiltInMasks[name]; ok {
			masks = append(masks, mask)
		}
	}
	return masks
}

// MaskingStrategy is the default ParsingStrategy: regex masking of
// variable fields, whitespace tokenization, and a constant similarity
// threshold at every depth.
//
// All patterns are compiled at construction and never mutated, so one
// strategy value is safe to reuse across engines of the same run.
type MaskingStrategy struct {
	masks     []MaskPattern
	threshold float64
}

// NewMaskingStrategy creates a MaskingStrategy with the given constant
// threshold and mask names. Non-positive or >1 thresholds fall back to
// the default; an empty mask list falls back to DefaultMasks.
func NewMaskingStrategy(threshold float64, maskNames []string) *MaskingStrategy {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimThreshold
	}
	masks := GetMasks(maskNames)
	if len(masks) == 0 {
		masks = GetMasks(DefaultMasks())
	}
	return &MaskingStrategy{
		masks:     masks,
		threshold: threshold,
	}
}

// Preprocess replaces every variable field matched by a mask with the
// wildcard token.
func (s *MaskingStrategy) Preprocess(line string) (string, error) {
	result := line
	for _, mask := range s.masks {
		result = mask.Regex.ReplaceAllString(result, Wildcard)
	}
	return result, nil
}

// Tokenize splits the masked line on whitespace. An empty or blank line
// yields a zero-length token sequence, not an error.
func (s *MaskingStrategy) Tokenize(line string) ([]string, error) {
	return strings.Fields(line), nil
}

// SimThreshold returns the constant threshold regardless of depth.
func (s *MaskingStrategy) SimThreshold(depth int) float64 {
	return s.threshold
}
