package curriculum

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op is a threshold comparison operator.
type Op string

const (
	OpGTE Op = ">="
	OpGT  Op = ">"
	OpLTE Op = "<="
	OpLT  Op = "<"
)

type thresholdKind uint8

const (
	thresholdMalformed thresholdKind = iota
	thresholdNumeric
	thresholdComparison
)

// Threshold is either a bare number (implicit >=) or an operator comparison.
// A malformed threshold is kept so it can be reported, but is never met.
type Threshold struct {
	kind  thresholdKind
	op    Op
	value float64
	raw   string
}

func Numeric(v float64) Threshold {
	return Threshold{kind: thresholdNumeric, op: OpGTE, value: v, raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

func Comparison(op Op, v float64) Threshold {
	switch op {
	case OpGTE, OpGT, OpLTE, OpLT:
		return Threshold{kind: thresholdComparison, op: op, value: v, raw: string(op) + strconv.FormatFloat(v, 'f', -1, 64)}
	}
	return Threshold{kind: thresholdMalformed, raw: fmt.Sprintf("%s%v", op, v)}
}

// ParseThreshold accepts numbers and strings such as ">= 0.7", "<0.3" or "0.5".
func ParseThreshold(raw any) Threshold {
	switch v := raw.(type) {
	case float64:
		return Numeric(v)
	case float32:
		return Numeric(float64(v))
	case int:
		return Numeric(float64(v))
	case int64:
		return Numeric(float64(v))
	case string:
		return parseThresholdString(v)
	default:
		return Threshold{kind: thresholdMalformed, raw: fmt.Sprint(raw)}
	}
}

func parseThresholdString(s string) Threshold {
	trimmed := strings.TrimSpace(s)
	malformed := Threshold{kind: thresholdMalformed, raw: s}
	for _, op := range []Op{OpGTE, OpLTE, OpGT, OpLT} {
		if !strings.HasPrefix(trimmed, string(op)) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed[len(op):]), 64)
		if err != nil {
			return malformed
		}
		return Comparison(op, f)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return malformed
	}
	return Numeric(f)
}

func (t Threshold) Valid() bool { return t.kind != thresholdMalformed }

func (t Threshold) String() string { return t.raw }

// Met compares score against the threshold. Malformed thresholds are never met.
func (t Threshold) Met(score float64) bool {
	switch t.kind {
	case thresholdNumeric:
		return score >= t.value
	case thresholdComparison:
		switch t.op {
		case OpGTE:
			return score >= t.value
		case OpGT:
			return score > t.value
		case OpLTE:
			return score <= t.value
		case OpLT:
			return score < t.value
		}
	}
	return false
}

func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*t = Threshold{kind: thresholdMalformed, raw: node.Value}
		return nil
	}
	if node.Tag == "!!int" || node.Tag == "!!float" {
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			*t = Threshold{kind: thresholdMalformed, raw: node.Value}
			return nil
		}
		*t = Numeric(f)
		return nil
	}
	*t = parseThresholdString(node.Value)
	return nil
}

func (t Threshold) MarshalYAML() (any, error) { return t.raw, nil }

func (t Threshold) MarshalJSON() ([]byte, error) { return json.Marshal(t.raw) }

func (t *Threshold) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*t = Threshold{kind: thresholdMalformed, raw: string(b)}
		return nil
	}
	*t = ParseThreshold(v)
	return nil
}

// Met reports whether every threshold holds against scores. Missing skills
// score 0. An empty map is never met.
func (r Requirements) Met(scores map[string]float64) bool {
	if len(r) == 0 {
		return false
	}
	for skill, th := range r {
		if !th.Met(scores[skill]) {
			return false
		}
	}
	return true
}

// Requirements maps skill id to threshold.
type Requirements map[string]Threshold

// Malformed lists skills whose threshold failed to parse.
func (r Requirements) Malformed() []string {
	out := []string{}
	for skill, th := range r {
		if !th.Valid() {
			out = append(out, skill)
		}
	}
	return out
}
