// Package rules implements the rule engine (C10): a predicate-plus-verdict
// evaluator that applies declarative keep/delete policies to the fields
// of a scanned item.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Verdict is the outcome of evaluating an item against the engine.
type Verdict string

const (
	Keep   Verdict = "keep"
	Delete Verdict = "delete"
)

// Logic combines a rule's conditions.
type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

// Condition is one atomic predicate: a field name, an operator, and a
// value to compare against.
type Condition struct {
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value" json:"value"`
}

// Rule is a predicate (conditions combined by Logic) plus a verdict
// and an evaluation priority.
type Rule struct {
	Name       string      `yaml:"name" json:"name"`
	Action     Verdict     `yaml:"action" json:"action"`
	Priority   int         `yaml:"priority" json:"priority"`
	Logic      Logic       `yaml:"logic" json:"logic"`
	Conditions []Condition `yaml:"conditions" json:"conditions"`
}

// Document is the on-disk shape of a custom rule set: YAML or JSON,
// since JSON is a subset of YAML and one parser serves both.
type Document struct {
	DefaultAction Verdict `yaml:"default_action" json:"default_action"`
	Rules         []Rule  `yaml:"rules" json:"rules"`
}

// Engine evaluates items against a priority-ordered rule set.
type Engine struct {
	rules         []Rule
	defaultAction Verdict
}

// LoadDocument parses a rule document from YAML or JSON bytes (JSON
// parses cleanly as YAML, so no format sniffing is needed) and
// returns a ready Engine.
func LoadDocument(data []byte) (*Engine, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rules: parsing rule document: %w", err)
	}

	def := doc.DefaultAction
	if def == "" {
		def = Keep
	}

	e := New(doc.Rules, def)
	return e, nil
}

// New builds an Engine from rules already in memory, sorted by
// descending priority (rules default to priority 50 if unset).
func New(rs []Rule, defaultAction Verdict) *Engine {
	sorted := make([]Rule, len(rs))
	copy(sorted, rs)
	for i := range sorted {
		if sorted[i].Priority == 0 {
			sorted[i].Priority = 50
		}
		if sorted[i].Logic == "" {
			sorted[i].Logic = LogicAND
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	if defaultAction == "" {
		defaultAction = Keep
	}
	return &Engine{rules: sorted, defaultAction: defaultAction}
}

// Item is the field bag a rule's conditions are evaluated against.
// Missing fields evaluate any condition referencing them to false.
type Item map[string]interface{}

// Evaluate returns the verdict of the first matching rule, or the
// engine's default verdict if none match. Evaluating the same item
// twice yields the same verdict: the engine holds no mutable state.
func (e *Engine) Evaluate(item Item) Verdict {
	for _, r := range e.rules {
		if matchesRule(r, item) {
			return r.Action
		}
	}
	return e.defaultAction
}

func matchesRule(r Rule, item Item) bool {
	if len(r.Conditions) == 0 {
		return false
	}

	if r.Logic == LogicOR {
		for _, c := range r.Conditions {
			if matchesCondition(c, item) {
				return true
			}
		}
		return false
	}

	for _, c := range r.Conditions {
		if !matchesCondition(c, item) {
			return false
		}
	}
	return true
}

func matchesCondition(c Condition, item Item) bool {
	fieldValue, ok := item[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case "==":
		return compareEqual(fieldValue, c.Value)
	case "!=":
		return !compareEqual(fieldValue, c.Value)
	case "<", ">", "<=", ">=":
		return compareOrdering(c.Operator, fieldValue, c.Value)
	case "in":
		return membership(fieldValue, c.Value)
	case "not in":
		return !membership(fieldValue, c.Value)
	case "contains":
		return strings.Contains(toString(fieldValue), toString(c.Value))
	case "matches":
		re, err := regexp.Compile(toString(c.Value))
		if err != nil {
			return false
		}
		return re.MatchString(toString(fieldValue))
	default:
		return false
	}
}

func compareEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return toString(a) == toString(b)
}

func compareOrdering(op string, a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case "<":
		return af < bf
	case ">":
		return af > bf
	case "<=":
		return af <= bf
	case ">=":
		return af >= bf
	}
	return false
}

func membership(field, seq interface{}) bool {
	items, ok := seq.([]interface{})
	if !ok {
		return false
	}
	for _, v := range items {
		if compareEqual(field, v) {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Strategy is an empty type with no methods; the preconfigured engines
// for the built-in strategies are built by the package-level functions
// below, so callers don't need to hand-write conditions for the common
// cases.
type Strategy struct{}

// EliminateDuplicates keeps the item with is_best = true and deletes
// everything else in its group.
func EliminateDuplicates() *Engine {
	return New([]Rule{
		{
			Name:     "keep-best",
			Action:   Keep,
			Priority: 50,
			Logic:    LogicAND,
			Conditions: []Condition{
				{Field: "is_best", Operator: "==", Value: true},
			},
		},
	}, Delete)
}

// KeepLossless keeps every item with is_lossless = true and deletes
// the rest.
func KeepLossless() *Engine {
	return New([]Rule{
		{
			Name:     "keep-lossless",
			Action:   Keep,
			Priority: 50,
			Logic:    LogicAND,
			Conditions: []Condition{
				{Field: "is_lossless", Operator: "==", Value: true},
			},
		},
	}, Delete)
}

// KeepFormat keeps every item whose format equals format upper-cased
// and deletes the rest. Only the argument is upper-cased; the item's
// format field is compared as it is (the extractors produce upper-case
// formats).
func KeepFormat(format string) *Engine {
	return New([]Rule{
		{
			Name:     "keep-format",
			Action:   Keep,
			Priority: 50,
			Logic:    LogicAND,
			Conditions: []Condition{
				{Field: "format", Operator: "==", Value: strings.ToUpper(format)},
			},
		},
	}, Delete)
}
