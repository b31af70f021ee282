// Package report defines the value types exchanged between detection,
// aggregation, annotation and rendering.
package report

import (
	"bytes"
	"encoding/json"
)

// Module names in their default execution order.
const (
	Title    = "Title"
	Abstract = "Abstract"
	Keywords = "Keywords"
	Content  = "Content"
	Formula  = "Formula"
	Figure   = "Figure"
	Table    = "Table"
)

// DefaultOrder is the fixed order used for execution and presentation.
var DefaultOrder = []string{Title, Abstract, Keywords, Content, Formula, Figure, Table}

// FailedFallbackMessage is attached to failing checks that carry no message.
const FailedFallbackMessage = "检测未通过"

// CheckResult is the outcome of one named check.
type CheckResult struct {
	OK       bool     `json:"ok"`
	Messages []string `json:"messages"`
}

// Pass returns a passing result with optional informational messages.
func Pass(info ...string) CheckResult {
	return CheckResult{OK: true, Messages: append([]string{}, info...)}
}

// Fail returns a failing result.
func Fail(msgs ...string) CheckResult {
	return CheckResult{OK: false, Messages: append([]string{}, msgs...)}
}

// Result returns a failing result when msgs is non-empty and a pass otherwise.
func Result(msgs []string) CheckResult {
	if len(msgs) == 0 {
		return Pass()
	}
	return Fail(msgs...)
}

// NamedCheck pairs a check name with its result.
type NamedCheck struct {
	Name   string
	Result CheckResult
}

// Checks is an ordered set of named checks.
type Checks []NamedCheck

// Set replaces the result for name or appends it.
func (c *Checks) Set(name string, r CheckResult) {
	for i := range *c {
		if (*c)[i].Name == name {
			(*c)[i].Result = r
			return
		}
	}
	*c = append(*c, NamedCheck{Name: name, Result: r})
}

// Get returns the result for name.
func (c Checks) Get(name string) (CheckResult, bool) {
	for _, nc := range c {
		if nc.Name == name {
			return nc.Result, true
		}
	}
	return CheckResult{}, false
}

// MarshalJSON renders the checks as an object in insertion order.
func (c Checks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nc := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(nc.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(nc.Result)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Kind tells the two report shapes apart.
type Kind int

const (
	// Simple reports carry only top-level checks.
	Simple Kind = iota
	// Hierarchical reports carry one item per figure or table plus
	// top-level checks such as numbering.
	Hierarchical
)

func (k Kind) String() string {
	if k == Hierarchical {
		return "hierarchical"
	}
	return "simple"
}

// Item is a per-instance sub-report of a hierarchical module.
type Item struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Checks Checks `json:"checks"`
}

// Report is the output of one detection module.
type Report struct {
	Module    string         `json:"module"`
	Kind      Kind           `json:"-"`
	Checks    Checks         `json:"checks"`
	Items     []Item         `json:"items,omitempty"`
	Summary   []string       `json:"summary"`
	Extracted map[string]any `json:"extracted"`
	Details   Details        `json:"details"`

	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Errored builds the report of a module that could not run.
func Errored(module string, err error) Report {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Report{
		Module:       module,
		Summary:      []string{"检测失败: " + msg},
		Extracted:    map[string]any{},
		Error:        true,
		ErrorMessage: msg,
	}
}

// AllChecks visits every top-level and item check in order.
func (r Report) AllChecks(fn func(item, name string, res CheckResult)) {
	for _, nc := range r.Checks {
		fn("", nc.Name, nc.Result)
	}
	for _, it := range r.Items {
		for _, nc := range it.Checks {
			fn(it.Name, nc.Name, nc.Result)
		}
	}
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	if r.Error {
		return false
	}
	ok := true
	r.AllChecks(func(_, _ string, res CheckResult) {
		if !res.OK {
			ok = false
		}
	})
	return ok
}

// Item looks up an item by name.
func (r Report) Item(name string) (Item, bool) {
	for _, it := range r.Items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}
