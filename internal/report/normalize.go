package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Normalize returns a copy of r in the uniform shape handed to later stages:
// empty containers instead of nil, failing checks always carry a message,
// and extracted values reduced to plain data.
func Normalize(module string, r Report) Report {
	out := r
	if out.Module == "" {
		out.Module = module
	}
	out.Checks = normalizeChecks(r.Checks)
	if len(r.Items) > 0 {
		out.Kind = Hierarchical
		out.Items = make([]Item, len(r.Items))
		for i, it := range r.Items {
			out.Items[i] = Item{Name: it.Name, Label: it.Label, Checks: normalizeChecks(it.Checks)}
		}
	}
	out.Summary = append([]string{}, r.Summary...)
	out.Extracted = make(map[string]any, len(r.Extracted))
	for k, v := range r.Extracted {
		out.Extracted[k] = Plain(v)
	}
	if out.Error {
		out.Checks = Checks{}
		out.Items = nil
		if out.ErrorMessage == "" {
			out.ErrorMessage = "unknown error"
		}
		if len(out.Summary) == 0 {
			out.Summary = []string{"检测失败: " + out.ErrorMessage}
		}
	}
	return out
}

func normalizeChecks(in Checks) Checks {
	out := make(Checks, 0, len(in))
	for _, nc := range in {
		res := CheckResult{OK: nc.Result.OK, Messages: append([]string{}, nc.Result.Messages...)}
		if !res.OK && len(res.Messages) == 0 {
			res.Messages = []string{FailedFallbackMessage}
		}
		out = append(out, NamedCheck{Name: nc.Name, Result: res})
	}
	return out
}

// Plain converts v into strings, numbers, booleans, slices and string-keyed
// maps. Anything else is rendered with fmt.
func Plain(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return t
	case float32:
		return float64(t)
	case []string:
		return append([]string{}, t...)
	case []int:
		return append([]int{}, t...)
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = Plain(x)
		}
		return m
	case []map[string]any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = Plain(x)
		}
		return s
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = Plain(x)
		}
		return s
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Summary aggregates pass and fail counts over a run.
type Summary struct {
	TotalChecks  int     `json:"total_checks"`
	PassedChecks int     `json:"passed_checks"`
	FailedChecks int     `json:"failed_checks"`
	PassRate     float64 `json:"pass_rate"`
}

// Tally counts every check of every report. Errored reports contribute
// nothing.
func Tally(reports []Report) Summary {
	var s Summary
	for _, r := range reports {
		if r.Error {
			continue
		}
		r.AllChecks(func(_, _ string, res CheckResult) {
			s.TotalChecks++
			if res.OK {
				s.PassedChecks++
			} else {
				s.FailedChecks++
			}
		})
	}
	if s.TotalChecks > 0 {
		s.PassRate = math.Round(float64(s.PassedChecks)/float64(s.TotalChecks)*100*100) / 100
	}
	return s
}

// Results holds normalized reports in execution order.
type Results []Report

// Get returns the report of module.
func (rs Results) Get(module string) (Report, bool) {
	for _, r := range rs {
		if r.Module == module {
			return r, true
		}
	}
	return Report{}, false
}

// Modules returns the module names in order.
func (rs Results) Modules() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Module
	}
	return out
}

// MarshalJSON renders the results as an object keyed by module name in
// execution order.
func (rs Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(r.Module)
		v, err := json.Marshal(r)
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

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
