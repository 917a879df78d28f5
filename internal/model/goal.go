package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Goal is the structured form of a free-text goal description. It lives
// only for the duration of one planning run and is never stored.
type Goal struct {
	MainObjective   string         `json:"main_objective"`
	TargetMetrics   []TargetMetric `json:"target_metrics"`
	Timeline        string         `json:"timeline"`
	KeyMilestones   []string       `json:"key_milestones"`
	SuccessCriteria string         `json:"success_criteria"`
}

// TargetMetric is a single measurable target of a goal.
type TargetMetric struct {
	Metric string   `json:"metric"`
	Target Quantity `json:"target"`
	Unit   string   `json:"unit"`
}

// Quantity is a target amount that generators emit either as a JSON string
// ("300") or as a number (300). It is normalized to its string form.
type Quantity string

// UnmarshalJSON accepts a JSON string, number, or null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil {
		*q = Quantity(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*q = Quantity(n.String())
	return nil
}
