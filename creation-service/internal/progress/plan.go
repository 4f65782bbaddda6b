package progress

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyPlan       = errors.New("phase plan is empty")
	ErrPlanNotMonotone = errors.New("phase targets must be non-decreasing")
	ErrPlanReachesEnd  = errors.New("last phase target must stay below 100")
)

// Phase - именованный отрезок оценочного прогресса.
type Phase struct {
	Label    string        `json:"label"`
	Icon     string        `json:"icon"`
	Target   float64       `json:"targetProgressPercent"`
	Duration time.Duration `json:"estimatedDurationMs"`
}

// Plan - упорядоченный список фаз одной долгой операции.
type Plan []Phase

// Validate проверяет инварианты плана: цели не убывают, последняя строго меньше 100.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPlan
	}
	prev := 0.0
	for i, ph := range p {
		if ph.Target < prev {
			return fmt.Errorf("%w: phase %d (%s) target %.1f < %.1f", ErrPlanNotMonotone, i, ph.Label, ph.Target, prev)
		}
		if ph.Duration <= 0 {
			return fmt.Errorf("phase %d (%s) must have a positive duration", i, ph.Label)
		}
		prev = ph.Target
	}
	if prev >= 100 {
		return ErrPlanReachesEnd
	}
	return nil
}

// TotalDuration - сумма оценочных длительностей.
func (p Plan) TotalDuration() time.Duration {
	var d time.Duration
	for _, ph := range p {
		d += ph.Duration
	}
	return d
}

// DraftPlan - фиксированный план генерации черновика.
var DraftPlan = Plan{
	{Label: "Researching", Icon: "search", Target: 35, Duration: 7000 * time.Millisecond},
	{Label: "Analyzing sources", Icon: "library", Target: 50, Duration: 2000 * time.Millisecond},
	{Label: "Drafting", Icon: "pen", Target: 65, Duration: 4000 * time.Millisecond},
	{Label: "Writing script", Icon: "sparkles", Target: 98, Duration: 22000 * time.Millisecond},
}

// NarrativePlan - план генерации вариантов повествования.
var NarrativePlan = Plan{
	{Label: "Connecting ideas", Icon: "link", Target: 60, Duration: 4000 * time.Millisecond},
	{Label: "Shaping narratives", Icon: "sparkles", Target: 95, Duration: 8000 * time.Millisecond},
}
