// Package policy loads the config-driven lookup tables of spec.md §6:
// the cancellation refund schedule, SLA deadlines per complaint
// (type, priority), and the alert rule set. These tables are loaded from
// YAML at startup (config-loaded, not hardcoded) and are not mutable from
// any user-facing request path.
package policy

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RefundTier is one band of the cancellation refund schedule.
type RefundTier struct {
	MinHoursBefore float64 `yaml:"min_hours_before"`
	RefundPercent  int     `yaml:"refund_percent"`
}

// SLATier holds the response/resolution windows for one priority level.
type SLATier struct {
	ResponseWithin   time.Duration
	ResolutionWithin time.Duration
}

type slaTierFile struct {
	ResponseHours   float64 `yaml:"response_hours"`
	ResolutionHours float64 `yaml:"resolution_hours"`
}

// AlertRule configures one scanner rule of spec.md §4.12.
type AlertRule struct {
	ScanInterval time.Duration
	DedupWindow  time.Duration
	Severity     string
}

type alertRuleFile struct {
	ScanIntervalSeconds int    `yaml:"scan_interval_seconds"`
	DedupWindowSeconds  int    `yaml:"dedup_window_seconds"`
	Severity            string `yaml:"severity"`
}

// Tables is the full set of policy lookup tables.
type Tables struct {
	RefundSchedule []RefundTier
	SLAByPriority  map[string]SLATier
	AlertRules     map[string]AlertRule
}

type tablesFile struct {
	RefundSchedule []RefundTier             `yaml:"refund_schedule"`
	SLAByPriority  map[string]slaTierFile   `yaml:"sla_by_priority"`
	AlertRules     map[string]alertRuleFile `yaml:"alert_rules"`
}

// RefundPercent returns the refund percentage for a cancellation made
// hoursBeforeService hours ahead of the scheduled service, per spec.md
// §4.6 / §6: "hours_before_service ≥ 4 → 100%; 2 ≤ h < 4 → 50%; h < 2 → 0%".
func (t Tables) RefundPercent(hoursBeforeService float64) int {
	percent := 0
	highestMet := -1.0
	for _, tier := range t.RefundSchedule {
		if hoursBeforeService >= tier.MinHoursBefore && tier.MinHoursBefore > highestMet {
			highestMet = tier.MinHoursBefore
			percent = tier.RefundPercent
		}
	}
	return percent
}

// SLAFor returns the response/resolution deadlines for a given priority.
func (t Tables) SLAFor(priority string) (SLATier, bool) {
	tier, ok := t.SLAByPriority[priority]
	return tier, ok
}

// Default returns the spec.md §4.6/§4.7 default tables, used when no
// config file is present (e.g. in tests) or as a base overridden by
// whatever the file supplies.
func Default() Tables {
	return Tables{
		RefundSchedule: []RefundTier{
			{MinHoursBefore: 0, RefundPercent: 0},
			{MinHoursBefore: 2, RefundPercent: 50},
			{MinHoursBefore: 4, RefundPercent: 100},
		},
		SLAByPriority: map[string]SLATier{
			"critical": {ResponseWithin: 1 * time.Hour, ResolutionWithin: 8 * time.Hour},
			"high":     {ResponseWithin: 4 * time.Hour, ResolutionWithin: 24 * time.Hour},
			"medium":   {ResponseWithin: 12 * time.Hour, ResolutionWithin: 72 * time.Hour},
			"low":      {ResponseWithin: 24 * time.Hour, ResolutionWithin: 168 * time.Hour},
		},
		AlertRules: map[string]AlertRule{
			"sla_scanner":      {ScanInterval: 5 * time.Minute, DedupWindow: 24 * time.Hour, Severity: "warning"},
			"critical_scanner": {ScanInterval: 10 * time.Minute, DedupWindow: 24 * time.Hour, Severity: "critical"},
		},
	}
}

// Load reads the policy tables from a YAML file at path, falling back to
// Default() for any section the file omits.
func Load(path string) (Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, errors.Wrap(err, "reading policy config")
	}

	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return t, errors.Wrap(err, "parsing policy config")
	}

	if len(f.RefundSchedule) > 0 {
		t.RefundSchedule = f.RefundSchedule
	}
	if len(f.SLAByPriority) > 0 {
		t.SLAByPriority = make(map[string]SLATier, len(f.SLAByPriority))
		for k, v := range f.SLAByPriority {
			t.SLAByPriority[k] = SLATier{
				ResponseWithin:   time.Duration(v.ResponseHours * float64(time.Hour)),
				ResolutionWithin: time.Duration(v.ResolutionHours * float64(time.Hour)),
			}
		}
	}
	if len(f.AlertRules) > 0 {
		t.AlertRules = make(map[string]AlertRule, len(f.AlertRules))
		for k, v := range f.AlertRules {
			t.AlertRules[k] = AlertRule{
				ScanInterval: time.Duration(v.ScanIntervalSeconds) * time.Second,
				DedupWindow:  time.Duration(v.DedupWindowSeconds) * time.Second,
				Severity:     v.Severity,
			}
		}
	}

	return t, nil
}
