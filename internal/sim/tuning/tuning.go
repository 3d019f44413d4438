package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries the fallbacks used when a content document leaves a
// registry-wide setting out of its Balance table.
type Tuning struct {
	LocalPanicHighThreshold     int     `yaml:"local_panic_high_threshold"`
	RandomEventBaseProb         float64 `yaml:"random_event_base_prob"`
	DefaultAutoResolveAfterDays int     `yaml:"default_auto_resolve_after_days"`
	DefaultIgnoreApplyMode      string  `yaml:"default_ignore_apply_mode"`

	Tasks TaskDefaults `yaml:"tasks"`
}

type TaskDefaults struct {
	AgentSlotsMin  int     `yaml:"agent_slots_min"`
	AgentSlotsMax  int     `yaml:"agent_slots_max"`
	BaseDays       int     `yaml:"base_days"`
	ProgressPerDay float32 `yaml:"progress_per_day"`
}

func Defaults() Tuning {
	return Tuning{
		LocalPanicHighThreshold:     6,
		RandomEventBaseProb:         0.15,
		DefaultAutoResolveAfterDays: 0,
		DefaultIgnoreApplyMode:      "ApplyDailyKeep",
		Tasks: TaskDefaults{
			AgentSlotsMin:  1,
			AgentSlotsMax:  4,
			BaseDays:       3,
			ProgressPerDay: 0.25,
		},
	}
}

// Load overlays the YAML file at path onto Defaults. Keys absent from the
// file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.LocalPanicHighThreshold < 0 {
		return fmt.Errorf("local_panic_high_threshold must be >= 0")
	}
	if t.RandomEventBaseProb < 0 || t.RandomEventBaseProb > 1 {
		return fmt.Errorf("random_event_base_prob must be in [0,1]")
	}
	if t.DefaultAutoResolveAfterDays < 0 {
		return fmt.Errorf("default_auto_resolve_after_days must be >= 0")
	}
	if t.Tasks.AgentSlotsMin < 0 || t.Tasks.AgentSlotsMax < t.Tasks.AgentSlotsMin {
		return fmt.Errorf("tasks.agent_slots_min/max out of order")
	}
	return nil
}
