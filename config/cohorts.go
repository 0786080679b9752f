package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

// WindowConfig is a connection window [Start, End) in hours. When Start is
// after End the window runs past the end of the horizon and continues from
// hour zero, so 18..8 means 18:00 to 08:00 overnight.
type WindowConfig struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Hours expands the window for the given horizon in increasing order.
func (w WindowConfig) Hours(horizon int) ([]int, error) {
	if w.Start < 0 || w.Start >= horizon || w.End < 0 || w.End > horizon {
		return nil, fmt.Errorf("window %d..%d outside horizon %d", w.Start, w.End, horizon)
	}
	if w.Start == w.End {
		return nil, fmt.Errorf("window %d..%d is empty", w.Start, w.End)
	}
	var hours []int
	if w.Start < w.End {
		for h := w.Start; h < w.End; h++ {
			hours = append(hours, h)
		}
		return hours, nil
	}
	for h := 0; h < w.End; h++ {
		hours = append(hours, h)
	}
	for h := w.Start; h < horizon; h++ {
		hours = append(hours, h)
	}
	return hours, nil
}

// CohortConfig describes a cohort in a configuration file. Exactly one of
// AvailableHours and Window must be set.
type CohortConfig struct {
	Name           string        `json:"name" yaml:"name"`
	Capacity       float64       `json:"capacity" yaml:"capacity"`
	RateMax        float64       `json:"rate_max" yaml:"rate_max"`
	AvailableHours []int         `json:"available_hours" yaml:"available_hours"`
	Window         *WindowConfig `json:"window" yaml:"window"`
	Sellback       bool          `json:"sellback" yaml:"sellback"`
	Elasticity     float64       `json:"price_elasticity" yaml:"price_elasticity"`
	InitialStorage float64       `json:"initial_storage" yaml:"initial_storage"`
	TargetStorage  *float64      `json:"target_storage" yaml:"target_storage"`
}

// ToCohort resolves the availability and validates the cohort.
func (c CohortConfig) ToCohort(horizon int) (model.Cohort, error) {
	out := model.Cohort{
		Name:           c.Name,
		Capacity:       c.Capacity,
		RateMax:        c.RateMax,
		AvailableHours: c.AvailableHours,
		Sellback:       c.Sellback,
		Elasticity:     c.Elasticity,
		InitialStorage: c.InitialStorage,
		TargetStorage:  c.TargetStorage,
	}
	if c.Window != nil {
		if len(c.AvailableHours) > 0 {
			return model.Cohort{}, &model.ConfigError{Cohort: c.Name, Field: "window", Reason: "set either available_hours or window"}
		}
		hours, err := c.Window.Hours(horizon)
		if err != nil {
			return model.Cohort{}, &model.ConfigError{Cohort: c.Name, Field: "window", Reason: err.Error()}
		}
		out.AvailableHours = hours
	}
	if err := out.Validate(horizon); err != nil {
		return model.Cohort{}, err
	}
	return out, nil
}

// ToCohorts converts and validates a list of cohort configurations.
func ToCohorts(cfgs []CohortConfig, horizon int) ([]model.Cohort, error) {
	out := make([]model.Cohort, 0, len(cfgs))
	for _, c := range cfgs {
		m, err := c.ToCohort(horizon)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type cohortFile struct {
	Cohorts []CohortConfig `json:"cohorts" yaml:"cohorts"`
}

// DecodeCohorts reads a cohort list in the given format ("yaml" or "json").
// The document is either a bare list or an object with a cohorts key.
// Unknown fields are rejected.
func DecodeCohorts(r io.Reader, format string) ([]CohortConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if len(trimmed) > 0 && trimmed[0] == '-' {
			var list []CohortConfig
			err = decodeYAMLStrict(data, &list)
			return list, err
		}
		var f cohortFile
		err = decodeYAMLStrict(data, &f)
		return f.Cohorts, err
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []CohortConfig
			err = dec.Decode(&list)
			return list, err
		}
		var f cohortFile
		err = dec.Decode(&f)
		return f.Cohorts, err
	default:
		return nil, fmt.Errorf("unsupported cohort format: %s", format)
	}
}

func decodeYAMLStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// LoadCohorts reads a cohort file, picking the format from its extension.
func LoadCohorts(path string) ([]CohortConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	cohorts, err := DecodeCohorts(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cohorts, nil
}
