package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileOverlay mirrors the subset of Config that is awkward to express as
// flat env vars, namely the RRF channel weights as a single named group.
type fileOverlay struct {
	Recall struct {
		WeightVector   *float64 `yaml:"weight_vector"`
		WeightLexical  *float64 `yaml:"weight_lexical"`
		WeightTemporal *float64 `yaml:"weight_temporal"`
	} `yaml:"recall"`
}

// ApplyFile overlays YAML config values on top of c, for any field the
// environment did not already set. A missing file is not an error; env
// vars and defaults are sufficient on their own.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if v := overlay.Recall.WeightVector; v != nil && os.Getenv("HIPPOS_RRF_WEIGHT_VECTOR") == "" {
		c.Recall.WeightVector = *v
	}
	if v := overlay.Recall.WeightLexical; v != nil && os.Getenv("HIPPOS_RRF_WEIGHT_LEXICAL") == "" {
		c.Recall.WeightLexical = *v
	}
	if v := overlay.Recall.WeightTemporal; v != nil && os.Getenv("HIPPOS_RRF_WEIGHT_TEMPORAL") == "" {
		c.Recall.WeightTemporal = *v
	}
	return nil
}
