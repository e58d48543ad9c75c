package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/username/tokentracker/src/models"
	"gopkg.in/yaml.v3"
)

//go:embed fees.yaml
var defaultFeeSchedule []byte

type feeSchedule struct {
	Fees []models.FeeRule `yaml:"fees"`
}

// LoadFeeSchedule reads the fee rules from path, or the built-in schedule
// when path is empty.
func LoadFeeSchedule(path string) ([]models.FeeRule, error) {
	data := defaultFeeSchedule
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fee schedule '%s': %w", path, err)
		}
		data = b
	}
	return ParseFeeSchedule(data)
}

func ParseFeeSchedule(data []byte) ([]models.FeeRule, error) {
	var schedule feeSchedule
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("failed to parse fee schedule: %w", err)
	}
	for i, rule := range schedule.Fees {
		if rule.Name == "" {
			return nil, fmt.Errorf("fee rule %d has no name", i)
		}
		if rule.Kind != models.FeeKindFixed && rule.Kind != models.FeeKindPercentage {
			return nil, fmt.Errorf("fee rule '%s' has unknown kind '%s'", rule.Name, rule.Kind)
		}
		if rule.Value < 0 {
			return nil, fmt.Errorf("fee rule '%s' has negative value", rule.Name)
		}
	}
	return schedule.Fees, nil
}
