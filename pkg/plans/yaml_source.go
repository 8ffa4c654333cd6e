package plans

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlSource loads the tier catalog from a YAML file. The file is read on
// every Load call; since NewCatalog loads exactly once at startup, the file
// is effectively read once per process.
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading tiers from the YAML file at path.
//
// File format:
//
//	tiers:
//	  - id: pro
//	    name: Pro
//	    price_id: pri_abc123
//	    interval: monthly
//	    trial_days: 14
//	    retention_days: 90
//	    price: {amount: 2900, currency: USD}
//	    limits:
//	      api_call: 10000
//	      export: 500
//	      sentiment_analysis: 2500
func NewYAMLSource(path string) Source {
	if path == "" {
		panic("plans: YAML source path is required")
	}
	return &yamlSource{path: path}
}

type yamlTier struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description"`
	PriceID       string           `yaml:"price_id"`
	Interval      string           `yaml:"interval"`
	TrialDays     int              `yaml:"trial_days"`
	RetentionDays int              `yaml:"retention_days"`
	Price         Money            `yaml:"price"`
	Limits        map[string]int64 `yaml:"limits"`
}

type yamlFile struct {
	Tiers []yamlTier `yaml:"tiers"`
}

func (s *yamlSource) Load(ctx context.Context) (map[TierID]Tier, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file %s: %w", s.path, err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tiers file %s: %w", s.path, err)
	}

	if len(file.Tiers) == 0 {
		return nil, errors.New("tiers file defines no tiers")
	}

	tiers := make(map[TierID]Tier, len(file.Tiers))
	for _, yt := range file.Tiers {
		limits := make(map[UsageType]int64, len(yt.Limits))
		for name, limit := range yt.Limits {
			limits[UsageType(name)] = limit
		}

		interval := BillingInterval(yt.Interval)
		if yt.Interval == "" {
			interval = IntervalNone
		}

		tiers[TierID(yt.ID)] = Tier{
			ID:          TierID(yt.ID),
			Name:        yt.Name,
			Description: yt.Description,
			PriceID:     yt.PriceID,
			Limits:      limits,
			Price:       yt.Price,
			Interval:    interval,
			TrialDays:   yt.TrialDays,
			Retention:   time.Duration(yt.RetentionDays) * 24 * time.Hour,
		}
	}

	return tiers, nil
}
