package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// SeedMonitor монитор из файла начальной загрузки
type SeedMonitor struct {
	Name       string         `yaml:"name"`
	Owner      string         `yaml:"owner"`
	URL        string         `yaml:"url"`
	Interval   time.Duration  `yaml:"interval"`
	Paused     bool           `yaml:"paused"`
	Assertions *SeedAssertion `yaml:"assertions"`
	SLO        *SeedSLO       `yaml:"slo"`
}

type SeedAssertion struct {
	AcceptedStatusCodes string        `yaml:"accepted_status_codes"`
	ContentType         string        `yaml:"content_type"`
	BodyContains        string        `yaml:"body_contains"`
	FollowRedirects     bool          `yaml:"follow_redirects"`
	MaxRedirects        int           `yaml:"max_redirects"`
	Timeout             time.Duration `yaml:"timeout"`
}

type SeedSLO struct {
	TargetPercent float64 `yaml:"target_percent"`
	WindowDays    int     `yaml:"window_days"`
}

type seedFile struct {
	Monitors []SeedMonitor `yaml:"monitors"`
}

// LoadSeedMonitors читает YAML со списком мониторов
func LoadSeedMonitors(path string) ([]SeedMonitor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeedMonitors(data)
}

func ParseSeedMonitors(data []byte) ([]SeedMonitor, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, m := range file.Monitors {
		if m.URL == "" {
			return nil, fmt.Errorf("seed monitor %d: url is required", i)
		}
		if m.Interval <= 0 {
			file.Monitors[i].Interval = time.Minute
		}
		if m.Owner == "" {
			file.Monitors[i].Owner = "seed"
		}
	}
	return file.Monitors, nil
}
