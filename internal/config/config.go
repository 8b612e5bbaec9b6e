package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Schedule policies for periodic care tasks.
const (
	PolicyMonths    = "months"
	PolicyFixedDays = "fixed-days"
)

// Config models careline.yml.
type Config struct {
	Schedule ScheduleConfig  `yaml:"schedule"`
	Care     CareConfig      `yaml:"care"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// ScheduleConfig selects how periodic tasks are laid out after the
// contract anchor date.
type ScheduleConfig struct {
	// Policy is months (anchor + k calendar months, k=1..Months) or
	// fixed-days (anchor + each offset in FixedDayOffsets).
	Policy          string `yaml:"policy"`
	Months          int    `yaml:"months"`
	FixedDayOffsets []int  `yaml:"fixed_day_offsets"`
	// FirstLessonLeadDays is the default gap between the anchor date and
	// the first-lesson care date when the contract does not override it.
	FirstLessonLeadDays int `yaml:"first_lesson_lead_days"`
}

type CareConfig struct {
	// RetryAttempts bounds transparent retries of the generation batch.
	RetryAttempts int `yaml:"retry_attempts"`
	// Timezone for day-granularity status classification ("Local" or an
	// IANA name such as Asia/Taipei).
	Timezone string `yaml:"timezone"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run cl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Schedule.Policy {
	case PolicyMonths:
		if c.Schedule.Months <= 0 {
			return fmt.Errorf("config.schedule.months must be positive for policy %s", PolicyMonths)
		}
	case PolicyFixedDays:
		if len(c.Schedule.FixedDayOffsets) == 0 {
			return fmt.Errorf("config.schedule.fixed_day_offsets is required for policy %s", PolicyFixedDays)
		}
		prev := 0
		for _, d := range c.Schedule.FixedDayOffsets {
			if d <= prev {
				return fmt.Errorf("config.schedule.fixed_day_offsets must be positive and ascending")
			}
			prev = d
		}
	default:
		return fmt.Errorf("config.schedule.policy must be %s or %s", PolicyMonths, PolicyFixedDays)
	}
	if c.Schedule.FirstLessonLeadDays < 0 {
		return fmt.Errorf("config.schedule.first_lesson_lead_days must not be negative")
	}
	if c.Care.RetryAttempts <= 0 {
		return fmt.Errorf("config.care.retry_attempts must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config.care.timezone: %w", err)
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Location resolves the configured timezone for day-boundary math.
func (c *Config) Location() (*time.Location, error) {
	if c.Care.Timezone == "" || c.Care.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Care.Timezone)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "careline.yml")
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `schedule:
  # months: one periodic task per calendar month after the anchor date.
  # fixed-days: one periodic task per day offset below.
  policy: months
  months: 24
  fixed_day_offsets: [20, 40, 60, 120, 180, 240]
  first_lesson_lead_days: 7

care:
  retry_attempts: 3
  timezone: Local
`
