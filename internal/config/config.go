package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Portal      PortalConfig      `yaml:"portal"`
	Redis       RedisConfig       `yaml:"redis"`
	Features    FeaturesConfig    `yaml:"features"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PortalConfig struct {
	BaseURL       string         `yaml:"base_url"`
	Username      string         `yaml:"username"`
	Password      string         `yaml:"password"`
	InstitutionID *int64         `yaml:"institution_id"`
	Schools       []SchoolConfig `yaml:"schools"`
	TermID        int64          `yaml:"term_id"`
	Timeout       time.Duration  `yaml:"timeout"`
}

// SchoolConfig selects one school of a multi-school parent account.
type SchoolConfig struct {
	ID    int64  `yaml:"id"`
	Label string `yaml:"label"`
}

type RedisConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	KeyPrefix       string `yaml:"key_prefix"`
	HomeworkChannel string `yaml:"homework_channel"`
	GradeChannel    string `yaml:"grade_channel"`
}

type FeaturesConfig struct {
	Homework *bool `yaml:"homework"`
	Schedule *bool `yaml:"schedule"`
	Exams    *bool `yaml:"exams"`
	Grades   *bool `yaml:"grades"`
}

type RefreshConfig struct {
	Interval        time.Duration `yaml:"interval"`
	RunOnStart      bool          `yaml:"run_on_start"`
	CooldownMinutes int           `yaml:"cooldown_minutes"`
	ScheduleWeeks   int           `yaml:"schedule_weeks"`
	ExamsPastDays   int           `yaml:"exams_past_days"`
	ExamsFutureDays int           `yaml:"exams_future_days"`
}

type DiagnosticsConfig struct {
	DebugDumps bool   `yaml:"debug_dumps"`
	DumpDir    string `yaml:"dump_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DefaultRefreshInterval = time.Hour
	DefaultCooldownMinutes = 5
	MinCooldownMinutes     = 5
	MaxCooldownMinutes     = 30
	DefaultScheduleWeeks   = 2
	MinScheduleWeeks       = 1
	MaxScheduleWeeks       = 3
	DefaultExamsPastDays   = 30
	DefaultExamsFutureDays = 180
	DefaultPortalTimeout   = 30 * time.Second
	DefaultTermID          = 28592
)

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Portal.Username == "" || config.Portal.Password == "" {
		return nil, fmt.Errorf("portal username and password are required")
	}

	return &config, nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) PortalTimeout() time.Duration {
	if c.Portal.Timeout <= 0 {
		return DefaultPortalTimeout
	}
	return c.Portal.Timeout
}

func (c *Config) TermID() int64 {
	if c.Portal.TermID == 0 {
		return DefaultTermID
	}
	return c.Portal.TermID
}

func (c *Config) RefreshInterval() time.Duration {
	if c.Refresh.Interval <= 0 {
		return DefaultRefreshInterval
	}
	return c.Refresh.Interval
}

// CooldownMinutes clamps the configured manual-refresh cooldown into the
// allowed range, falling back to the default when unset.
func (c *Config) CooldownMinutes() int {
	m := c.Refresh.CooldownMinutes
	if m == 0 {
		m = DefaultCooldownMinutes
	}
	if m < MinCooldownMinutes {
		m = MinCooldownMinutes
	}
	if m > MaxCooldownMinutes {
		m = MaxCooldownMinutes
	}
	return m
}

func (c *Config) ScheduleWeeks() int {
	w := c.Refresh.ScheduleWeeks
	if w == 0 {
		w = DefaultScheduleWeeks
	}
	if w < MinScheduleWeeks {
		w = MinScheduleWeeks
	}
	if w > MaxScheduleWeeks {
		w = MaxScheduleWeeks
	}
	return w
}

func (c *Config) ExamsPastDays() int {
	if c.Refresh.ExamsPastDays <= 0 {
		return DefaultExamsPastDays
	}
	return c.Refresh.ExamsPastDays
}

func (c *Config) ExamsFutureDays() int {
	if c.Refresh.ExamsFutureDays <= 0 {
		return DefaultExamsFutureDays
	}
	return c.Refresh.ExamsFutureDays
}

// EnabledFeatures resolves the per-feature toggles; features left out of
// the config are enabled.
func (c *Config) EnabledFeatures() map[string]bool {
	enabled := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}
	return map[string]bool{
		"homework": enabled(c.Features.Homework),
		"schedule": enabled(c.Features.Schedule),
		"exams":    enabled(c.Features.Exams),
		"grades":   enabled(c.Features.Grades),
	}
}
