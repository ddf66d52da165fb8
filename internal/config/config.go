package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"termcal/internal/safefile"
)

// DefaultPath is where the config lives unless --config says otherwise.
const DefaultPath = "~/.config/termcal/config.yaml"

// ICSConfig describes a single calendar resource: a URL, an .ics file or a
// directory scanned for .ics files.
type ICSConfig struct {
	Path string `yaml:"path" json:"path" validate:"required"`
	// Name is a human-friendly label used in logs.
	Name string `yaml:"name" json:"name"`
}

// NotionConfig controls the remote task database. The token and database
// id come from the environment, never from the file.
type NotionConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Responsible string `yaml:"responsible" json:"responsible"`
	BaseURL     string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	// TimeoutSeconds bounds every remote call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=1,lte=120"`

	Token      string `yaml:"-" json:"-"`
	DatabaseID string `yaml:"-" json:"-"`
}

// Ready reports whether the synchronizer can talk to the remote service.
func (n NotionConfig) Ready() bool {
	return n.Enabled && n.Token != "" && n.DatabaseID != ""
}

type HolidayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Country is an ISO 3166 alpha-2 code.
	Country string `yaml:"country" json:"country" validate:"omitempty,oneof=us gb de fr ca"`
}

type BirthdayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Abook is the abook(1) address book file.
	Abook string `yaml:"abook" json:"abook"`
}

// BasicAuthConfig protects every HTTP endpoint except /health. Empty
// credentials disable it.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	// File receives log output; the interactive UI owns the terminal.
	File string `yaml:"file" json:"file"`
}

// Config is the top-level application configuration.
type Config struct {
	TasksFile  string `yaml:"tasks_file" json:"tasks_file" validate:"required"`
	EventsFile string `yaml:"events_file" json:"events_file" validate:"required"`
	CacheDir   string `yaml:"cache_dir" json:"cache_dir" validate:"required"`

	// Calendar is the display calendar: "gregorian" or "persian".
	Calendar string `yaml:"calendar" json:"calendar" validate:"oneof=gregorian persian"`
	// Timezone is the IANA zone imported event times are shown in.
	Timezone  string `yaml:"timezone" json:"timezone"`
	WeekStart string `yaml:"week_start" json:"week_start" validate:"oneof=monday sunday"`

	// RefreshCron schedules reloading of imported calendars and remote tasks.
	// Empty disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the address for `termcal serve`.
	Listen    string           `yaml:"listen" json:"listen" validate:"required,hostname_port"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	ICSEvents []ICSConfig `yaml:"ics_events" json:"ics_events" validate:"dive"`
	ICSTasks  []ICSConfig `yaml:"ics_tasks" json:"ics_tasks" validate:"dive"`

	Holidays  HolidayConfig  `yaml:"holidays" json:"holidays"`
	Birthdays BirthdayConfig `yaml:"birthdays" json:"birthdays"`
	Notion    NotionConfig   `yaml:"notion" json:"notion"`

	OneTimerAtATime       bool `yaml:"one_timer_at_a_time" json:"one_timer_at_a_time"`
	AskConfirmations      bool `yaml:"ask_confirmations" json:"ask_confirmations"`
	AskConfirmationToQuit bool `yaml:"ask_confirmation_to_quit" json:"ask_confirmation_to_quit"`

	Log LogConfig `yaml:"log" json:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		TasksFile:             "~/.config/termcal/tasks.csv",
		EventsFile:            "~/.config/termcal/events.csv",
		CacheDir:              "~/.cache/termcal",
		Calendar:              "gregorian",
		Timezone:              "Local",
		WeekStart:             "monday",
		RefreshCron:           "*/15 * * * *",
		Listen:                "127.0.0.1:8080",
		ICSEvents:             []ICSConfig{},
		ICSTasks:              []ICSConfig{},
		Holidays:              HolidayConfig{Country: "us"},
		Birthdays:             BirthdayConfig{Abook: "~/.abook/addressbook"},
		Notion:                NotionConfig{BaseURL: "https://api.notion.com", TimeoutSeconds: 10},
		AskConfirmations:      true,
		AskConfirmationToQuit: true,
		Log:                   LogConfig{Level: "info", File: "~/.cache/termcal/termcal.log"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.TasksFile == "" {
		c.TasksFile = def.TasksFile
	}
	if c.EventsFile == "" {
		c.EventsFile = def.EventsFile
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	switch c.Calendar {
	case "gregorian", "persian":
	default:
		c.Calendar = def.Calendar
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.ICSEvents == nil {
		c.ICSEvents = []ICSConfig{}
	}
	if c.ICSTasks == nil {
		c.ICSTasks = []ICSConfig{}
	}
	if c.Holidays.Country == "" {
		c.Holidays.Country = def.Holidays.Country
	}
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = def.Notion.BaseURL
	}
	if c.Notion.TimeoutSeconds <= 0 {
		c.Notion.TimeoutSeconds = def.Notion.TimeoutSeconds
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks struct constraints after normalization.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
//
// Secrets are read from the environment afterwards, see LoadEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv reads NOTION_TOKEN and NOTION_DATABASE_ID, first loading any of
// the given .env files that exist. Variables already set win.
func (c *Config) LoadEnv(envFiles ...string) error {
	for _, f := range envFiles {
		p, err := homedir.Expand(f)
		if err != nil {
			return err
		}
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	c.Notion.Token = getEnv("NOTION_TOKEN", c.Notion.Token)
	c.Notion.DatabaseID = getEnv("NOTION_DATABASE_ID", c.Notion.DatabaseID)
	c.Notion.Responsible = getEnv("NOTION_RESPONSIBLE", c.Notion.Responsible)
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// Save writes the configuration atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return safefile.WriteFile(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Expand resolves a leading ~ in a configured path. Paths that cannot be
// expanded are returned unchanged.
func Expand(p string) string {
	out, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return filepath.Clean(out)
}
