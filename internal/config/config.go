package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultRevisionAgeDays = 7
	defaultRevisionQuery   = "active"
	defaultTaskOrder       = "priority"
	defaultOutputDir       = "reports"
)

type Config struct {
	Phabricator PhabricatorConfig `yaml:"phabricator"`
	Slack       SlackConfig       `yaml:"slack"`
	Reports     ReportsConfig     `yaml:"reports"`
	Output      OutputConfig      `yaml:"output"`
}

type PhabricatorConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

type ReportsConfig struct {
	RevisionStatus RevisionStatusConfig `yaml:"revision_status"`
	UpcomingTasks  UpcomingTasksConfig  `yaml:"upcoming_tasks"`
}

type RevisionStatusConfig struct {
	QueryKey string `yaml:"query_key"`
	AgeDays  int    `yaml:"age_days"`
}

type UpcomingTasksConfig struct {
	ProjectName string   `yaml:"project_name"`
	ColumnNames []string `yaml:"column_names"`
	Order       string   `yaml:"order"`

	// ExcludedTaskIDs are task IDs never shown in the report.
	ExcludedTaskIDs []int `yaml:"excluded_task_ids"`

	// ExcludedNamePatterns are regular expressions matched against
	// task names; matches are excluded. They compile into the report's
	// custom exclusion predicates at wiring time.
	ExcludedNamePatterns []string `yaml:"excluded_name_patterns"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LoadFromEnv builds a config from environment variables and defaults.
func LoadFromEnv() *Config {
	cfg := &Config{
		Phabricator: PhabricatorConfig{
			URL:   os.Getenv("PHABRICATOR_URL"),
			Token: os.Getenv("CONDUIT_API_TOKEN"),
		},
		Slack: SlackConfig{
			Token:   os.Getenv("SLACK_API_TOKEN"),
			Channel: os.Getenv("SLACK_CHANNEL"),
		},
		Reports: ReportsConfig{
			RevisionStatus: RevisionStatusConfig{
				QueryKey: getEnvOrDefault("REVISION_QUERY_KEY", defaultRevisionQuery),
				AgeDays:  getEnvIntOrDefault("REVISION_AGE_DAYS", defaultRevisionAgeDays),
			},
			UpcomingTasks: UpcomingTasksConfig{
				ProjectName: os.Getenv("TASKS_PROJECT_NAME"),
				Order:       getEnvOrDefault("TASKS_ORDER", defaultTaskOrder),
			},
		},
		Output: OutputConfig{
			Directory: getEnvOrDefault("OUTPUT_DIR", defaultOutputDir),
		},
	}

	if columns := os.Getenv("TASKS_COLUMN_NAMES"); columns != "" {
		names := strings.Split(columns, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		cfg.Reports.UpcomingTasks.ColumnNames = names
	}

	return cfg
}

// Load builds the env config, then overlays the YAML file at path if
// one is given. File values win over env values.
func Load(path string) (*Config, error) {
	cfg := LoadFromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Phabricator.URL == "" {
		return fmt.Errorf("phabricator URL missing (set PHABRICATOR_URL or phabricator.url)")
	}
	if c.Phabricator.Token == "" {
		return fmt.Errorf("conduit token missing (set CONDUIT_API_TOKEN or phabricator.token)")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
