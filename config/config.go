package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Override keys
const (
	FtrackServer        = "FTRACK_SERVER"
	FtrackAPIKey        = "FTRACK_APIKEY"
	FtrackAPIUser       = "FTRACK_APIUSER"
	DBURI               = "DB_URI"
	ProjectName         = "PROJECT_NAME"
	SequenceName        = "SEQUENCE_NAME"
	Projects            = "PROJECTS"
	SequencesPerProject = "SEQUENCES_PER_PROJECT"
	ShotsPerSequence    = "SHOTS_PER_SEQUENCES"
	TasksPerShot        = "TASKS_PER_SHOT"
	ResultModeKey       = "RESULT_MODE"
)

var keys = []string{
	FtrackServer, FtrackAPIKey, FtrackAPIUser, DBURI, ProjectName, SequenceName,
	Projects, SequencesPerProject, ShotsPerSequence, TasksPerShot, ResultModeKey,
}

var ErrUnknownKey = errors.New("unknown configuration key")

// ResultMode selects whether a query retrieves the first matching record or all of them.
type ResultMode string

const (
	ModeAll   ResultMode = "all"
	ModeFirst ResultMode = "first"
)

// Quantities of fixture entities to generate.
type Quantities struct {
	Projects            int `yaml:"PROJECTS" validate:"min=0"`
	SequencesPerProject int `yaml:"SEQUENCES_PER_PROJECT" validate:"min=0"`
	ShotsPerSequence    int `yaml:"SHOTS_PER_SEQUENCES" validate:"min=0"`
	TasksPerShot        int `yaml:"TASKS_PER_SHOT" validate:"min=0"`
}

// Totals returns the number of projects, sequences, shots and tasks the quantities describe.
func (q Quantities) Totals() (projects, sequences, shots, tasks int) {
	projects = q.Projects
	sequences = projects * q.SequencesPerProject
	shots = sequences * q.ShotsPerSequence
	tasks = shots * q.TasksPerShot
	return
}

type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

type ReportConfig struct {
	Pushgateway string       `yaml:"pushgateway" validate:"omitempty,url"`
	Influx      InfluxConfig `yaml:"influx"`
}

// Config is passed explicitly to every scenario.
type Config struct {
	FtrackServer  string     `yaml:"FTRACK_SERVER" validate:"omitempty,url"`
	FtrackAPIKey  string     `yaml:"FTRACK_APIKEY"`
	FtrackAPIUser string     `yaml:"FTRACK_APIUSER"`
	DBURI         string     `yaml:"DB_URI"`
	ProjectName   string     `yaml:"PROJECT_NAME" validate:"required"`
	SequenceName  string     `yaml:"SEQUENCE_NAME" validate:"required"`
	ResultMode    ResultMode `yaml:"RESULT_MODE" validate:"oneof=all first"`
	Quantities    `yaml:",inline"`
	Report        ReportConfig `yaml:"report"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when nothing is overridden. Credentials have no
// default and must be supplied.
func Default() *Config {
	return &Config{
		FtrackAPIUser: os.Getenv("FTRACK_API_USER"),
		ProjectName:   "perf_test_1",
		SequenceName:  "seq_1",
		ResultMode:    ModeAll,
		Quantities: Quantities{
			Projects:            10,
			SequencesPerProject: 10,
			ShotsPerSequence:    50,
			TasksPerShot:        5,
		},
	}
}

// Keys returns the keys accepted by Set, in a stable order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// Load reads a yaml file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Set updates the entry named by key.
func (c *Config) Set(key, value string) error {
	switch key {
	case FtrackServer:
		c.FtrackServer = value
	case FtrackAPIKey:
		c.FtrackAPIKey = value
	case FtrackAPIUser:
		c.FtrackAPIUser = value
	case DBURI:
		c.DBURI = value
	case ProjectName:
		c.ProjectName = value
	case SequenceName:
		c.SequenceName = value
	case ResultModeKey:
		c.ResultMode = ResultMode(value)
	case Projects:
		return setInt(&c.Projects, key, value)
	case SequencesPerProject:
		return setInt(&c.SequencesPerProject, key, value)
	case ShotsPerSequence:
		return setInt(&c.ShotsPerSequence, key, value)
	case TasksPerShot:
		return setInt(&c.TasksPerShot, key, value)
	default:
		return fmt.Errorf("%w %q: you must provide one of %s", ErrUnknownKey, key, strings.Join(keys, ", "))
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = v
	return nil
}

// Override applies KEY=value items in order and echoes each one to out. Secret values are
// masked.
func (c *Config) Override(items []string, out io.Writer) error {
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("invalid override %q, expected KEY=value", item)
		}
		if err := c.Set(key, value); err != nil {
			return err
		}

		shown, err := c.Get(key)
		if err != nil {
			return err
		}
		if IsSecret(key) {
			shown = "****"
		}
		fmt.Fprintf(out, "Overriding %s with %s\n", key, shown)
	}
	return nil
}

// Get returns the textual value of a key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case FtrackServer:
		return c.FtrackServer, nil
	case FtrackAPIKey:
		return c.FtrackAPIKey, nil
	case FtrackAPIUser:
		return c.FtrackAPIUser, nil
	case DBURI:
		return c.DBURI, nil
	case ProjectName:
		return c.ProjectName, nil
	case SequenceName:
		return c.SequenceName, nil
	case ResultModeKey:
		return string(c.ResultMode), nil
	case Projects:
		return strconv.Itoa(c.Projects), nil
	case SequencesPerProject:
		return strconv.Itoa(c.SequencesPerProject), nil
	case ShotsPerSequence:
		return strconv.Itoa(c.ShotsPerSequence), nil
	case TasksPerShot:
		return strconv.Itoa(c.TasksPerShot), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
}

// IsSecret reports whether the value of key should not be logged.
func IsSecret(key string) bool {
	return key == FtrackAPIKey || key == DBURI
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// RequireFtrack checks the settings needed to reach the vendor API.
func (c *Config) RequireFtrack() error {
	if err := validate.Var(c.FtrackServer, "required,url"); err != nil {
		return fmt.Errorf("%s: %w", FtrackServer, err)
	}
	if err := validate.Var(c.FtrackAPIKey, "required"); err != nil {
		return fmt.Errorf("%s: %w", FtrackAPIKey, err)
	}
	return nil
}

// RequireDatabase checks the settings needed to reach the database directly.
func (c *Config) RequireDatabase() error {
	if err := validate.Var(c.DBURI, "required"); err != nil {
		return fmt.Errorf("%s: %w", DBURI, err)
	}
	return nil
}
