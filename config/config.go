// Package config gathers the tunables of a NeuroTrack process.
//
// Values come from Default, then from an optional YAML file, then from .env
// files, then from NEUROTRACK_* environment variables. Command line flags are
// applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "NEUROTRACK_"

// Config holds the settings of the session core and its outer surfaces.
type Config struct {
	SampleInterval      time.Duration `yaml:"sample_interval"`
	WaveformLength      int           `yaml:"waveform_length"`
	RatioHistoryLength  int           `yaml:"ratio_history_length"`
	CalibrationDuration time.Duration `yaml:"calibration_duration"`
	GuidedDuration      time.Duration `yaml:"guided_duration"`
	Seed                int64         `yaml:"seed"`
	Simulation          bool          `yaml:"simulation"`
	ConnectionStatus    string        `yaml:"connection_status"`

	MonitorPort      int `yaml:"monitor_port"`
	StreamDecimation int `yaml:"stream_decimation"`
	SummaryInterval  int `yaml:"summary_interval"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	Advertise bool `yaml:"advertise"`
}

// Default returns the configuration of a standard session.
func Default() Config {
	return Config{
		SampleInterval:      4 * time.Millisecond,
		WaveformLength:      500,
		RatioHistoryLength:  250,
		CalibrationDuration: 180 * time.Second,
		GuidedDuration:      90 * time.Second,
		Seed:                1,
		Simulation:          true,
		ConnectionStatus:    "Simulated",
		MonitorPort:         8080,
		StreamDecimation:    25,
		SummaryInterval:     250,
		RedisPrefix:         "neurotrack",
	}
}

// Load returns the default configuration overridden by the YAML file at
// configFile, the given .env files and the environment. An empty configFile
// and missing .env files are skipped. Variables already set in the
// environment win over the .env files.
func Load(configFile string, envFiles ...string) (Config, error) {
	c := Default()

	if configFile != "" {
		if err := c.ApplyFile(configFile); err != nil {
			return Config{}, err
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return c, c.Validate()
}

// ApplyFile overrides the fields present in a YAML file. Durations are
// written the Go way, such as "90s" or "4ms".
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}

	return nil
}

// Marshal renders the configuration as YAML, with the Redis password left
// out.
func (c Config) Marshal() ([]byte, error) {
	c.RedisPassword = ""
	return yaml.Marshal(c)
}

// ApplyEnv overrides fields from variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	p := envParser{lookup: lookup}

	p.duration("SAMPLE_INTERVAL", &c.SampleInterval)
	p.int("WAVEFORM_LENGTH", &c.WaveformLength)
	p.int("RATIO_HISTORY_LENGTH", &c.RatioHistoryLength)
	p.duration("CALIBRATION_DURATION", &c.CalibrationDuration)
	p.duration("GUIDED_DURATION", &c.GuidedDuration)
	p.int64("SEED", &c.Seed)
	p.bool("SIMULATION", &c.Simulation)
	p.string("CONNECTION_STATUS", &c.ConnectionStatus)
	p.int("MONITOR_PORT", &c.MonitorPort)
	p.int("STREAM_DECIMATION", &c.StreamDecimation)
	p.int("SUMMARY_INTERVAL", &c.SummaryInterval)
	p.string("REDIS_ADDR", &c.RedisAddr)
	p.string("REDIS_PASSWORD", &c.RedisPassword)
	p.int("REDIS_DB", &c.RedisDB)
	p.string("REDIS_PREFIX", &c.RedisPrefix)
	p.bool("ADVERTISE", &c.Advertise)

	return errors.Join(p.errs...)
}

// Validate checks that every value can drive a session.
func (c Config) Validate() error {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs,
				fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.SampleInterval > 0,
		"sample interval must be positive, got %s", c.SampleInterval)
	check(c.WaveformLength > 0,
		"waveform length must be positive, got %d", c.WaveformLength)
	check(c.RatioHistoryLength > 0,
		"ratio history length must be positive, got %d", c.RatioHistoryLength)
	check(c.CalibrationDuration >= time.Second,
		"calibration must last at least 1s, got %s", c.CalibrationDuration)
	check(c.GuidedDuration >= time.Second,
		"guided relaxation must last at least 1s, got %s", c.GuidedDuration)
	check(c.MonitorPort >= 0 && c.MonitorPort <= 65535,
		"monitor port out of range: %d", c.MonitorPort)
	check(c.StreamDecimation > 0,
		"stream decimation must be positive, got %d", c.StreamDecimation)
	check(c.SummaryInterval > 0,
		"summary interval must be positive, got %d", c.SummaryInterval)

	return errors.Join(errs...)
}

// SampleRateHz returns how many samples are produced per second.
func (c Config) SampleRateHz() float64 {
	return float64(time.Second) / float64(c.SampleInterval)
}

type envParser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *envParser) get(name string) (string, bool) {
	return p.lookup(EnvPrefix + name)
}

func (p *envParser) fail(name, value string, err error) {
	p.errs = append(p.errs,
		fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, name, value, err))
}

func (p *envParser) string(name string, dst *string) {
	if v, ok := p.get(name); ok {
		*dst = v
	}
}

func (p *envParser) int(name string, dst *int) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = n
}

func (p *envParser) int64(name string, dst *int64) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = n
}

func (p *envParser) bool(name string, dst *bool) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = b
}

func (p *envParser) duration(name string, dst *time.Duration) {
	v, ok := p.get(name)
	if !ok {
		return
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}

	*dst = d
}
