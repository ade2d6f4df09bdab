// Package bench defines the experiment configuration and the contract every
// execution backend implements.
package bench

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ExperimentConfig parameterizes one experiment run. The zero value is not
// usable; start from DefaultConfig.
type ExperimentConfig struct {
	ExperimentName   string
	DurationSecs     uint64
	SensorPeriodMS   uint64
	ModeTag          string
	EnableLogging    bool
	ProcessingTimeNS uint64

	// CPULoadThreads and CPULoadDuty spin up background load workers for the
	// duration of the run; zero threads disables the generator.
	CPULoadThreads int
	CPULoadDuty    float64

	// QueueCapacity bounds every pipeline channel. Drop experiments shrink it.
	QueueCapacity int
}

const (
	defaultSensorPeriodMS = 10
	defaultQueueCapacity  = 100
	defaultCPULoadDuty    = 0.5
)

// DefaultConfig returns the baseline experiment parameters.
func DefaultConfig() ExperimentConfig {
	return ExperimentConfig{
		ExperimentName: "baseline",
		DurationSecs:   5,
		SensorPeriodMS: defaultSensorPeriodMS,
		ModeTag:        "baseline",
		CPULoadDuty:    defaultCPULoadDuty,
		QueueCapacity:  defaultQueueCapacity,
	}
}

// fileConfig mirrors ExperimentConfig with pointer fields so absent keys
// leave defaults untouched.
type fileConfig struct {
	ExperimentName   *string  `yaml:"experimentName" toml:"experiment_name"`
	DurationSecs     *uint64  `yaml:"durationSecs" toml:"duration_secs"`
	SensorPeriodMS   *uint64  `yaml:"sensorPeriodMs" toml:"sensor_period_ms"`
	ModeTag          *string  `yaml:"modeTag" toml:"mode"`
	EnableLogging    *bool    `yaml:"enableLogging" toml:"enable_logging"`
	ProcessingTimeNS *uint64  `yaml:"processingTimeNs" toml:"processing_time_ns"`
	CPULoadThreads   *int     `yaml:"cpuLoadThreads" toml:"cpu_load_threads"`
	CPULoadDuty      *float64 `yaml:"cpuLoadDuty" toml:"cpu_load_duty"`
	QueueCapacity    *int     `yaml:"queueCapacity" toml:"queue_capacity"`
}

var (
	errUnsupportedConfig = errors.New("bench: unsupported config extension")
	errZeroPeriod        = errors.New("bench: sensor period must be positive")
	errBadQueueCapacity  = errors.New("bench: queue capacity must be positive")
	errBadDuty           = errors.New("bench: cpu load duty must be in [0,1]")
)

// LoadConfig reads a YAML or TOML experiment file, chosen by extension, and
// merges it over the defaults.
func LoadConfig(path string) (ExperimentConfig, error) {
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		return ExperimentConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
	}

	var file fileConfig

	switch ext := strings.ToLower(filepath.Ext(trimmed)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return ExperimentConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return ExperimentConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}
	default:
		return ExperimentConfig{}, fmt.Errorf("%w: %q", errUnsupportedConfig, ext)
	}

	mergeConfig(&cfg, file)

	if err := cfg.Validate(); err != nil {
		return ExperimentConfig{}, err
	}

	return cfg, nil
}

// Validate rejects parameter combinations no experiment can run with.
func (c ExperimentConfig) Validate() error {
	if c.SensorPeriodMS == 0 {
		return errZeroPeriod
	}

	if c.QueueCapacity <= 0 {
		return errBadQueueCapacity
	}

	if c.CPULoadDuty < 0 || c.CPULoadDuty > 1 {
		return errBadDuty
	}

	return nil
}

func mergeConfig(dst *ExperimentConfig, src fileConfig) {
	assignString(&dst.ExperimentName, src.ExperimentName)
	assignUint64(&dst.DurationSecs, src.DurationSecs)
	assignUint64(&dst.SensorPeriodMS, src.SensorPeriodMS)
	assignString(&dst.ModeTag, src.ModeTag)
	assignBool(&dst.EnableLogging, src.EnableLogging)
	assignUint64(&dst.ProcessingTimeNS, src.ProcessingTimeNS)
	assignInt(&dst.CPULoadThreads, src.CPULoadThreads)
	assignFloat(&dst.CPULoadDuty, src.CPULoadDuty)
	assignInt(&dst.QueueCapacity, src.QueueCapacity)
}

func assignString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func assignUint64(target *uint64, value *uint64) {
	if value != nil {
		*target = *value
	}
}

func assignBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}

func assignInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

func assignFloat(target *float64, value *float64) {
	if value != nil {
		*target = *value
	}
}
