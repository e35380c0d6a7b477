package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Scenario names.
const (
	ScenarioPacks  = "packs"
	ScenarioEvents = "events"
)

// Defaults mirror the reference load profile of the pack API.
const (
	DefaultBaseURL             = "http://localhost:3300"
	DefaultTimeout             = 30 * time.Second
	DefaultTimeUnit            = time.Minute
	DefaultPreAllocatedWorkers = 10
	DefaultMaxWorkers          = 100
	DefaultDuration            = 5 * time.Minute
	DefaultStartTime           = 5 * time.Second
	DefaultGracefulStop        = 5 * time.Second
	DefaultPacksRate           = 6000
	DefaultEventsRate          = 10000
	DefaultTransitionShare     = 0.5
	DefaultSeedPacks           = 10
)

type Config struct {
	BaseURL       string         `mapstructure:"base_url"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	RandomSeed    int64          `mapstructure:"random_seed"`
	LogLevel      string         `mapstructure:"log_level"`
	LogFormat     string         `mapstructure:"log_format"`
	JSONOutput    bool           `mapstructure:"json_output"`
	SummaryExport string         `mapstructure:"summary_export"`
	HTMLOutput    string         `mapstructure:"html_output"`
	Dashboard     bool           `mapstructure:"dashboard"`
	MetricsAddr   string         `mapstructure:"metrics_addr"`
	Thresholds    []string       `mapstructure:"thresholds"`
	ConfigFile    string         `mapstructure:"-"`
	Auth          AuthConfig     `mapstructure:"auth"`
	Tracing       TracingConfig  `mapstructure:"tracing"`
	Packs         ScenarioConfig `mapstructure:"packs"`
	Events        ScenarioConfig `mapstructure:"events"`
}

// ScenarioConfig describes one constant-arrival-rate scenario.
type ScenarioConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Rate                int           `mapstructure:"rate"`      // iterations per TimeUnit
	TimeUnit            time.Duration `mapstructure:"time_unit"`
	PreAllocatedWorkers int           `mapstructure:"pre_allocated_workers"`
	MaxWorkers          int           `mapstructure:"max_workers"`
	Duration            time.Duration `mapstructure:"duration"`
	StartTime           time.Duration `mapstructure:"start_time"`
	GracefulStop        time.Duration `mapstructure:"graceful_stop"`
	Arrival             ArrivalConfig `mapstructure:"arrival"`
	LoadPatterns        []LoadPattern `mapstructure:"load_patterns"`

	// packs only
	TransitionShare        float64 `mapstructure:"transition_share"`
	SkipDeliveredOnFailure bool    `mapstructure:"skip_delivered_on_failure"`

	// events only
	SeedPacks int        `mapstructure:"seed_packs"`
	Seed      SeedConfig `mapstructure:"seed"`
}

type LoadPatternType string

const (
	LoadPatternTypeRamp  LoadPatternType = "ramp"
	LoadPatternTypeStep  LoadPatternType = "step"
	LoadPatternTypeSpike LoadPatternType = "spike"
)

// LoadPattern rates are expressed in iterations per scenario TimeUnit.
type LoadPattern struct {
	Name     string          `mapstructure:"name"`
	Type     LoadPatternType `mapstructure:"type"`
	FromRate int             `mapstructure:"from_rate"`
	ToRate   int             `mapstructure:"to_rate"`
	Duration time.Duration   `mapstructure:"duration"`
	Steps    []LoadStep      `mapstructure:"steps"`
	Rate     int             `mapstructure:"rate"`
}

type LoadStep struct {
	Rate     int           `mapstructure:"rate"`
	Duration time.Duration `mapstructure:"duration"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

// SeedConfig points at a CSV, JSON or YAML file of existing pack identifiers.
type SeedConfig struct {
	Path  string `mapstructure:"path"`
	Type  string `mapstructure:"type"`  // "csv", "json" or "yaml"
	Field string `mapstructure:"field"` // column/key holding the id, default "id"
}

type AuthConfig struct {
	Token  string `mapstructure:"token"`
	Header string `mapstructure:"header"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected; defaults to Enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Defaults returns the configuration used when neither flags nor file override a value.
func Defaults() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		LogLevel:  "info",
		LogFormat: "console",
		Tracing:   TracingConfig{SampleRate: 1.0},
		Packs: ScenarioConfig{
			Enabled:             true,
			Rate:                DefaultPacksRate,
			TimeUnit:            DefaultTimeUnit,
			PreAllocatedWorkers: DefaultPreAllocatedWorkers,
			MaxWorkers:          DefaultMaxWorkers,
			Duration:            DefaultDuration,
			StartTime:           DefaultStartTime,
			GracefulStop:        DefaultGracefulStop,
			Arrival:             ArrivalConfig{Model: ArrivalModelUniform},
			TransitionShare:     DefaultTransitionShare,
		},
		Events: ScenarioConfig{
			Enabled:             true,
			Rate:                DefaultEventsRate,
			TimeUnit:            DefaultTimeUnit,
			PreAllocatedWorkers: DefaultPreAllocatedWorkers,
			MaxWorkers:          DefaultMaxWorkers,
			Duration:            DefaultDuration,
			StartTime:           DefaultStartTime,
			GracefulStop:        DefaultGracefulStop,
			Arrival:             ArrivalConfig{Model: ArrivalModelUniform},
			SeedPacks:           DefaultSeedPacks,
			Seed:                SeedConfig{Field: "id"},
		},
	}
}

// Scenario returns the scenario config by name.
func (c *Config) Scenario(name string) (*ScenarioConfig, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScenarioPacks:
		return &c.Packs, true
	case ScenarioEvents:
		return &c.Events, true
	default:
		return nil, false
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		issues = append(issues, "base_url is required")
	} else if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("base_url %q must be an absolute http(s) URL", base))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("base_url scheme %q is not supported", u.Scheme))
	}

	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log_format %q is not supported (use console or json)", c.LogFormat))
	}

	if !c.Packs.Enabled && !c.Events.Enabled {
		issues = append(issues, "at least one scenario must be enabled")
	}
	if c.Packs.Enabled {
		issues = append(issues, validateScenario(ScenarioPacks, c.Packs)...)
		if c.Packs.TransitionShare < 0 || c.Packs.TransitionShare > 1 {
			issues = append(issues, "packs: transition_share must be between 0 and 1")
		}
	}
	if c.Events.Enabled {
		issues = append(issues, validateScenario(ScenarioEvents, c.Events)...)
		issues = append(issues, validateSeed(c.Events)...)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0 and 1")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateScenario(name string, sc ScenarioConfig) []string {
	var issues []string
	if sc.Rate < 0 {
		issues = append(issues, fmt.Sprintf("%s: rate must be >= 0", name))
	}
	if sc.Rate == 0 && len(sc.LoadPatterns) == 0 {
		issues = append(issues, fmt.Sprintf("%s: rate must be > 0 when no load_patterns are set", name))
	}
	if sc.TimeUnit <= 0 {
		issues = append(issues, fmt.Sprintf("%s: time_unit must be > 0", name))
	}
	if sc.PreAllocatedWorkers < 1 {
		issues = append(issues, fmt.Sprintf("%s: pre_allocated_workers must be >= 1", name))
	}
	if sc.MaxWorkers < sc.PreAllocatedWorkers {
		issues = append(issues, fmt.Sprintf("%s: max_workers must be >= pre_allocated_workers", name))
	}
	if sc.Duration <= 0 && len(sc.LoadPatterns) == 0 {
		issues = append(issues, fmt.Sprintf("%s: duration must be > 0", name))
	}
	if sc.StartTime < 0 {
		issues = append(issues, fmt.Sprintf("%s: start_time must be >= 0", name))
	}
	if sc.GracefulStop < 0 {
		issues = append(issues, fmt.Sprintf("%s: graceful_stop must be >= 0", name))
	}
	switch sc.Arrival.Model {
	case "", ArrivalModelUniform, ArrivalModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("%s: arrival model %q is not supported", name, sc.Arrival.Model))
	}
	for _, issue := range validateLoadPatterns(sc.LoadPatterns) {
		issues = append(issues, fmt.Sprintf("%s: %s", name, issue))
	}
	return issues
}

func validateSeed(sc ScenarioConfig) []string {
	var issues []string
	if strings.TrimSpace(sc.Seed.Path) == "" {
		if sc.SeedPacks < 1 {
			issues = append(issues, "events: seed_packs must be >= 1 when no seed file is set")
		}
		return issues
	}
	// An empty type is inferred from the file extension when the file is read.
	switch strings.ToLower(strings.TrimSpace(sc.Seed.Type)) {
	case "", "csv", "json", "yaml", "yml":
	default:
		issues = append(issues, fmt.Sprintf("events: seed type must be 'csv', 'json' or 'yaml', got %q", sc.Seed.Type))
	}
	return issues
}

func validateLoadPatterns(patterns []LoadPattern) []string {
	var issues []string
	for idx, pattern := range patterns {
		typeLabel := strings.TrimSpace(string(pattern.Type))
		if typeLabel == "" {
			issues = append(issues, fmt.Sprintf("load_patterns[%d]: type is required", idx))
			continue
		}
		switch LoadPatternType(strings.ToLower(typeLabel)) {
		case LoadPatternTypeRamp:
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("load_patterns[%d]: duration must be > 0 for ramp", idx))
			}
			if pattern.FromRate < 0 || pattern.ToRate < 0 {
				issues = append(issues, fmt.Sprintf("load_patterns[%d]: from_rate and to_rate must be >= 0", idx))
			}
		case LoadPatternTypeStep:
			if len(pattern.Steps) == 0 {
				issues = append(issues, fmt.Sprintf("load_patterns[%d]: steps are required for step pattern", idx))
			}
			for stepIdx, step := range pattern.Steps {
				if step.Rate < 0 {
					issues = append(issues, fmt.Sprintf("load_patterns[%d].steps[%d]: rate must be >= 0", idx, stepIdx))
				}
				if step.Duration <= 0 {
					issues = append(issues, fmt.Sprintf("load_patterns[%d].steps[%d]: duration must be > 0", idx, stepIdx))
				}
			}
		case LoadPatternTypeSpike:
			if pattern.Rate <= 0 {
				issues = append(issues, fmt.Sprintf("load_patterns[%d]: rate must be > 0 for spike", idx))
			}
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("load_patterns[%d]: duration must be > 0 for spike", idx))
			}
		default:
			issues = append(issues, fmt.Sprintf("load_patterns[%d]: unsupported type %q", idx, pattern.Type))
		}
	}
	return issues
}
