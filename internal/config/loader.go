package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file into a Config.
// Values are layered: defaults, then file, then flags that were set explicitly.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := strings.TrimSpace(flagSet.Lookup("config").Value.String())
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	return &cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "baseurl", "base_url", "base-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}
	if raw, ok := lookupSetting(settings, "randomseed", "random_seed", "random-seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("random_seed: %w", err)
		}
		cfg.RandomSeed = val
	}
	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = val
	}
	if raw, ok := lookupSetting(settings, "logformat", "log_format", "log-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_format: %w", err)
		}
		cfg.LogFormat = val
	}
	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}
	if raw, ok := lookupSetting(settings, "summaryexport", "summary_export", "summary-export"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("summary_export: %w", err)
		}
		cfg.SummaryExport = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("html_output: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}
	if raw, ok := lookupSetting(settings, "metricsaddr", "metrics_addr", "metrics-addr"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}
	if raw, ok := lookupSetting(settings, "auth"); ok {
		auth, err := parseAuth(raw)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		cfg.Auth = auth
	}
	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := parseTracing(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	// Scenarios may be nested under "scenarios" or given at the top level.
	scenarios := settings
	if raw, ok := lookupSetting(settings, "scenarios"); ok {
		nested, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
		scenarios = nested
	}
	if raw, ok := lookupSetting(scenarios, ScenarioPacks); ok {
		if err := parseScenario(&cfg.Packs, raw); err != nil {
			return fmt.Errorf("scenarios.%s: %w", ScenarioPacks, err)
		}
	}
	if raw, ok := lookupSetting(scenarios, ScenarioEvents); ok {
		if err := parseScenario(&cfg.Events, raw); err != nil {
			return fmt.Errorf("scenarios.%s: %w", ScenarioEvents, err)
		}
	}
	return nil
}

// parseScenario overlays file settings onto sc, keeping defaults for absent keys.
func parseScenario(sc *ScenarioConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
		sc.Enabled = val
	}
	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		sc.Rate = val
	}
	if raw, ok := lookupSetting(settings, "timeunit", "time_unit", "time-unit"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("time_unit: %w", err)
		}
		sc.TimeUnit = dur
	}
	if raw, ok := lookupSetting(settings, "preallocatedworkers", "pre_allocated_workers", "pre-allocated-workers", "preallocatedvus"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("pre_allocated_workers: %w", err)
		}
		sc.PreAllocatedWorkers = val
	}
	if raw, ok := lookupSetting(settings, "maxworkers", "max_workers", "max-workers", "maxvus"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_workers: %w", err)
		}
		sc.MaxWorkers = val
	}
	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		sc.Duration = dur
	}
	if raw, ok := lookupSetting(settings, "starttime", "start_time", "start-time"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("start_time: %w", err)
		}
		sc.StartTime = dur
	}
	if raw, ok := lookupSetting(settings, "gracefulstop", "graceful_stop", "graceful-stop"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("graceful_stop: %w", err)
		}
		sc.GracefulStop = dur
	}
	if raw, ok := lookupSetting(settings, "arrival", "arrivalmodel", "arrival_model", "arrival-model"); ok {
		arrival, err := parseArrival(raw)
		if err != nil {
			return fmt.Errorf("arrival: %w", err)
		}
		if arrival.Model != "" {
			sc.Arrival = arrival
		}
	}
	if raw, ok := lookupSetting(settings, "loadpatterns", "load_patterns", "load-patterns"); ok {
		patterns, err := parseLoadPatterns(raw)
		if err != nil {
			return fmt.Errorf("load_patterns: %w", err)
		}
		sc.LoadPatterns = patterns
	}
	if raw, ok := lookupSetting(settings, "transitionshare", "transition_share", "transition-share"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("transition_share: %w", err)
		}
		sc.TransitionShare = val
	}
	if raw, ok := lookupSetting(settings, "skipdeliveredonfailure", "skip_delivered_on_failure", "skip-delivered-on-failure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("skip_delivered_on_failure: %w", err)
		}
		sc.SkipDeliveredOnFailure = val
	}
	if raw, ok := lookupSetting(settings, "seedpacks", "seed_packs", "seed-packs"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("seed_packs: %w", err)
		}
		sc.SeedPacks = val
	}
	if raw, ok := lookupSetting(settings, "seed"); ok {
		seed, err := parseSeed(raw, sc.Seed)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		sc.Seed = seed
	}
	// Flat seed_* keys win over the nested form.
	if raw, ok := lookupSetting(settings, "seedfile", "seed_file", "seed-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("seed_file: %w", err)
		}
		sc.Seed.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "seedtype", "seed_type", "seed-type"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("seed_type: %w", err)
		}
		sc.Seed.Type = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "seedfield", "seed_field", "seed-field"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("seed_field: %w", err)
		}
		sc.Seed.Field = strings.TrimSpace(val)
	}
	return nil
}

func parseLoadPatterns(value interface{}) ([]LoadPattern, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	patterns := make([]LoadPattern, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		pattern, err := buildLoadPattern(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func buildLoadPattern(settings map[string]interface{}) (LoadPattern, error) {
	var pattern LoadPattern
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("name: %w", err)
		}
		pattern.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("type: %w", err)
		}
		pattern.Type = LoadPatternType(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "fromrate", "from_rate", "from-rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("from_rate: %w", err)
		}
		pattern.FromRate = val
	}
	if raw, ok := lookupSetting(settings, "torate", "to_rate", "to-rate", "target"); ok {
		val, err := asInt(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("to_rate: %w", err)
		}
		pattern.ToRate = val
	}
	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("duration: %w", err)
		}
		pattern.Duration = dur
	}
	if raw, ok := lookupSetting(settings, "steps"); ok {
		steps, err := parseLoadSteps(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("steps: %w", err)
		}
		pattern.Steps = steps
	}
	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return LoadPattern{}, fmt.Errorf("rate: %w", err)
		}
		pattern.Rate = val
	}
	return pattern, nil
}

func parseLoadSteps(value interface{}) ([]LoadStep, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	steps := make([]LoadStep, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var step LoadStep
		if raw, ok := lookupSetting(entry, "rate"); ok {
			val, err := asInt(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d rate: %w", idx, err)
			}
			step.Rate = val
		}
		if raw, ok := lookupSetting(entry, "duration"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d duration: %w", idx, err)
			}
			step.Duration = dur
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// parseArrival accepts either a bare model string or a {model: ...} map.
func parseArrival(value interface{}) (ArrivalConfig, error) {
	if value == nil {
		return ArrivalConfig{}, nil
	}
	if s, ok := value.(string); ok {
		return ArrivalConfig{Model: ArrivalModel(strings.ToLower(strings.TrimSpace(s)))}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return ArrivalConfig{}, err
	}
	raw, ok := lookupSetting(entry, "model")
	if !ok {
		return ArrivalConfig{}, fmt.Errorf("model field is required")
	}
	val, err := asString(raw)
	if err != nil {
		return ArrivalConfig{}, fmt.Errorf("model: %w", err)
	}
	return ArrivalConfig{Model: ArrivalModel(strings.ToLower(strings.TrimSpace(val)))}, nil
}

func parseSeed(value interface{}, base SeedConfig) (SeedConfig, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return SeedConfig{}, err
	}
	seed := base
	if raw, ok := lookupSetting(entry, "path", "file"); ok {
		val, err := asString(raw)
		if err != nil {
			return SeedConfig{}, fmt.Errorf("path: %w", err)
		}
		seed.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return SeedConfig{}, fmt.Errorf("type: %w", err)
		}
		seed.Type = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "field"); ok {
		val, err := asString(raw)
		if err != nil {
			return SeedConfig{}, fmt.Errorf("field: %w", err)
		}
		seed.Field = strings.TrimSpace(val)
	}
	return seed, nil
}

func parseAuth(value interface{}) (AuthConfig, error) {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return AuthConfig{}, err
	}
	var auth AuthConfig
	if raw, ok := lookupSetting(entry, "statictoken", "static_token", "static-token", "token"); ok {
		val, err := asString(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("static_token: %w", err)
		}
		auth.Token = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "header"); ok {
		val, err := asString(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("header: %w", err)
		}
		auth.Header = strings.TrimSpace(val)
	}
	return auth, nil
}

func parseTracing(tc *TracingConfig, value interface{}) error {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &val
	}
	return nil
}
