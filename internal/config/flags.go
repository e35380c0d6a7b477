package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "packstorm",
		Short:         "Synthetic load generator for the pack tracking API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("base-url", DefaultBaseURL, "Base URL of the pack API")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.String("auth-token", "", "Static token sent with every request")
	flags.String("auth-header", "", "Header carrying the token (default Authorization: Bearer)")

	// Scenario selection and executor shape
	flags.StringSlice("scenario", nil, "Scenarios to run: packs, events (default both)")
	flags.Int("packs-rate", DefaultPacksRate, "Pack lifecycle iterations per time unit")
	flags.Int("events-rate", DefaultEventsRate, "Event iterations per time unit")
	flags.Duration("time-unit", DefaultTimeUnit, "Period the rates are expressed in")
	flags.DurationP("duration", "d", DefaultDuration, "How long each scenario emits iterations")
	flags.Duration("start-time", DefaultStartTime, "Delay before the scenarios start")
	flags.Duration("graceful-stop", DefaultGracefulStop, "Max wait for in-flight iterations after the duration")
	flags.Int("pre-allocated-workers", DefaultPreAllocatedWorkers, "Workers started up front per scenario")
	flags.Int("max-workers", DefaultMaxWorkers, "Upper bound of workers per scenario")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model (uniform or poisson)")
	flags.Int64("random-seed", 0, "Seed for payload and routing randomness (0 picks one)")

	// Scenario behaviour
	flags.Float64("transition-share", DefaultTransitionShare, "Share of created packs routed to status progression")
	flags.Bool("skip-delivered-on-failure", false, "Skip the DELIVERED update when IN_TRANSIT failed")
	flags.Int("seed-packs", DefaultSeedPacks, "Packs created during setup for the events scenario")
	flags.String("seed-file", "", "CSV or JSON file of existing pack ids for the events scenario")
	flags.String("seed-type", "", "Seed file type: csv, json or yaml")
	flags.String("seed-field", "id", "Column or key holding the pack id in the seed file")

	// Output
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.Bool("json-output", false, "Print the summary as JSON")
	flags.String("summary-export", "", "Write the JSON summary to this file")
	flags.String("html-output", "", "Write an HTML report to this file")
	flags.Bool("dashboard", false, "Show a live terminal dashboard")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	flags.StringSlice("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'create_pack_duration:p95 < 500')")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint; empty disables tracing")
	flags.String("tracing-protocol", "grpc", "OTLP protocol (grpc or http)")
	flags.Bool("tracing-insecure", false, "Disable TLS to the collector")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio")
	flags.String("tracing-service-name", "", "Service name reported on spans")
}

func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides copies explicitly set flags over cfg.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	o := overrider{fs: fs}

	o.str("base-url", &cfg.BaseURL)
	o.duration("timeout", &cfg.Timeout)
	o.str("auth-token", &cfg.Auth.Token)
	o.str("auth-header", &cfg.Auth.Header)
	o.integer64("random-seed", &cfg.RandomSeed)
	o.str("log-level", &cfg.LogLevel)
	o.str("log-format", &cfg.LogFormat)
	o.boolean("json-output", &cfg.JSONOutput)
	o.str("summary-export", &cfg.SummaryExport)
	o.str("html-output", &cfg.HTMLOutput)
	o.boolean("dashboard", &cfg.Dashboard)
	o.str("metrics-addr", &cfg.MetricsAddr)
	if fs.Changed("threshold") {
		vals, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = vals
	}

	o.str("tracing-endpoint", &cfg.Tracing.Endpoint)
	o.str("tracing-protocol", &cfg.Tracing.Protocol)
	o.boolean("tracing-insecure", &cfg.Tracing.Insecure)
	o.float("tracing-sample-rate", &cfg.Tracing.SampleRate)
	o.str("tracing-service-name", &cfg.Tracing.ServiceName)

	o.integer("packs-rate", &cfg.Packs.Rate)
	o.integer("events-rate", &cfg.Events.Rate)
	o.float("transition-share", &cfg.Packs.TransitionShare)
	o.boolean("skip-delivered-on-failure", &cfg.Packs.SkipDeliveredOnFailure)
	o.integer("seed-packs", &cfg.Events.SeedPacks)
	o.str("seed-file", &cfg.Events.Seed.Path)
	o.str("seed-type", &cfg.Events.Seed.Type)
	o.str("seed-field", &cfg.Events.Seed.Field)

	// Executor flags apply to both scenarios.
	for _, sc := range []*ScenarioConfig{&cfg.Packs, &cfg.Events} {
		o.duration("time-unit", &sc.TimeUnit)
		o.duration("duration", &sc.Duration)
		o.duration("start-time", &sc.StartTime)
		o.duration("graceful-stop", &sc.GracefulStop)
		o.integer("pre-allocated-workers", &sc.PreAllocatedWorkers)
		o.integer("max-workers", &sc.MaxWorkers)
		if fs.Changed("arrival-model") {
			var model string
			o.str("arrival-model", &model)
			sc.Arrival.Model = ArrivalModel(strings.ToLower(model))
		}
	}

	if fs.Changed("scenario") {
		names, err := fs.GetStringSlice("scenario")
		if err != nil {
			return err
		}
		cfg.Packs.Enabled, cfg.Events.Enabled = false, false
		for _, name := range names {
			sc, ok := cfg.Scenario(name)
			if !ok {
				return fmt.Errorf("unknown scenario %q (use %s or %s)", name, ScenarioPacks, ScenarioEvents)
			}
			sc.Enabled = true
		}
	}

	return o.err
}

// overrider records the first flag lookup error and turns later calls into no-ops.
type overrider struct {
	fs  *pflag.FlagSet
	err error
}

func (o *overrider) changed(name string) bool {
	return o.err == nil && o.fs.Changed(name)
}

func (o *overrider) str(name string, dst *string) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetString(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = strings.TrimSpace(val)
}

func (o *overrider) integer(name string, dst *int) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetInt(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = val
}

func (o *overrider) integer64(name string, dst *int64) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetInt64(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = val
}

func (o *overrider) float(name string, dst *float64) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetFloat64(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = val
}

func (o *overrider) boolean(name string, dst *bool) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetBool(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = val
}

func (o *overrider) duration(name string, dst *time.Duration) {
	if !o.changed(name) {
		return
	}
	val, err := o.fs.GetDuration(name)
	if err != nil {
		o.err = err
		return
	}
	*dst = val
}
