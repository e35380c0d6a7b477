// Package metrics records raw measurements produced during a packstorm run.
//
// The package deliberately stores samples without aggregating them; percentile
// and rate computation happens at report time in the output package.
//
// # Registry
//
// [Registry] keeps an append-only series of latency samples per operation name:
//
//	reg := metrics.NewRegistry()
//	reg.Record("create_pack_duration", elapsed)
//	samples := reg.Snapshot()["create_pack_duration"]
//
// Components depend on the [Recorder] interface so tests can substitute their own
// implementation, and [Fanout] lets exporters observe the same samples.
//
// # Checks and status buckets
//
// [Checks] counts pass/fail outcomes of response assertions such as
// "status is 201". [StatusCounter] tallies the status label of every call per
// operation; [StatusLabel] turns transport errors into stable labels.
//
// # Thread Safety
//
// Every type in this package is safe for concurrent use. Registry uses one lock
// per operation series, so workers recording different operations never contend.
package metrics
