// Package cli implements the `rkv cli` command group. Each subcommand opens a
// client (rpc/client) with the connection flags, sends one command and prints
// the reply. `rkv cli raw` sends arbitrary commands and prints the raw reply
// frame. `rkv cli perf` benchmarks all commands and reports throughput plus
// latency percentiles (github.com/rcrowley/go-metrics timers).
package cli
