package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/lib/resp"
	"github.com/ValentinKolb/rKV/rpc/client"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for rKV servers",
		Long:    "Runs a benchmark per command against the server and reports throughput and latency percentiles. All keys used start with __perf.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfPipelineDepth    = 10
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, perfNumThreads, util.WrapString("Number of goroutines per benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, perfLargeValueSizeKB, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, perfKeySpread, util.WrapString("How many different keys to use for the tests"))
	key = "pipeline-depth"
	perfTestCmd.Flags().Int(key, perfPipelineDepth, util.WrapString("Number of commands per request in the pipeline test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfPipelineDepth = max(viper.GetInt("pipeline-depth"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

// perfTest is one benchmark. prepare runs once per key before measuring.
type perfTest struct {
	name    string
	prepare func(ctx context.Context, key string) error
	op      func(ctx context.Context, counter int, key string) error
}

// perfResult holds the measurements of one benchmark
type perfResult struct {
	name    string
	bench   testing.BenchmarkResult
	latency metrics.Timer
	errors  metrics.Counter
}

func perfTests() []perfTest {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)

	setValue := func(ctx context.Context, key string) error {
		return rkvClient.Set(ctx, key, "test")
	}
	setField := func(ctx context.Context, key string) error {
		return rkvClient.HSet(ctx, key, "field", "test")
	}
	addMember := func(ctx context.Context, key string) error {
		return rkvClient.AddMember(ctx, key, "member")
	}

	return []perfTest{
		{name: "set", op: func(ctx context.Context, _ int, key string) error {
			return rkvClient.Set(ctx, key, "test")
		}},
		{name: "set-large", op: func(ctx context.Context, _ int, key string) error {
			return rkvClient.Set(ctx, key, largeValue)
		}},
		{name: "get", prepare: setValue, op: func(ctx context.Context, _ int, key string) error {
			_, _, err := rkvClient.Get(ctx, key)
			return err
		}},
		{name: "hset", op: func(ctx context.Context, counter int, key string) error {
			return rkvClient.HSet(ctx, key, "field-"+strconv.Itoa(counter%10), "test")
		}},
		{name: "hget", prepare: setField, op: func(ctx context.Context, _ int, key string) error {
			_, _, err := rkvClient.HGet(ctx, key, "field")
			return err
		}},
		{name: "hmget", prepare: setField, op: func(ctx context.Context, _ int, key string) error {
			_, err := rkvClient.HMGet(ctx, key, "field", "missing")
			return err
		}},
		{name: "hgetall", prepare: setField, op: func(ctx context.Context, _ int, key string) error {
			_, err := rkvClient.HGetAll(ctx, key, true)
			return err
		}},
		{name: "addmember", op: func(ctx context.Context, _ int, key string) error {
			return rkvClient.AddMember(ctx, key, "member")
		}},
		{name: "sismember", prepare: addMember, op: func(ctx context.Context, _ int, key string) error {
			_, err := rkvClient.SIsMember(ctx, key, "member")
			return err
		}},
		{name: "echo", op: func(ctx context.Context, _ int, _ string) error {
			_, err := rkvClient.Echo(ctx, "test")
			return err
		}},
		{name: "pipeline", op: func(ctx context.Context, _ int, key string) error {
			reqs := make([]resp.Frame, perfPipelineDepth)
			for i := range reqs {
				reqs[i] = client.NewCommand("set", key, "test")
			}
			_, err := rkvClient.Pipeline(ctx, reqs...)
			return err
		}},
		{name: "mixed", prepare: setValue, op: func(ctx context.Context, counter int, key string) error {
			var err error
			switch counter % 4 {
			case 0: // set
				err = rkvClient.Set(ctx, key, "test")
			case 1: // get
				_, _, err = rkvClient.Get(ctx, key)
			case 2: // hset
				err = rkvClient.HSet(ctx, key+"-hash", "field", "test")
			case 3: // sismember
				_, err = rkvClient.SIsMember(ctx, key+"-set", "member")
			}
			return err
		}},
	}
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for rKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	var results []perfResult
	for _, test := range perfTests() {
		if shouldSkip(test.name) {
			printSkipped(test.name)
			continue
		}
		result, err := runBenchmark(test)
		if err != nil {
			return err
		}
		printResult(result)
		results = append(results, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runBenchmark measures test with testing.Benchmark. Every single operation is
// also timed to get latency percentiles.
func runBenchmark(test perfTest) (perfResult, error) {
	result := perfResult{
		name:    test.name,
		latency: metrics.NewTimer(),
		errors:  metrics.NewCounter(),
	}
	defer result.latency.Stop()

	getKey, iter := getKeys(test.name)

	// prepare keys
	if test.prepare != nil {
		var prepareErr error
		iter(func(k string) {
			ctx, cancel := requestContext()
			defer cancel()
			if err := test.prepare(ctx, k); err != nil && prepareErr == nil {
				prepareErr = fmt.Errorf("(%s) - error preparing key %s: %w", test.name, k, err)
			}
		})
		if prepareErr != nil {
			return result, prepareErr
		}
	}

	result.bench = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				ctx, cancel := requestContext()
				start := time.Now()
				err := test.op(ctx, counter, getKey(counter))
				result.latency.UpdateSince(start)
				cancel()

				if err != nil {
					result.errors.Inc(1)
				}
				counter++
			}
		})
	})

	return result, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// percentiles returns p50, p99 and p99.9 of the latency in nanoseconds
func (r perfResult) percentiles() []float64 {
	return r.latency.Percentiles([]float64{0.5, 0.99, 0.999})
}

func (r perfResult) opsPerSec() float64 {
	nsPerOp := math.Max(float64(r.bench.NsPerOp()), 1) // prevent division by zero
	return 1.0 / (nsPerOp / 1e9)
}

func printSkipped(test string) {
	fmt.Printf("%-12sskipped\n", test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r perfResult) {
	p := r.percentiles()
	fmt.Printf("%-12s%10d ns/op\t%10.0f ops/sec\tp50 %-10s p99 %-10s p99.9 %-10s errors %d\n",
		r.name,
		r.bench.NsPerOp(),
		r.opsPerSec(),
		time.Duration(p[0]),
		time.Duration(p[1]),
		time.Duration(p[2]),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "P50Ns", "P99Ns", "P999Ns", "Errors",
		"Endpoint", "Transport", "TimeoutSec", "PoolSize",
		"Threads", "LargeValueSizeKB", "Keys", "PipelineDepth",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		p := r.percentiles()
		row := []string{
			r.name,
			strconv.FormatInt(r.bench.NsPerOp(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			fmt.Sprintf("%.0f", p[2]),
			strconv.FormatInt(r.errors.Count(), 10),
			clientConfig.Endpoint,
			string(clientConfig.Transport),
			strconv.Itoa(clientConfig.TimeoutSecond),
			strconv.Itoa(clientConfig.PoolSize),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfPipelineDepth),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
