// Command cli sanitizes a single file offline, without the job API or
// database: input bytes in, surviving bits out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bitwash/adapters/quicktest"
	"bitwash/adapters/sts"
	"bitwash/app"
	"bitwash/domain/bits"
	"bitwash/domain/stage"
	"bitwash/domain/verdict"
	"bitwash/internal/config"
	"bitwash/internal/errors"
	"bitwash/ports"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "file to sanitize")
		outputPath = flag.String("output", "output.bit", "where to write the surviving bits (ASCII)")
		stsPath    = flag.String("sts", os.Getenv("STS_PATH"), "NIST STS installation directory")
		chunkSize  = flag.Int("chunk-size", 1000000, "full-test chunk size in bits")
		preSize    = flag.Int("precheck-chunk-size", 50000, "precheck chunk size in bits")
		maxRounds  = flag.Int("max-rounds", 16, "round bound before giving up")
		parallel   = flag.Int("parallel", 2, "concurrent chunk tests")
		quick      = flag.Bool("quick", false, "run only the in-process precheck battery, once, and keep its survivors")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	ctx := context.Background()
	start := time.Now()

	var output bits.Sequence
	if *quick {
		output, err = runQuick(ctx, data, *preSize, *parallel)
	} else {
		output, err = runFull(ctx, data, *stsPath, *chunkSize, *preSize, *maxRounds, *parallel)
	}
	if err != nil {
		log.Fatalf("sanitization failed: %v", err)
	}

	if output.Len() == 0 {
		fmt.Println("No bits survived; no output written.")
		os.Exit(1)
	}

	if err := os.WriteFile(*outputPath, []byte(output.ASCII()), 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	fmt.Printf("Wrote %d bits to %s in %s\n", output.Len(), *outputPath, time.Since(start).Round(time.Millisecond))
}

func runFull(ctx context.Context, data []byte, stsPath string, chunkSize, preSize, maxRounds, parallel int) (bits.Sequence, error) {
	if stsPath == "" {
		return nil, fmt.Errorf("-sts (or STS_PATH) is required unless -quick is set")
	}
	oracle, err := sts.NewOracle(stsPath, parallel, 0)
	if err != nil {
		return nil, err
	}

	pipeline := app.NewSanitizeService(quicktest.NewOracle(), oracle, config.PipelineConfig{
		ChunkSize:         chunkSize,
		PrecheckChunkSize: preSize,
		PrecheckEnabled:   true,
		MaxRounds:         maxRounds,
		Alpha:             verdict.DefaultAlpha,
		SubTestRequired:   verdict.DefaultSubTestRequired,
		SubTestPopulation: verdict.DefaultSubTestPopulation,
	}, parallel)
	pipeline.OnRound = func(r stage.RoundReport) {
		fmt.Printf("round %d: %d/%d chunks passed (%d bits remain)\n",
			r.Round, r.Outcome.PassCount, r.Outcome.ChunkCount, r.BitsOut)
	}

	result, err := pipeline.Sanitize(ctx, data)
	if err != nil {
		return nil, err
	}
	if result.State == app.StateGaveUp {
		return nil, errors.NonConvergence(len(result.Rounds))
	}
	fmt.Printf("state: %s after %d rounds\n", result.State, len(result.Rounds))
	return result.Output, nil
}

// runQuick is the prefilter-only mode: one pass of the in-process
// battery, no external oracle, no convergence loop.
func runQuick(ctx context.Context, data []byte, preSize, parallel int) (bits.Sequence, error) {
	var oracle ports.OraclePort = quicktest.NewOracle()
	runner := app.NewStageRunner(oracle, verdict.NewAggregator())
	runner.MaxParallel = parallel

	outcome, err := runner.Run(ctx, bits.FromBytes(data), stage.Config{
		Name:      stage.StagePrecheck,
		ChunkSize: preSize,
		Tests:     verdict.PrecheckBattery(),
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("precheck: %d/%d chunks passed\n", outcome.PassCount, outcome.ChunkCount)
	return outcome.Survivors, nil
}
