// Package quicktest is an in-process oracle covering the cheap end of
// the battery: Frequency, BlockFrequency, Runs and CumulativeSums. The
// precheck stage uses it to discard grossly bad material without paying
// for a full external STS run per chunk. It is not a replacement for
// the full battery; full-test rounds always go through the external
// oracle.
package quicktest

import (
	"context"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"bitwash/domain/bits"
	"bitwash/domain/core"
	"bitwash/domain/verdict"
)

// blockSize is the BlockFrequency block length, per STS defaults.
const blockSize = 128

// Oracle computes the precheck subset in process.
type Oracle struct{}

// NewOracle creates the in-process precheck oracle
func NewOracle() *Oracle {
	return &Oracle{}
}

// RunTests computes each requested test it implements. Unsupported test
// names produce no entry, which the aggregator scores as a failure: the
// precheck battery must stay within this oracle's repertoire.
func (o *Oracle) RunTests(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
	if chunk.Bits.Len() == 0 {
		return nil, fmt.Errorf("%w: empty chunk", core.ErrOracleUnavailable)
	}

	results := make(map[verdict.TestName]verdict.TestResult, len(tests))
	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pvals []float64
		switch test {
		case verdict.TestFrequency:
			pvals = []float64{frequency(chunk.Bits)}
		case verdict.TestBlockFrequency:
			pvals = []float64{blockFrequency(chunk.Bits)}
		case verdict.TestRuns:
			pvals = []float64{runs(chunk.Bits)}
		case verdict.TestCumulativeSums:
			pvals = cumulativeSums(chunk.Bits)
		default:
			continue
		}
		results[test] = verdict.TestResult{Test: test, PValues: pvals}
	}
	return results, nil
}

// frequency is the monobit test: the scaled magnitude of the ±1 partial
// sum should look half-normal for random input.
func frequency(seq bits.Sequence) float64 {
	n := float64(seq.Len())
	s := float64(2*seq.Ones() - seq.Len())
	sObs := math.Abs(s) / math.Sqrt(n)
	return math.Erfc(sObs / math.Sqrt2)
}

// blockFrequency checks the proportion of ones per block against 1/2
// with a chi-squared statistic over all full blocks.
func blockFrequency(seq bits.Sequence) float64 {
	numBlocks := seq.Len() / blockSize
	if numBlocks == 0 {
		return 0
	}

	props := make([]float64, numBlocks)
	for i := 0; i < numBlocks; i++ {
		block := seq[i*blockSize : (i+1)*blockSize]
		props[i] = float64(block.Ones()) / float64(blockSize)
	}

	chi2 := 0.0
	for _, pi := range props {
		d := pi - 0.5
		chi2 += d * d
	}
	chi2 *= 4.0 * float64(blockSize)

	dist := distuv.ChiSquared{K: float64(numBlocks)}
	return dist.Survival(chi2)
}

// runs counts oscillations between zeros and ones. The test is only
// meaningful when the monobit proportion is near 1/2; outside that band
// STS reports a hard zero, and so do we.
func runs(seq bits.Sequence) float64 {
	n := seq.Len()
	pi := float64(seq.Ones()) / float64(n)

	if math.Abs(pi-0.5) >= 2.0/math.Sqrt(float64(n)) {
		return 0
	}

	v := 1
	for i := 1; i < n; i++ {
		if seq[i] != seq[i-1] {
			v++
		}
	}

	num := math.Abs(float64(v) - 2.0*float64(n)*pi*(1.0-pi))
	den := 2.0 * math.Sqrt(2.0*float64(n)) * pi * (1.0 - pi)
	return math.Erfc(num / den)
}

// cumulativeSums reports two p-values, one per direction, from the
// maximum excursion of the ±1 random walk.
func cumulativeSums(seq bits.Sequence) []float64 {
	forward := cusumExcursion(seq, false)
	backward := cusumExcursion(seq, true)
	return []float64{
		cusumPValue(seq.Len(), forward),
		cusumPValue(seq.Len(), backward),
	}
}

func cusumExcursion(seq bits.Sequence, reverse bool) float64 {
	sum := 0
	excursions := make([]float64, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		idx := i
		if reverse {
			idx = seq.Len() - 1 - i
		}
		sum += int(seq[idx])*2 - 1
		excursions = append(excursions, math.Abs(float64(sum)))
	}
	z, err := mstats.Max(excursions)
	if err != nil {
		return 0
	}
	return z
}

func cusumPValue(n int, z float64) float64 {
	if z == 0 {
		return 0
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	sqrtN := math.Sqrt(float64(n))
	ratio := float64(n) / z

	p := 1.0
	for k := int(math.Floor((-ratio + 1) / 4)); k <= int(math.Floor((ratio-1)/4)); k++ {
		p -= norm.CDF((4*float64(k)+1)*z/sqrtN) - norm.CDF((4*float64(k)-1)*z/sqrtN)
	}
	for k := int(math.Floor((-ratio - 3) / 4)); k <= int(math.Floor((ratio-1)/4)); k++ {
		p += norm.CDF((4*float64(k)+3)*z/sqrtN) - norm.CDF((4*float64(k)+1)*z/sqrtN)
	}
	return clamp01(p)
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
