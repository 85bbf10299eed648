// Package testkit provides in-memory stand-ins for the pipeline's
// collaborators: a scripted oracle and a job repository without a
// database behind it.
package testkit

import (
	"context"
	"sort"
	"sync"

	"bitwash/domain/bits"
	"bitwash/domain/core"
	"bitwash/domain/job"
	"bitwash/domain/verdict"
)

// FakeOracle is an OraclePort scripted by chunk content. Chunks pass by
// default; register a chunk's ASCII rendering to make it fail or to
// inject an oracle failure. Content keying survives re-chunking across
// rounds, which is what convergence tests need.
type FakeOracle struct {
	mu    sync.Mutex
	calls int

	failing    map[string]bool
	errContent map[string]error

	// Err, when set, is returned for every call.
	Err error

	// OmitTests lists requested tests to silently leave out of the
	// result set, simulating a garbled oracle report.
	OmitTests []verdict.TestName
}

// NewFakeOracle creates a fake oracle that passes everything
func NewFakeOracle() *FakeOracle {
	return &FakeOracle{
		failing:    make(map[string]bool),
		errContent: make(map[string]error),
	}
}

// FailChunk makes any chunk with these exact bits fail its first test.
func (f *FakeOracle) FailChunk(seq bits.Sequence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[seq.ASCII()] = true
}

// ErrOnChunk makes any chunk with these exact bits return err.
func (f *FakeOracle) ErrOnChunk(seq bits.Sequence, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errContent[seq.ASCII()] = err
}

// Calls reports how many oracle calls were made.
func (f *FakeOracle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// RunTests implements ports.OraclePort.
func (f *FakeOracle) RunTests(ctx context.Context, chunk bits.Chunk, tests []verdict.TestName) (map[verdict.TestName]verdict.TestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls++
	key := chunk.Bits.ASCII()
	shouldFail := f.failing[key]
	chunkErr := f.errContent[key]
	globalErr := f.Err
	omit := append([]verdict.TestName(nil), f.OmitTests...)
	f.mu.Unlock()

	if globalErr != nil {
		return nil, globalErr
	}
	if chunkErr != nil {
		return nil, chunkErr
	}

	omitted := make(map[verdict.TestName]bool, len(omit))
	for _, t := range omit {
		omitted[t] = true
	}

	results := make(map[verdict.TestName]verdict.TestResult, len(tests))
	for i, test := range tests {
		if omitted[test] {
			continue
		}
		results[test] = f.resultFor(test, shouldFail && i == 0)
	}
	return results, nil
}

func (f *FakeOracle) resultFor(test verdict.TestName, fail bool) verdict.TestResult {
	if test == verdict.TestNonOverlappingTemplate {
		pvals := make([]float64, verdict.DefaultSubTestPopulation)
		for i := range pvals {
			pvals[i] = 0.5
		}
		if fail {
			// Sink enough sub-tests to land below the required count.
			low := verdict.DefaultSubTestPopulation - verdict.DefaultSubTestRequired + 1
			for i := 0; i < low; i++ {
				pvals[i] = 0.001
			}
		}
		return verdict.TestResult{Test: test, PValues: pvals}
	}

	p := 0.5
	if fail {
		p = 0.001
	}
	return verdict.TestResult{Test: test, PValues: []float64{p}}
}

// MemoryJobRepository is a JobRepository backed by a map.
type MemoryJobRepository struct {
	mu   sync.Mutex
	jobs map[core.JobID]*job.Job
}

// NewMemoryJobRepository creates an empty in-memory repository
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[core.JobID]*job.Job)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *MemoryJobRepository) GetByID(ctx context.Context, id core.JobID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return core.ErrJobNotFound
	}
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *MemoryJobRepository) List(ctx context.Context, limit, offset int) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*job.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		cp := *j
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, k int) bool {
		return all[i].CreatedAt.After(all[k].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
