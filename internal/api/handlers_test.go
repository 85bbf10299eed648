package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitwash/app"
	"bitwash/domain/core"
	"bitwash/domain/job"
	"bitwash/internal/config"
	"bitwash/internal/testkit"
)

func testServer(t *testing.T) (*Server, *testkit.MemoryJobRepository) {
	t.Helper()

	repo := testkit.NewMemoryJobRepository()
	factory := func() *app.SanitizeService {
		return app.NewSanitizeService(
			testkit.NewFakeOracle(),
			testkit.NewFakeOracle(),
			config.PipelineConfig{
				ChunkSize:         8,
				PrecheckChunkSize: 4,
				PrecheckEnabled:   true,
				MaxRounds:         4,
				Alpha:             0.01,
				SubTestRequired:   143,
				SubTestPopulation: 148,
			},
			1,
		)
	}
	return NewServer(repo, factory, t.TempDir(), 1<<20, 8), repo
}

func uploadRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "entropy.dat")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// waitForTerminal polls the repository until the job reaches a final
// status; the pipeline runs on a background goroutine.
func waitForTerminal(t *testing.T, repo *testkit.MemoryJobRepository, id core.JobID) *job.Job {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal status")
	return nil
}

// TestUploadToDownload walks the whole job lifecycle: upload, poll,
// download the surviving bits.
func TestUploadToDownload(t *testing.T) {
	s, repo := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, []byte{0xAA, 0x55}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted["job_id"])

	id, err := core.ParseJobID(accepted["job_id"])
	require.NoError(t, err)

	j := waitForTerminal(t, repo, id)
	require.Equal(t, job.StatusCompleted, j.Status, "error: %s", j.ErrorMessage)
	assert.Equal(t, 16, j.BitsIn)
	assert.Equal(t, 16, j.BitsOut)
	assert.Equal(t, 1, j.RoundsRun)
	require.NotNil(t, j.StartedAt)
	require.NotNil(t, j.CompletedAt)

	// Status endpoint reflects the finished job.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Download the surviving bits in ASCII form.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id.String()+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1010101001010101", rec.Body.String())

	// The round report workbook was produced alongside.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id.String()+"/report.xlsx", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// And the rendered report page.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id.String()+"/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestUploadMissingFileField tests the multipart contract
func TestUploadMissingFileField(t *testing.T) {
	s, _ := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestUploadEmptyFile tests that a zero-byte upload is rejected up front
func TestUploadEmptyFile(t *testing.T) {
	s, repo := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	jobs, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs, "no job record for a rejected upload")
}

// TestStatusUnknownJob tests 404 for an absent but well-formed id
func TestStatusUnknownJob(t *testing.T) {
	s, _ := testServer(t)

	id := core.NewID().String()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestStatusMalformedID tests 400 for a non-UUID id
func TestStatusMalformedID(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestDownloadBeforeCompletion tests the 409 guard on unfinished jobs
func TestDownloadBeforeCompletion(t *testing.T) {
	s, repo := testServer(t)

	j := job.New("pending.dat", "/nowhere/input.dat", "/nowhere/output.bit", 8)
	require.NoError(t, repo.Create(context.Background(), j))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+j.ID.String()+"/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// TestDownloadEmptyJob tests that an empty outcome has no artifact
func TestDownloadEmptyJob(t *testing.T) {
	s, repo := testServer(t)

	j := job.New("empty.dat", "/nowhere/input.dat", "/nowhere/output.bit", 8)
	j.Status = job.StatusEmpty
	require.NoError(t, repo.Create(context.Background(), j))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+j.ID.String()+"/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// TestListJobs tests the listing endpoint with pagination
func TestListJobs(t *testing.T) {
	s, repo := testServer(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), job.New("f.dat", "in", "out", 8)))
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var all []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

// TestUploadFailedOracle tests that a dead oracle yields a failed job,
// never a false "empty" verdict
func TestUploadFailedOracle(t *testing.T) {
	repo := testkit.NewMemoryJobRepository()
	factory := func() *app.SanitizeService {
		broken := testkit.NewFakeOracle()
		broken.Err = core.ErrOracleUnavailable
		return app.NewSanitizeService(broken, broken, config.PipelineConfig{
			ChunkSize:         8,
			PrecheckChunkSize: 4,
			PrecheckEnabled:   true,
			MaxRounds:         4,
			Alpha:             0.01,
			SubTestRequired:   143,
			SubTestPopulation: 148,
		}, 1)
	}
	s := NewServer(repo, factory, t.TempDir(), 1<<20, 8)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, []byte{0xAA, 0x55}))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	id, err := core.ParseJobID(accepted["job_id"])
	require.NoError(t, err)

	j := waitForTerminal(t, repo, id)
	assert.Equal(t, job.StatusFailed, j.Status)
	assert.NotEmpty(t, j.ErrorMessage)
}
