package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for predictors:
// - Predict trims the prompt, rejects blank prompts, parses output
// - Predict wraps inference errors
// - NewPredictor selects local/remote and rejects unknown providers and missing settings
// - remote provider: Initialize checks /health, Suggest posts params and returns text
// - remote provider: non-200 responses surface the service error
// - remote provider: Suggest before Initialize fails
// - waitForReady returns early when the process exits
// - waitForReady rejects a listener reporting another instance ID and accepts its own
// - freePort returns a bindable loopback port
// - local provider: missing model directory fails before any process is launched

func TestPredict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mock := NewMockPredictor("a.cpp::f, b.cpp::g, nonsense")
	require.NoError(t, mock.Initialize(ctx))

	pred, err := Predict(ctx, mock, "  taskwait codegen \n")
	require.NoError(t, err)

	assert.Equal(t, "taskwait codegen", pred.Prompt)
	assert.Equal(t, []string{"a.cpp", "b.cpp"}, pred.Files)
	assert.Equal(t, []string{"a.cpp::f", "b.cpp::g"}, pred.Entries)
	assert.Equal(t, []string{"taskwait codegen"}, mock.Calls)
}

func TestPredict_EmptyPrompt(t *testing.T) {
	t.Parallel()

	mock := NewMockPredictor("")
	_, err := Predict(context.Background(), mock, "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, mock.Calls)
}

func TestPredict_InferenceError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mock := NewMockPredictor("")
	mock.Err = errors.New("cuda out of memory")
	require.NoError(t, mock.Initialize(ctx))

	_, err := Predict(ctx, mock, "atomic sema")
	require.Error(t, err)
	assert.ErrorIs(t, err, mock.Err)
	assert.Contains(t, err.Error(), "atomic sema")
}

func TestBatchPrompts(t *testing.T) {
	t.Parallel()

	assert.Len(t, BatchPrompts, 10)
	assert.Contains(t, BatchPrompts, "taskwait codegen")
	assert.Contains(t, BatchPrompts, "taskgroup codegen")
}

func TestNewPredictor(t *testing.T) {
	t.Parallel()

	p, err := NewPredictor(Config{Provider: "local", ModelPath: "./omp_t5_model"})
	require.NoError(t, err)
	local, ok := p.(*localProvider)
	require.True(t, ok)
	assert.Zero(t, local.port, "port is picked at Initialize")
	assert.Equal(t, DefaultGenerationParams(), local.client.params)

	p, err = NewPredictor(Config{Provider: "remote", Endpoint: "http://localhost:9000/"})
	require.NoError(t, err)
	remote, ok := p.(*remoteProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000", remote.endpoint)

	_, err = NewPredictor(Config{Provider: "local"})
	assert.Error(t, err)

	_, err = NewPredictor(Config{Provider: "remote"})
	assert.Error(t, err)

	_, err = NewPredictor(Config{Provider: "openai", ModelPath: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model provider")
}

func newGenerationServer(t *testing.T, handle func(req generateRequest) (int, generateResponse)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, resp := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteProvider_Suggest(t *testing.T) {
	t.Parallel()

	var got generateRequest
	srv := newGenerationServer(t, func(req generateRequest) (int, generateResponse) {
		got = req
		return http.StatusOK, generateResponse{Text: "a.cpp::f"}
	})

	ctx := context.Background()
	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	require.NoError(t, p.Initialize(ctx))

	text, err := p.Suggest(ctx, "barrier codegen")
	require.NoError(t, err)
	assert.Equal(t, "a.cpp::f", text)

	assert.Equal(t, "barrier codegen", got.Prompt)
	assert.Equal(t, 256, got.MaxLength)
	assert.Equal(t, 4, got.NumBeams)
	assert.True(t, got.EarlyStopping)
}

func TestRemoteProvider_ServiceError(t *testing.T) {
	t.Parallel()

	srv := newGenerationServer(t, func(req generateRequest) (int, generateResponse) {
		return http.StatusInternalServerError, generateResponse{Error: "model exploded"}
	})

	ctx := context.Background()
	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	require.NoError(t, p.Initialize(ctx))

	_, err := p.Suggest(ctx, "ordered flush")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteProvider_NotInitialized(t *testing.T) {
	t.Parallel()

	p := newRemoteProvider("http://127.0.0.1:1", DefaultGenerationParams())
	_, err := p.Suggest(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestRemoteProvider_InitializeUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestWaitForReady_ProcessExited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	exited := make(chan error, 1)
	exited <- errors.New("exit status 1")

	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	err := p.waitForReady(context.Background(), time.Minute, exited)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited before becoming ready")
	assert.False(t, p.initialized)
}

func newHealthServer(t *testing.T, instance string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Instance: instance})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "other-model.cpp::fromAnotherProcess"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWaitForReady_ForeignService(t *testing.T) {
	t.Parallel()

	srv := newHealthServer(t, "some-other-run")

	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	p.instance = "3f0c1a52-launch"
	err := p.waitForReady(context.Background(), 1200*time.Millisecond, make(chan error))
	require.Error(t, err)
	assert.ErrorIs(t, err, errForeignService)
	assert.False(t, p.initialized)

	_, err = p.Suggest(context.Background(), "taskwait codegen")
	assert.Error(t, err, "a foreign service must never serve predictions")
}

func TestWaitForReady_OwnInstance(t *testing.T) {
	t.Parallel()

	srv := newHealthServer(t, "3f0c1a52-launch")

	p := newRemoteProvider(srv.URL, DefaultGenerationParams())
	p.instance = "3f0c1a52-launch"
	require.NoError(t, p.waitForReady(context.Background(), 5*time.Second, make(chan error)))
	assert.True(t, p.initialized)
}

func TestFreePort(t *testing.T) {
	t.Parallel()

	port, err := freePort()
	require.NoError(t, err)
	assert.Positive(t, port)

	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestLocalProvider_MissingModelDir(t *testing.T) {
	t.Parallel()

	p := newLocalProvider(Config{ModelPath: filepath.Join(t.TempDir(), "missing")})
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model directory not found")
	assert.Nil(t, p.cmd)
	assert.NoError(t, p.Close())
}
