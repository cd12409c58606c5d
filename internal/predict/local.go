package predict

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kluctl/go-embed-python/python"
	"github.com/mvp-joe/omp-impact/internal/predict/server"
	"go.uber.org/zap"
)

// readyTimeout allows for model loading on the first run.
const readyTimeout = 3 * time.Minute

// localProvider runs the model inside an embedded Python runtime and talks to it over loopback HTTP.
type localProvider struct {
	modelPath  string
	runtimeDir string
	pythonPath string
	port       int
	logger     *zap.Logger

	client    *remoteProvider
	cmd       *exec.Cmd
	scriptDir string
	exited    chan error
}

// newLocalProvider creates a local provider for the model directory at modelPath. A zero
// cfg.Port picks a free loopback port at Initialize.
func newLocalProvider(cfg Config) *localProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &localProvider{
		modelPath:  cfg.ModelPath,
		runtimeDir: cfg.RuntimeDir,
		pythonPath: cfg.PythonPath,
		port:       cfg.Port,
		logger:     logger,
		client:     newRemoteProvider("", cfg.Params),
	}
}

// Initialize extracts the Python runtime, starts the generation service and waits for it.
func (p *localProvider) Initialize(ctx context.Context) error {
	if p.client.initialized {
		return nil
	}

	modelPath, err := filepath.Abs(p.modelPath)
	if err != nil {
		return fmt.Errorf("failed to resolve model path: %w", err)
	}
	if info, err := os.Stat(modelPath); err != nil || !info.IsDir() {
		return fmt.Errorf("model directory not found: %s", modelPath)
	}

	runtimeDir := p.runtimeDir
	if runtimeDir == "" {
		runtimeDir, err = defaultRuntimeDir()
		if err != nil {
			return err
		}
	}

	// Extracted once and reused; the hash suffix keeps versions apart.
	ep, err := python.NewEmbeddedPythonWithTmpDir(runtimeDir, true)
	if err != nil {
		return fmt.Errorf("failed to create embedded Python: %w", err)
	}
	if p.pythonPath != "" {
		ep.AddPythonPath(p.pythonPath)
	}

	p.scriptDir, err = os.MkdirTemp("", "omp-impact-model-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	scriptPath := filepath.Join(p.scriptDir, server.ScriptName)
	if err := os.WriteFile(scriptPath, []byte(server.GenerateScript), 0644); err != nil {
		return fmt.Errorf("failed to write generation script: %w", err)
	}

	port := p.port
	if port == 0 {
		if port, err = freePort(); err != nil {
			return err
		}
	}

	// The service echoes the instance ID on /health so a foreign listener on the same port is
	// never mistaken for it.
	instance := uuid.NewString()
	p.client.endpoint = fmt.Sprintf("http://127.0.0.1:%d", port)
	p.client.instance = instance

	cmd, err := ep.PythonCmd(scriptPath,
		"--model", modelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--instance", instance)
	if err != nil {
		return fmt.Errorf("failed to create Python command: %w", err)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start generation service: %w", err)
	}
	p.cmd = cmd
	p.exited = make(chan error, 1)
	go func() {
		p.exited <- cmd.Wait()
		close(p.exited)
	}()

	p.logger.Info("loading model", zap.String("path", modelPath), zap.Int("port", port))
	if err := p.client.waitForReady(ctx, readyTimeout, p.exited); err != nil {
		p.Close()
		return err
	}
	p.logger.Debug("model ready")
	return nil
}

// Suggest forwards to the running service.
func (p *localProvider) Suggest(ctx context.Context, prompt string) (string, error) {
	return p.client.Suggest(ctx, prompt)
}

// Close stops the Python process and removes the staged script.
func (p *localProvider) Close() error {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		<-p.exited
		p.cmd = nil
	}
	if p.scriptDir != "" {
		os.RemoveAll(p.scriptDir)
		p.scriptDir = ""
	}
	p.client.initialized = false
	return nil
}

// freePort asks the kernel for an unused loopback port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func defaultRuntimeDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "omp-impact", "python"), nil
}
