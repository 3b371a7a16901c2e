package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/ipc"
	"github.com/rbright/habla/internal/recognition"
	"github.com/rbright/habla/internal/session"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "habla")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerStopReturnsNoActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no active habla session")
}

func TestRunnerForwardsCommandsToActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t)
	commands := make(chan string, 8)

	shutdown := startIPCServerForRunnerTest(t, paths.socketPath(), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case "status":
			return ipc.Response{OK: true, State: "listening", Transcript: "hola"}
		case "stop", "reset", "toggle":
			return ipc.Response{OK: true, Message: req.Command + " requested"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	runner := Runner{}
	for _, cmd := range []string{"status", "stop", "reset", "toggle"} {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner.Stdout = stdout
		runner.Stderr = stderr

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		require.Equal(t, 0, exitCode, cmd)
		require.Empty(t, stderr.String(), cmd)
		if cmd == "status" {
			require.Equal(t, "listening \"hola\"\n", stdout.String())
		} else {
			require.Equal(t, cmd+" requested\n", stdout.String())
		}
	}

	got := []string{<-commands, <-commands, <-commands, <-commands}
	require.ElementsMatch(t, []string{"status", "stop", "reset", "toggle"}, got)
}

func TestRunnerForwardReportsOwnerRejection(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, paths.socketPath(), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: false, State: "idle", Error: "cannot stop from state idle"}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "cannot stop from state idle")
}

func TestDescribeStatus(t *testing.T) {
	require.Equal(t, "idle", describeStatus(ipc.Response{OK: true}))
	require.Equal(t, "failed engine_unavailable", describeStatus(ipc.Response{State: "failed", ErrorKind: "engine_unavailable"}))
	require.Equal(t, "finalized (translating) \"hola mundo\"", describeStatus(ipc.Response{
		State:       "finalized",
		Transcript:  "hola mundo",
		Translating: true,
	}))
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "habla.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			switch req.Command {
			case "status":
				return ipc.Response{OK: true, State: "listening"}
			default:
				return ipc.Response{OK: false, Error: "unsupported"}
			}
		}))
	}()

	resp, handled, err := tryForward(context.Background(), socketPath, "status")
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "listening", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, "reset")
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")

	cancelServer()
	require.NoError(t, <-serverDone)
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "habla.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, "status")
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "habla.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, "status")
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "audio.device")
	require.Contains(t, stdout.String(), "translator")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestRunnerToggleOwnerPathFailsWhenMicrophoneIsUndetermined(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "toggle"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")

	// owner path should clean up runtime socket on exit
	_, statErr := os.Stat(paths.socketPath())
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerToggleOwnerPathPrintsTranslation(t *testing.T) {
	paths := setupRunnerEnv(t)
	engine := &scriptedEngine{events: []recognition.Event{
		recognition.Partial("hola"),
		recognition.Final("hola mundo"),
	}}

	var requested []string
	var mu sync.Mutex
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:     &stdout,
		Stderr:     &stderr,
		engine:     engine,
		authorizer: grantAll(),
		translator: session.TranslatorFunc(func(_ context.Context, text string, done func(string)) {
			mu.Lock()
			requested = append(requested, text)
			mu.Unlock()
			go done("hello world")
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "toggle"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "hello world\n", stdout.String())

	mu.Lock()
	require.Equal(t, []string{"hola mundo"}, requested)
	mu.Unlock()
	require.Equal(t, 1, engine.starts())
	require.Equal(t, 1, engine.stops())

	_, statErr := os.Stat(paths.socketPath())
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerToggleOwnerPathReportsEmptyResult(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:     &stdout,
		Stderr:     &stderr,
		engine:     &scriptedEngine{events: []recognition.Event{recognition.Final("  ")}},
		authorizer: grantAll(),
		translator: session.TranslatorFunc(func(_ context.Context, _ string, done func(string)) {
			t.Error("translation must not be requested for an empty transcript")
			done("")
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "toggle"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "no speech recognized\n", stdout.String())
}

func TestRunnerToggleOwnerPathReportsUnavailableTranslation(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:     &stdout,
		Stderr:     &stderr,
		engine:     &scriptedEngine{events: []recognition.Event{recognition.Final("hola")}},
		authorizer: grantAll(),
		translator: session.TranslatorFunc(func(_ context.Context, _ string, done func(string)) {
			go done("")
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "toggle"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "translation unavailable")
	require.Empty(t, stdout.String())
}

func TestRunnerServeAnswersUntilCancelled(t *testing.T) {
	paths := setupRunnerEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:     &stdout,
		Stderr:     &stderr,
		engine:     &scriptedEngine{},
		authorizer: grantAll(),
		translator: session.TranslatorFunc(func(_ context.Context, _ string, done func(string)) { done("") }),
	}

	exitCh := make(chan int, 1)
	go func() {
		exitCh <- runner.Execute(ctx, []string{"--config", paths.configPath, "serve"})
	}()

	var resp ipc.Response
	require.Eventually(t, func() bool {
		var handled bool
		var err error
		resp, handled, err = tryForward(context.Background(), paths.socketPath(), "status")
		return handled && err == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, "idle", resp.State)

	resp, handled, err := tryForward(context.Background(), paths.socketPath(), "stop")
	require.True(t, handled)
	require.ErrorContains(t, err, "cannot stop from state idle")
	require.Equal(t, "idle", resp.State)

	cancel()
	select {
	case code := <-exitCh:
		require.Equal(t, 0, code, stderr.String())
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not exit after cancellation")
	}

	_, statErr := os.Stat(paths.socketPath())
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerServeRejectsSecondOwner(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, paths.socketPath(), func(_ context.Context, _ ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "idle"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestReportResultExitCodes(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	require.Equal(t, 1, runner.reportResult(sessionResult{State: fsm.Failed(fsm.ErrPermissionDenied)}))
	require.Contains(t, stderr.String(), "error:")

	require.Equal(t, 0, runner.reportResult(sessionResult{State: fsm.Finalized("hola"), Translation: "hello"}))
	require.Equal(t, 0, runner.reportResult(sessionResult{State: fsm.Stopped(fsm.StopEngine)}))
	require.Contains(t, stdout.String(), "recognizer ended the session")

	stdout.Reset()
	require.Equal(t, 0, runner.reportResult(sessionResult{State: fsm.Listening("ho"), Interrupted: true}))
	require.Equal(t, "cancelled\n", stdout.String())
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isSocketMissing(errors.New("dial unix /tmp/habla.sock: no such file or directory")))
	require.False(t, isSocketMissing(errors.New("other error")))

	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isConnectionRefused(errors.New("other error")))
}

func TestLogSessionResultWritesFailureAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logSessionResult(logger, sessionResult{
		State:       fsm.Finalized("hola"),
		Translation: "hello",
		StartedAt:   started,
		FinishedAt:  finished,
	})

	require.Contains(t, logBuf.String(), "session complete")
	require.Contains(t, logBuf.String(), "\"transcript_length\":4")
	require.Contains(t, logBuf.String(), "\"duration_ms\":1500")

	logBuf.Reset()
	logSessionResult(logger, sessionResult{
		State:      fsm.Failed(fsm.ErrEngineUnavailable),
		StartedAt:  started,
		FinishedAt: finished,
	})
	require.Contains(t, logBuf.String(), "session failed")
	require.Contains(t, logBuf.String(), "engine_unavailable")
}

// scriptedEngine replays events to the sink once started.
type scriptedEngine struct {
	events []recognition.Event

	mu      sync.Mutex
	started int
	stopped int
}

func (e *scriptedEngine) Start(_ context.Context, sink recognition.Sink) error {
	e.mu.Lock()
	e.started++
	e.mu.Unlock()
	go func() {
		for _, ev := range e.events {
			sink.OnEngineEvent(ev)
		}
	}()
	return nil
}

func (e *scriptedEngine) Stop(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped++
	return nil
}

func (e *scriptedEngine) starts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *scriptedEngine) stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func grantAll() recognition.Authorizer {
	return recognition.AuthorizerFunc(func(_ context.Context, done func(recognition.AuthorizationStatus)) {
		done(recognition.AuthorizationGranted)
	})
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func (p runnerPaths) socketPath() string {
	return filepath.Join(p.runtimeDir, ipc.SocketName)
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	content := `{
  // keep tests away from hyprctl and pulse playback
  "indicator": { "enable": false, "sound_enable": false },
  "clipboard": { "enable": false }
}
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
