// Package supervisor runs the external proxy client.
// This file contains the Supervisor type which owns at most one running
// client and restarts it when the effective configuration changes.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/storage"
)

// outputTail is the number of client output lines attached to a ProcessError.
const outputTail = 20

// Options configures a Supervisor.
type Options struct {
	// Command is the client executable followed by its fixed arguments.
	Command []string
	// RunDir receives the per-run configuration file.
	RunDir string
	// StopTimeout bounds the graceful stop before the client is killed.
	StopTimeout time.Duration
	// KillTimeout bounds the wait after the kill.
	KillTimeout time.Duration
	// Launcher starts processes; ExecLauncher when nil.
	Launcher Launcher
}

// RunInfo describes one client run.
type RunInfo struct {
	RunID   string
	Label   string
	PID     int
	Started time.Time
	Config  storage.ClientConfig
}

type run struct {
	info     RunInfo
	proc     Process
	file     string
	done     chan struct{}
	stopping bool

	outMu  sync.Mutex
	output []string
}

func (r *run) appendOutput(line string) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	r.output = append(r.output, line)
	if len(r.output) > outputTail {
		r.output = r.output[len(r.output)-outputTail:]
	}
}

func (r *run) lastOutput() []string {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	return append([]string(nil), r.output...)
}

// Supervisor owns at most one client process and reconciles it with the
// desired state.
type Supervisor struct {
	opts Options

	// opMu serializes Apply and Stop.
	opMu sync.Mutex

	mu      sync.Mutex
	current *run
	onError func(*common.ProcessError)
	onExit  func(RunInfo)
}

// New creates a supervisor.
func New(opts Options) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = common.StopTimeout
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = common.KillTimeout
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	opts.Command = append([]string(nil), opts.Command...)
	return &Supervisor{opts: opts}
}

// SetOnError registers the callback for asynchronous spawn and exit faults.
func (s *Supervisor) SetOnError(fn func(*common.ProcessError)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// SetOnExit registers the callback invoked whenever a run ends, requested
// or not.
func (s *Supervisor) SetOnExit(fn func(RunInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExit = fn
}

// Current returns the active run, if any.
func (s *Supervisor) Current() (RunInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return RunInfo{}, false
	}
	return s.current.info, true
}

// CheckCommand reports whether the client executable can be resolved.
func (s *Supervisor) CheckCommand() (string, error) {
	if len(s.opts.Command) == 0 || s.opts.Command[0] == "" {
		return "", common.ErrNoClient
	}
	return exec.LookPath(s.opts.Command[0])
}

// Apply brings the client process in line with enabled and cfg. The process
// runs iff enabled is true and cfg is non-nil. A running client started from
// an equal configuration is left alone; a different one is restarted.
//
// Spawn failures are reported through the error callback, not returned.
// The returned error is non-nil only when a running client could not be
// stopped.
func (s *Supervisor) Apply(ctx context.Context, enabled bool, cfg *storage.ClientConfig) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !enabled || cfg == nil {
		return s.stopLocked(ctx)
	}

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil {
		if cur.info.Config.Equal(*cfg) {
			common.LogDebug("Supervisor: %s already running", cfg.DisplayName())
			return nil
		}
		common.LogInfo("Supervisor: configuration changed, restarting client")
		if err := s.stopLocked(ctx); err != nil {
			return err
		}
	}

	s.start(*cfg)
	return nil
}

// Stop stops the running client. It is a no-op when nothing runs.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) start(cfg storage.ClientConfig) {
	r := &run{
		info: RunInfo{
			RunID:  uuid.NewString(),
			Label:  cfg.DisplayName(),
			Config: cfg.Clone(),
		},
		done: make(chan struct{}),
	}

	common.LogInfo("Supervisor: starting client for %s", r.info.Label)

	if len(s.opts.Command) == 0 || s.opts.Command[0] == "" {
		s.reportSpawn(r, common.ErrNoClient)
		return
	}

	file, err := s.writeRunFile(r.info.RunID, cfg)
	if err != nil {
		s.reportSpawn(r, err)
		return
	}
	r.file = file

	args := append(append([]string(nil), s.opts.Command[1:]...), "-c", file)
	proc, err := s.opts.Launcher.Launch(LaunchSpec{
		Path: s.opts.Command[0],
		Args: args,
		Env:  clientEnv(cfg, file),
		Output: func(line string) {
			common.LogInfo("Client: %s", line)
			r.appendOutput(line)
		},
	})
	if err != nil {
		os.Remove(file)
		s.reportSpawn(r, err)
		return
	}

	r.proc = proc
	r.info.PID = proc.Pid()
	r.info.Started = time.Now()

	s.mu.Lock()
	s.current = r
	s.mu.Unlock()

	common.LogInfo("Supervisor: client started with PID %d", r.info.PID)
	go s.wait(r)
}

// wait observes the end of a run.
func (s *Supervisor) wait(r *run) {
	err := r.proc.Wait()

	if r.file != "" {
		os.Remove(r.file)
	}

	s.mu.Lock()
	if s.current == r {
		s.current = nil
	}
	requested := r.stopping
	onError := s.onError
	onExit := s.onExit
	s.mu.Unlock()

	close(r.done)

	if requested {
		common.LogInfo("Supervisor: client for %s stopped", r.info.Label)
	} else {
		if err == nil {
			err = common.ErrUnexpectedEnd
		}
		common.LogError("Supervisor: client for %s exited: %v", r.info.Label, err)
	}

	if onExit != nil {
		onExit(r.info)
	}
	if !requested && onError != nil {
		onError(&common.ProcessError{
			Kind:   common.KindExit,
			RunID:  r.info.RunID,
			Label:  r.info.Label,
			Err:    err,
			Output: r.lastOutput(),
		})
	}
}

func (s *Supervisor) stopLocked(ctx context.Context) error {
	s.mu.Lock()
	r := s.current
	if r != nil {
		r.stopping = true
	}
	s.mu.Unlock()

	if r == nil {
		return nil
	}

	common.LogInfo("Supervisor: stopping client for %s (PID %d)", r.info.Label, r.info.PID)
	if err := r.proc.Terminate(); err != nil {
		common.LogDebug("Supervisor: terminate signal failed: %v", err)
	}

	stopTimer := time.NewTimer(s.opts.StopTimeout)
	defer stopTimer.Stop()

	select {
	case <-r.done:
		return nil
	case <-stopTimer.C:
		common.LogWarn("Supervisor: client did not exit within %v, killing", s.opts.StopTimeout)
	case <-ctx.Done():
		common.LogWarn("Supervisor: stop interrupted, killing client")
	}

	if err := r.proc.Kill(); err != nil {
		common.LogDebug("Supervisor: kill failed: %v", err)
	}

	killTimer := time.NewTimer(s.opts.KillTimeout)
	defer killTimer.Stop()

	select {
	case <-r.done:
		return nil
	case <-killTimer.C:
		s.abandon(r)
		return &common.ProcessError{
			Kind:   common.KindTerminate,
			RunID:  r.info.RunID,
			Label:  r.info.Label,
			Err:    common.ErrStopTimedOut,
			Output: r.lastOutput(),
		}
	}
}

// abandon forgets a run that survived the kill so later Apply calls start
// a fresh client instead of waiting on it again.
func (s *Supervisor) abandon(r *run) {
	s.mu.Lock()
	if s.current == r {
		s.current = nil
	}
	s.mu.Unlock()

	if r.file != "" {
		os.Remove(r.file)
	}
	common.LogError("Supervisor: client for %s (PID %d) did not die, abandoning it", r.info.Label, r.info.PID)
}

func (s *Supervisor) reportSpawn(r *run, err error) {
	common.LogError("Supervisor: could not start client for %s: %v", r.info.Label, err)

	s.mu.Lock()
	onError := s.onError
	s.mu.Unlock()

	if onError == nil {
		return
	}
	pe := &common.ProcessError{
		Kind:  common.KindSpawn,
		RunID: r.info.RunID,
		Label: r.info.Label,
		Err:   err,
	}
	go onError(pe)
}

// writeRunFile stores the payload for the client. The file holds
// credentials and is removed when the run ends.
func (s *Supervisor) writeRunFile(runID string, cfg storage.ClientConfig) (string, error) {
	payload := cfg.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode client payload: %w", err)
	}

	dir := s.opts.RunDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, runID[:8]+"-"+common.ClientConfigName)
	if err := common.WriteFileAtomic(path, data, 0600); err != nil {
		return "", &common.IOError{Op: "write client config", Path: path, Err: err}
	}
	return path, nil
}

// clientEnv exports the payload as PROXY_TRAY_<KEY> variables.
func clientEnv(cfg storage.ClientConfig, file string) []string {
	keys := make([]string, 0, len(cfg.Payload))
	for k := range cfg.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		env = append(env, common.EnvPrefix+envName(k)+"="+cfg.Payload[k])
	}
	env = append(env, common.EnvLabel+"="+cfg.DisplayName(), common.EnvConfigFile+"="+file)
	return env
}

func envName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
}
