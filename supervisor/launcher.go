// Package supervisor runs the external proxy client.
// This file contains the Launcher that starts client processes.
package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// LaunchSpec describes one client process to start.
type LaunchSpec struct {
	Path string
	Args []string
	// Env is appended to the environment of the current process.
	Env []string
	// Output receives every stdout and stderr line of the client.
	Output func(line string)
}

// Process is a started client process.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. It is called exactly once.
	Wait() error
	// Terminate asks the process to exit.
	Terminate() error
	// Kill forces the process to exit.
	Kill() error
}

// Launcher starts client processes.
type Launcher interface {
	Launch(spec LaunchSpec) (Process, error)
}

// ExecLauncher starts clients with os/exec.
type ExecLauncher struct{}

// Launch starts the client described by spec.
func (ExecLauncher) Launch(spec LaunchSpec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	// Grandchildren holding the output pipe must not block Wait forever
	cmd.WaitDelay = time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("failed to start %s: %w", spec.Path, err)
	}

	p := &execProcess{cmd: cmd, pw: pw, scanned: make(chan struct{})}
	go p.monitorOutput(pr, spec.Output)
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	pw      *io.PipeWriter
	scanned chan struct{}
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	p.pw.Close()
	<-p.scanned
	return err
}

func (p *execProcess) Terminate() error {
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// monitorOutput forwards the client output line by line.
func (p *execProcess) monitorOutput(r io.Reader, fn func(string)) {
	defer close(p.scanned)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	// Keep draining so the writer never blocks after a scan error
	_, _ = io.Copy(io.Discard, r)
}
