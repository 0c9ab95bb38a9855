// Package executor is the boundary to the external process that performs the
// actual work: an agent CLI run inside a long-lived container via docker exec.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Executor runs one instruction to completion and reports its combined text
// output. Invocation-level failures (launch failure, timeout) are captured in
// the return values rather than raised: ok is false and the output carries a
// recognizable error indicator.
type Executor interface {
	Execute(ctx context.Context, instruction, workdir string, timeout time.Duration) (output string, ok bool)
}

// DockerExecutor invokes the agent CLI inside a running container:
//
//	docker exec -w <workdir> <container> <agentCmd...> <instruction>
type DockerExecutor struct {
	container string
	agentCmd  []string
	dockerCmd string
	logger    *slog.Logger
}

// NewDockerExecutor creates an executor bound to a container. agentCmd is the
// argv prefix run inside the container, e.g. ["claude", "-p"]. Podman is used
// when it is installed and docker is not.
func NewDockerExecutor(container string, agentCmd []string, logger *slog.Logger) *DockerExecutor {
	dockerCmd := "docker"
	if _, err := exec.LookPath("podman"); err == nil {
		if _, err := exec.LookPath("docker"); err != nil {
			dockerCmd = "podman"
		}
	}

	return &DockerExecutor{
		container: container,
		agentCmd:  agentCmd,
		dockerCmd: dockerCmd,
		logger:    logger,
	}
}

// Execute runs the instruction and returns combined stdout+stderr. A nonzero
// agent exit is not an invocation failure: the output is still meaningful and
// the caller's signal parsing decides what happens next.
func (d *DockerExecutor) Execute(ctx context.Context, instruction, workdir string, timeout time.Duration) (string, bool) {
	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append([]string{"exec", "-w", workdir, d.container}, d.agentCmd...)
	args = append(args, instruction)

	cmd := exec.CommandContext(execCtx, d.dockerCmd, args...)

	var combined strings.Builder
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	d.logger.Debug("invoking agent", "container", d.container, "workdir", workdir)

	err := cmd.Run()
	output := combined.String()

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		d.logger.Warn("agent invocation timed out", "container", d.container, "timeout", timeout)
		return output + fmt.Sprintf("\nERROR: timeout after %s", timeout), false
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The agent ran and exited nonzero; its output still counts.
			d.logger.Warn("agent exited nonzero", "container", d.container, "exit_code", exitErr.ExitCode())
			return output, true
		}
		d.logger.Error("agent invocation failed", "container", d.container, "error", err)
		return output + fmt.Sprintf("\nERROR: %v", err), false
	}

	return output, true
}

// CheckContainer reports whether the container is running.
func (d *DockerExecutor) CheckContainer(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.dockerCmd, "inspect", "-f", "{{.State.Running}}", d.container)
	out, err := cmd.Output()
	if err != nil {
		d.logger.Debug("container inspect failed", "container", d.container, "error", err)
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// CheckAgent reports whether the agent CLI responds inside the container.
func (d *DockerExecutor) CheckAgent(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.dockerCmd, "exec", d.container, d.agentCmd[0], "--version")
	if err := cmd.Run(); err != nil {
		d.logger.Debug("agent version check failed", "container", d.container, "error", err)
		return false
	}
	return true
}
