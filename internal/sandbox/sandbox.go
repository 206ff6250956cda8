// Package sandbox runs a check command against an analyzed project inside a
// throwaway container.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// DefaultTimeout bounds a check when none is configured.
const DefaultTimeout = 2 * time.Minute

// WorkspacePath is where the project is mounted inside the container.
const WorkspacePath = "/workspace"

// exit code reported for a check killed by its timeout
const timeoutExitCode = 124

// Check describes the command to run against a workspace.
type Check struct {
	Image   string
	Command []string
	Timeout time.Duration
}

type Result struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Logs     string
}

// Passed reports whether the check exited cleanly in time.
func (r *Result) Passed() bool {
	return r != nil && !r.TimedOut && r.ExitCode == 0
}

// Run executes check.Command in check.Image with workDir mounted read-only
// at /workspace and networking disabled.
func Run(ctx context.Context, workDir string, check Check) (*Result, error) {
	if check.Image == "" {
		return nil, fmt.Errorf("sandbox image not set")
	}
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   workDir,
			Target:   WorkspacePath,
			ReadOnly: true,
		}},
		Init:        &initTrue,
		NetworkMode: "none",
	}
	containerCfg := &container.Config{
		Image:      check.Image,
		Cmd:        check.Command,
		WorkingDir: WorkspacePath,
		Labels:     map[string]string{"aiscore": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err == nil {
				continue
			}
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &Result{
				ExitCode: timeoutExitCode,
				TimedOut: true,
				Duration: time.Since(start),
				Logs:     tailLogs(cli, containerID),
			}, nil
		case status := <-waitResult.Result:
			return &Result{
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
				Logs:     tailLogs(cli, containerID),
			}, nil
		}
	}
}

func tailLogs(cli *client.Client, containerID string) string {
	logReader, _ := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "100",
	})
	if logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

// Runner adapts a configured check to the execution verifier.
type Runner struct {
	Config Check
	Logger *slog.Logger
	// run is replaced in tests.
	run func(ctx context.Context, workDir string, check Check) (*Result, error)
}

// NewRunner returns a Runner that executes check in Docker.
func NewRunner(check Check, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Config: check, Logger: logger, run: Run}
}

// Check runs the configured check against workDir.
func (r *Runner) Check(ctx context.Context, workDir string) (bool, error) {
	run := r.run
	if run == nil {
		run = Run
	}
	res, err := run(ctx, workDir, r.Config)
	if err != nil {
		return false, err
	}
	if !res.Passed() {
		r.logger().Info("sandbox check did not pass",
			"image", r.Config.Image, "exit_code", res.ExitCode, "timed_out", res.TimedOut, "logs", res.Logs)
	}
	return res.Passed(), nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
