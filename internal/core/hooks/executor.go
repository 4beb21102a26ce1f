package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/aki/parley/internal/core/logger"
)

const waitDelay = time.Second

// Executor executes hooks
type Executor struct {
	workingDir string
	env        map[string]string
	logger     logger.Logger
}

// NewExecutor creates an executor that runs commands in workingDir with env
// added to the process environment
func NewExecutor(workingDir string, env map[string]string, log logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		workingDir: workingDir,
		env:        env,
		logger:     log.With("component", "hooks"),
	}
}

// Execute runs hooks for event in order. vars are exported as extra
// environment variables next to PARLEY_EVENT. A failing hook stops the
// rest only when its strategy is ErrorStrategyFail.
func (e *Executor) Execute(ctx context.Context, event Event, hooks []Hook, vars map[string]string) ([]ExecutionResult, error) {
	results := make([]ExecutionResult, 0, len(hooks))
	for _, hook := range hooks {
		result := e.run(ctx, event, hook, vars)
		results = append(results, result)
		if result.Error == nil {
			e.logger.Debug("hook finished", "event", event, "hook", hook.Name, "output", result.Output)
			continue
		}

		switch hook.onError() {
		case ErrorStrategyFail:
			return results, fmt.Errorf("hook '%s' failed: %w", hook.Name, result.Error)
		case ErrorStrategyWarn:
			e.logger.Warn("hook failed",
				"event", event,
				"hook", hook.Name,
				"exit_code", result.ExitCode,
				"error", result.Error,
				"output", result.Output)
		case ErrorStrategyIgnore:
		}
	}
	return results, nil
}

func (e *Executor) run(ctx context.Context, event Event, hook Hook, vars map[string]string) ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, hook.timeout())
	defer cancel()

	cmd := shellCommand(ctx, hook.Command)
	cmd.Dir = e.workingDir
	// Children of the shell may keep the output pipe open after it is killed
	cmd.WaitDelay = waitDelay

	cmd.Env = append(os.Environ(), "PARLEY_EVENT="+string(event))
	for _, env := range []map[string]string{e.env, vars, hook.Env} {
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	result := ExecutionResult{Hook: hook, StartTime: time.Now()}
	err := cmd.Run()
	result.EndTime = time.Now()
	result.Output = output.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", hook.timeout(), err)
		}
		result.Error = err
	}
	return result
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
