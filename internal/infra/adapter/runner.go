// Package adapter implements the default domain.Adapter: it invokes a
// module's entry script as a short-lived external process, exchanging a
// single JSON object over stdout per call.
package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
)

// DefaultTimeout is the adapter call timeout used when the caller doesn't
// override it (the spec's "around 30s" default for lifecycle calls).
const DefaultTimeout = 30 * time.Second

// Runner spawns `<interpreter> <entry> <function> <config-json>` per call
// and parses the child's stdout as a single domain.AdapterResult.
type Runner struct {
	Interpreter string // e.g. "python3"; empty falls back to "python3"
	Entry       string // path to the module's entry script
	Timeout     time.Duration
}

// New creates a Runner for the given module entry path.
func New(interpreter, entry string) *Runner {
	return &Runner{Interpreter: interpreter, Entry: entry, Timeout: DefaultTimeout}
}

var _ domain.Adapter = (*Runner)(nil)
var _ domain.ProgressAdapter = (*Runner)(nil)

func (r *Runner) Start(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return r.invoke(ctx, "start", config)
}

func (r *Runner) Stop(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return r.invoke(ctx, "stop", config)
}

func (r *Runner) Status(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return r.invoke(ctx, "status", config)
}

func (r *Runner) Command(ctx context.Context, config map[string]any) (domain.AdapterResult, error) {
	return r.invoke(ctx, "command", config)
}

func (r *Runner) invoke(ctx context.Context, function string, config map[string]any) (domain.AdapterResult, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return domain.AdapterResult{}, fmt.Errorf("marshal adapter config: %w", err)
	}

	args := []string{r.Entry, function, string(configJSON)}
	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	cmd := exec.CommandContext(callCtx, interpreter, args...)
	configureProcess(cmd)

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: 8192}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	if callCtx.Err() == context.DeadlineExceeded {
		return domain.AdapterResult{}, fmt.Errorf("%w: adapter call %q timed out after %v", domain.ErrAdapterExit, function, timeout)
	}

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		if _, ok := runErr.(*exec.ExitError); ok {
			return domain.AdapterResult{}, fmt.Errorf("%w: %s", domain.ErrAdapterExit, msg)
		}
		return domain.AdapterResult{}, fmt.Errorf("%w: %v", domain.ErrAdapterSpawn, runErr)
	}

	var result domain.AdapterResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &result); err != nil {
		return domain.AdapterResult{}, fmt.Errorf("%w: parse adapter output for %q: %v", domain.ErrAdapterExit, function, err)
	}
	return result, nil
}

// progressRecord is one newline-delimited JSON line an adapter may write to
// its progress channel during a long-running start call.
type progressRecord struct {
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// StartWithProgress behaves like Start but also forwards structured
// {progress, message} records the script writes, newline-delimited, to its
// file descriptor 3 (ExtraFiles[0]) — a pipe this runner creates and
// polls in the background.
func (r *Runner) StartWithProgress(ctx context.Context, config map[string]any, progress func(pct float64, message string)) (domain.AdapterResult, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return domain.AdapterResult{}, fmt.Errorf("marshal adapter config: %w", err)
	}

	pr, pw, err := newProgressPipe()
	if err != nil {
		return domain.AdapterResult{}, fmt.Errorf("create progress pipe: %w", err)
	}

	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	cmd := exec.CommandContext(callCtx, interpreter, r.Entry, "start", string(configJSON))
	configureProcess(cmd)
	cmd.ExtraFiles = []*os.File{pw}

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: 8192}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanProgress(pr, progress)
	}()

	runErr := cmd.Run()
	pw.Close()
	wg.Wait()
	pr.Close()

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return domain.AdapterResult{}, fmt.Errorf("%w: %s", domain.ErrAdapterExit, msg)
	}

	var result domain.AdapterResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &result); err != nil {
		return domain.AdapterResult{}, fmt.Errorf("%w: parse adapter output: %v", domain.ErrAdapterExit, err)
	}
	return result, nil
}

// newProgressPipe creates the OS pipe handed to the child as its file
// descriptor 3 (ExtraFiles[0]).
func newProgressPipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

// scanProgress reads newline-delimited JSON progress records from r until
// EOF (the writer end closes when the child exits), invoking progress for
// each successfully parsed line and silently skipping malformed ones.
func scanProgress(r *os.File, progress func(pct float64, message string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec progressRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if progress != nil {
			progress(rec.Progress, rec.Message)
		}
	}
}
