// Package runner executes external commands with a bounded wait, streaming
// their output line by line to the logger and a per-command log file.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single external command.
const DefaultTimeout = 30 * time.Minute

// waitDelay is how long Wait keeps I/O open after the process is killed.
const waitDelay = 2 * time.Second

// CommandError reports a command that failed to start, exited non-zero, or
// exceeded its time bound.
type CommandError struct {
	Argv     []string
	Dir      string
	ExitCode int
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	cmd := strings.Join(e.Argv, " ")
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out: %v", cmd, e.Err)
	case e.ExitCode > 0:
		return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
	default:
		return fmt.Sprintf("%s: %v", cmd, e.Err)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner runs commands given as structured argument lists.
type Runner struct {
	// Timeout bounds each command. Zero means DefaultTimeout; negative disables.
	Timeout time.Duration
	// LogFile is truncated and rewritten for each command. Empty disables it.
	LogFile string
	// Stream, when set, receives the raw output lines.
	Stream io.Writer
	Logger zerolog.Logger
	// Env is appended to the process environment.
	Env []string
}

// Run executes argv in dir and waits for it to finish or time out.
func (r *Runner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return &CommandError{Argv: argv, Dir: dir, Err: errors.New("empty command")}
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sink, closeSink, err := r.openSink()
	if err != nil {
		return &CommandError{Argv: argv, Dir: dir, Err: err}
	}
	defer closeSink()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.WaitDelay = waitDelay

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	r.Logger.Debug().Strs("argv", argv).Str("dir", dir).Dur("timeout", timeout).Msg("Executing command")
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &CommandError{Argv: argv, Dir: dir, Err: err}
	}

	var waitErr error
	g := new(errgroup.Group)
	g.Go(func() error { return pump(outR, "stdout", sink) })
	g.Go(func() error { return pump(errR, "stderr", sink) })
	g.Go(func() error {
		waitErr = cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
		return nil
	})
	pumpErr := g.Wait()

	r.Logger.Debug().Strs("argv", argv).Dur("duration", time.Since(start)).Msg("Command finished")

	if ctx.Err() == context.DeadlineExceeded {
		return &CommandError{Argv: argv, Dir: dir, ExitCode: -1, TimedOut: true, Err: fmt.Errorf("no result after %s: %w", timeout, ctx.Err())}
	}
	if waitErr != nil {
		ce := &CommandError{Argv: argv, Dir: dir, ExitCode: -1, Err: waitErr}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			ce.ExitCode = exitErr.ExitCode()
		}
		return ce
	}
	if pumpErr != nil {
		return &CommandError{Argv: argv, Dir: dir, Err: fmt.Errorf("reading output: %w", pumpErr)}
	}
	return nil
}

// lineSink fans each output line out to the logger, the log file and the stream.
type lineSink struct {
	mu     sync.Mutex
	logger zerolog.Logger
	file   io.Writer
	stream io.Writer
}

func (s *lineSink) write(stream, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().Str("stream", stream).Msg(line)
	if s.file != nil {
		_, _ = io.WriteString(s.file, line+"\n")
	}
	if s.stream != nil {
		_, _ = io.WriteString(s.stream, line+"\n")
	}
}

func (r *Runner) openSink() (*lineSink, func(), error) {
	s := &lineSink{logger: r.Logger, stream: r.Stream}
	if r.LogFile == "" {
		return s, func() {}, nil
	}
	f, err := os.OpenFile(r.LogFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", r.LogFile, err)
	}
	s.file = f
	return s, func() { _ = f.Close() }, nil
}

// pump reads rd to EOF. It keeps draining after a sink problem so the child
// never blocks on a full pipe.
func pump(rd io.Reader, stream string, sink *lineSink) error {
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			sink.write(stream, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
