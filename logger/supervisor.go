package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Supervise runs executable with its stderr piped through a log filter and
// returns the child's exit code. JSON log lines are passed to stdout as they
// are; once the child starts printing a panic, the remaining output is
// collected and reported as a single fatal entry when it exits.
func Supervise(executable string, arg ...string) int {
	supervisorLogger := NewLogger("Supervisor")

	r, w, err := os.Pipe()
	if err != nil {
		supervisorLogger.Error().Err(err).Msg("Could not create pipe for logs")
		return 1
	}
	cmd := exec.Command(executable, arg...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = w
	if err = cmd.Start(); err != nil {
		supervisorLogger.Error().Err(err).Msg("Could not launch main process")
		return 1
	}
	// the child holds its own copy of the write end
	_ = w.Close()

	filter := newLogFilter(os.Stdout, supervisorLogger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		filter.consume(r)
	}()

	exitCode := exitCodeOf(cmd.Wait())
	<-done
	filter.report(exitCode)
	return exitCode
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

type logFilter struct {
	out        io.Writer
	log        zerolog.Logger
	foundPanic bool
	panicLogs  strings.Builder
}

func newLogFilter(out io.Writer, log zerolog.Logger) *logFilter {
	return &logFilter{out: out, log: log}
}

func (f *logFilter) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		f.handleLine(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		f.log.Error().Err(err).Msg("Error scanning piped main process's stderr")
	}
}

func (f *logFilter) handleLine(line []byte) {
	text := string(line)
	if !f.foundPanic && strings.HasPrefix(text, "panic") {
		f.foundPanic = true
	}
	switch {
	case len(line) == 0:
	case f.foundPanic:
		f.panicLogs.WriteString(text)
		f.panicLogs.WriteByte('\n')
	case json.Valid(line):
		fmt.Fprintln(f.out, text)
	default:
		f.log.Error().Msgf("Got log line that is not JSON formatted: '%s'", text)
	}
}

func (f *logFilter) report(exitCode int) {
	if exitCode == 0 {
		f.log.Info().Msg("Exited with code 0")
		return
	}
	event := f.log.WithLevel(zerolog.FatalLevel)
	if f.foundPanic {
		event = event.Err(errors.New(f.panicLogs.String()))
	}
	event.Msgf("Main process exited with code: %d", exitCode)
}
