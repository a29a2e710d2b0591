// Package batch converts local files through the conversion pipeline.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosuri/uiprogress"
	"github.com/rs/zerolog"

	"plaid.dev/conllu/logger"
	"plaid.dev/conllu/pipeline"
)

type Options struct {
	Direction pipeline.Direction
	// glob of input files
	In      string
	OutDir  string
	Profile string
	// hide the progress bar, for tests and non-interactive runs
	Quiet bool
}

var ErrNoInput = errors.New("no input files matched")

// Run converts every file matching opts.In and writes the results to
// opts.OutDir. It stops at the first failing file and returns the number of
// files converted before it.
func Run(ppln pipeline.Pipeline, opts Options) (int, error) {
	batchLogger := logger.NewLogger("Batch").With().
		Str("direction", string(opts.Direction)).
		Str("profile", opts.Profile).
		Logger()

	files, err := filepath.Glob(opts.In)
	if err != nil {
		return 0, fmt.Errorf("bad input pattern %q: %w", opts.In, err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoInput, opts.In)
	}
	sort.Strings(files)
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	var bar *uiprogress.Bar
	if !opts.Quiet {
		uiprogress.Start()
		defer uiprogress.Stop()
		bar = uiprogress.AddBar(len(files))
		bar.AppendCompleted()
		bar.PrependElapsed()
		bar.AppendFunc(func(b *uiprogress.Bar) string {
			if b.Current() == 0 {
				return ""
			}
			return filepath.Base(files[b.Current()-1])
		})
	}

	count := 0
	for _, file := range files {
		if err := convertFile(ppln, opts, file, batchLogger); err != nil {
			return count, fmt.Errorf("%s: %w", file, err)
		}
		count++
		if bar != nil {
			bar.Incr()
		}
	}
	batchLogger.Info().Int("files", count).Str("out", opts.OutDir).Msg("Batch conversion finished")
	return count, nil
}

func convertFile(ppln pipeline.Pipeline, opts Options, file string, log zerolog.Logger) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	response, ok := <-ppln(pipeline.Request{
		Tid:       name,
		Direction: opts.Direction,
		Profile:   opts.Profile,
		Body:      data,
	})
	if !ok {
		return errors.New("pipeline channel was closed before returning anything")
	}
	if response.Err != nil {
		return response.Err
	}
	out := OutputPath(opts.OutDir, file, opts.Direction)
	log.Debug().Str("file", file).Str("result", out).Msg("Converted file")
	return os.WriteFile(out, response.Body, 0o644)
}

// OutputPath names the result of converting file: the base name with the
// extension of the direction's output format.
func OutputPath(outDir, file string, direction pipeline.Direction) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(outDir, name+"."+direction.Extension())
}
