package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"plaid.dev/conllu/api"
	"plaid.dev/conllu/batch"
	"plaid.dev/conllu/logger"
	"plaid.dev/conllu/pipeline"
	"plaid.dev/conllu/types"
	"plaid.dev/conllu/worker"
)

type Config struct {
	ConfigPath    string `envconfig:"CONLLU_CONFIG_PATH" default:"configs"`
	RestAPIActive bool   `envconfig:"CONLLU_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"CONLLU_REST_API_PORT" default:"10000"`
	WorkerActive  bool   `envconfig:"CONLLU_WORKER_ACTIVE" default:"true"`
}

const pipelineStartMaxRetries = 5

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")

	supervise := flag.Bool("supervise", false, "run the service as a child process and report its panics as JSON logs")
	convert := flag.String("convert", "", "convert local files instead of serving: import or export")
	in := flag.String("in", "", "glob of input files for -convert")
	out := flag.String("out", ".", "output directory for -convert")
	profile := flag.String("profile", "", "conversion profile name for -convert")
	flag.Parse()

	if *supervise {
		os.Exit(logger.Supervise(os.Args[0], withoutFlag(os.Args[1:], "supervise")...))
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		mainLogger.Fatal().Caller().Err(err).Msg("Failed to read environment")
	}

	if *convert != "" {
		if err := runBatch(config, *convert, *in, *out, *profile, mainLogger); err != nil {
			mainLogger.Fatal().Err(err).Msg("Batch conversion failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ppln, err := loadPipeline(ctx, config.ConfigPath, mainLogger)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Could not start pipeline")
	}

	if config.RestAPIActive {
		go serveAPI(ctx, config.RestAPIPort, ppln, mainLogger)
	}
	if !config.WorkerActive {
		<-ctx.Done()
		return
	}

	mainLogger.Info().Msg("Start CoNLL-U Worker")
	for ctx.Err() == nil {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
		}
		if err = rmqWorker.StartWorker(ctx); err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			sleep(ctx, 5*time.Second)
		}
	}
	mainLogger.Info().Msg("Worker stopped")
}

// loadPipeline retries reading the profile directory, which may be mounted
// after the process starts.
func loadPipeline(ctx context.Context, configPath string, mainLogger zerolog.Logger) (pipeline.Pipeline, error) {
	for retry := 0; retry < pipelineStartMaxRetries; retry++ {
		cfgs, err := types.LoadConfigurations(configPath)
		if err == nil {
			mainLogger.Info().Msgf("Loaded %d configurations", len(cfgs))
			return pipeline.New(cfgs), nil
		}
		mainLogger.Err(err).Msg("Failed to load configurations. Retrying in 5 sec")
		if !sleep(ctx, 5*time.Second) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("could not load configurations after %d retries", pipelineStartMaxRetries)
}

func serveAPI(ctx context.Context, port string, ppln pipeline.Pipeline, mainLogger zerolog.Logger) {
	mux := http.NewServeMux()
	(&api.Request{Pipeline: ppln}).Routes(mux)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	mainLogger.Info().Msgf("REST API on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLogger.Fatal().Caller().Err(err).Msg("REST API stopped with error")
	}
}

func runBatch(config Config, direction, in, out, profile string, mainLogger zerolog.Logger) error {
	d, err := pipeline.ParseDirection(direction)
	if err != nil {
		return err
	}
	if in == "" {
		return errors.New("-in is required with -convert")
	}
	cfgs, err := types.LoadConfigurations(config.ConfigPath)
	if err != nil {
		mainLogger.Warn().Err(err).Msg("No profiles loaded, only the default profile is available")
	}
	count, err := batch.Run(pipeline.New(cfgs), batch.Options{
		Direction: d,
		In:        in,
		OutDir:    out,
		Profile:   profile,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Converted %d files into %s\n", count, out)
	return nil
}

func withoutFlag(args []string, name string) []string {
	var rest []string
	for _, arg := range args {
		if arg == "-"+name || arg == "--"+name || arg == "-"+name+"=true" || arg == "--"+name+"=true" {
			continue
		}
		rest = append(rest, arg)
	}
	return rest
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
