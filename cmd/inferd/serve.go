package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/coord"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config)")
	return cmd
}

func runServe(opts *rootOptions, addrOverride string) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	rt, err := cfg.Normalize()
	if err != nil {
		return err
	}
	if addrOverride != "" {
		rt.Addr = addrOverride
	}
	level := rt.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := newLogger(level)

	// One coordinator per GPU: refuse to start if another instance holds
	// the lock file.
	lock := flock.New(rt.LockFile)
	held, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", rt.LockFile, err)
	}
	if !held {
		return fmt.Errorf("another inferd instance holds %s", rt.LockFile)
	}
	defer lock.Unlock()

	shutdownTracing, err := observability.InitTracingFromEnv("inferd")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	models := make([]coord.ModelConfig, 0, len(rt.Models))
	for _, m := range rt.Models {
		eng, err := engine.New(engine.Spec{
			Kind:       m.Engine,
			LoadDelay:  m.LoadDelay,
			InferDelay: m.InferDelay,
			ModelPath:  m.ModelPath,
			CtxSize:    m.CtxSize,
			Threads:    m.Threads,
		})
		if err != nil {
			return fmt.Errorf("model %s: %w", m.ID, err)
		}
		admitBackoff, _ := time.ParseDuration(m.AdmitBackoff) // validated by Normalize
		models = append(models, coord.ModelConfig{
			ID:            m.ID,
			Engine:        eng,
			Capacity:      m.Capacity,
			AdmitAttempts: m.AdmitAttempts,
			AdmitBackoff:  admitBackoff,
		})
	}

	c := coord.New(coord.Options{
		Models:        models,
		JobTTL:        rt.JobTTL,
		SweepInterval: rt.SweepInterval,
		Logger:        logger,
	})
	defer c.Close()

	httpapi.SetLogger(logger)
	httpapi.SetCORSOptions(rt.CORS.Enabled, rt.CORS.Origins, rt.CORS.Methods, rt.CORS.Headers)
	srv := &http.Server{Addr: rt.Addr, Handler: httpapi.NewMux(c)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", rt.Addr).
			Int("models", len(models)).
			Bool("llama_engine", engine.LlamaSupported()).
			Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}

// loadConfig reads the config file when given, otherwise falls back to a
// single echo model so the daemon can be tried without any setup.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Config{
			Models: []config.Model{
				{ID: "echo", Engine: "echo", LoadDelay: "2s", InferDelay: "500ms"},
			},
		}, nil
	}
	return config.Load(path)
}
