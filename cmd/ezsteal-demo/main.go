// Package main runs a demonstration workload through an ezsteal pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pgvanniekerk/ezsteal/internal/admin"
	"github.com/pgvanniekerk/ezsteal/internal/config"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
	"github.com/pgvanniekerk/ezsteal/internal/metrics"
	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/pgvanniekerk/ezsteal/internal/reporter"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	version = "dev"
)

// workload describes the demonstration jobs.
type workload struct {
	jobs       int
	jobTime    time.Duration
	pauseEvery int
	pause      time.Duration
}

func main() {
	var (
		configFile  = flag.String("config", "", "config file path (YAML/JSON)")
		envFile     = flag.String("env", ".env", "env file with EZSTEAL_* variables")
		workers     = flag.Int("workers", 0, "worker ceiling (overrides config)")
		jobs        = flag.Int("jobs", 20, "number of demo jobs")
		jobTime     = flag.Duration("job-time", time.Second, "how long each demo job sleeps")
		pauseEvery  = flag.Int("pause-every", 5, "pause after every n-th submission (0 disables)")
		pause       = flag.Duration("pause", time.Second, "length of each submission pause")
		adminAddr   = flag.String("admin", "", "admin HTTP address, e.g. :8080 (overrides config)")
		reportEvery = flag.Duration("report", 0, "stats report interval (overrides config)")
		timeout     = flag.Duration("timeout", time.Minute, "maximum time to wait for shutdown")
		showVersion = flag.Bool("version", false, "print the version")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ezsteal-demo - self-scaling work-stealing pool demonstration

Usage:
  ezsteal-demo [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Default run: ceiling 4, 20 one-second jobs
  ezsteal-demo

  # Faster run with the admin routes on :8080
  ezsteal-demo --job-time 100ms --pause 100ms --admin :8080

  # From a config file
  ezsteal-demo --config ezsteal.yaml
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ezsteal-demo version %s\n", version)
		return
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Debugf("no env file loaded from %s, reading from environment", *envFile)
	}

	cfg, err := buildConfig(*configFile, *workers, *adminAddr, *reportEvery)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	w := workload{jobs: *jobs, jobTime: *jobTime, pauseEvery: *pauseEvery, pause: *pause}
	if err := run(cfg, w, *timeout); err != nil {
		log.Fatalf("demo failed: %v", err)
	}
}

// buildConfig loads the file, if any, applies the environment and then the flags.
func buildConfig(path string, workers int, adminAddr string, report time.Duration) (*config.FileConfig, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if workers > 0 {
		cfg.Pool.MaxWorkers = workers
	}
	if adminAddr != "" {
		cfg.Admin.Addr = adminAddr
	}
	if report > 0 {
		cfg.Reporter.Interval = report.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.FileConfig, w workload, timeout time.Duration) error {
	events := logging.NewRecorder(0, cfg.NewLogger(os.Stderr))

	reg := prometheus.NewRegistry()
	m, err := metrics.New("ezsteal", "pool", reg)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, pool.WithLogger(events), pool.WithMetrics(m))

	p := pool.New(cfg.Size(), opts...)

	if cfg.Admin.Addr != "" {
		srv := admin.NewServer(cfg.Admin.Addr, admin.NewRouter(p, events, reg), events)
		if _, err := srv.Start(); err != nil {
			p.Stop()
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	if interval := cfg.ReportInterval(); interval > 0 {
		r, err := reporter.New(p, interval, events)
		if err != nil {
			p.Stop()
			return err
		}
		if err := r.Start(); err != nil {
			p.Stop()
			return err
		}
		defer r.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Info("interrupt received, stopping pool")
			cancel()
		case <-ctx.Done():
		}
	}()

	submit(ctx, p, w)

	if ctx.Err() != nil {
		p.Stop()
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, timeout)
	defer shutdownCancel()

	if err := p.Shutdown(shutdownCtx); err != nil {
		p.Stop()
		return err
	}

	stats := p.Stats()
	log.Infof("done: %d jobs executed by %d workers (%d stolen, %d scale-ups)",
		stats.Executed, stats.Workers, stats.Stolen, stats.ScaleUps)
	return nil
}

// submit feeds the demonstration jobs to p: each job sleeps for jobTime, and
// submission pauses after every pauseEvery-th job, counting from the first. A
// final quick job follows.
func submit(ctx context.Context, p *pool.ThreadPool, w workload) {
	for i := 0; i < w.jobs; i++ {
		i := i // per-iteration copy (Go 1.22 loop semantics)
		p.Execute(func() {
			log.Infof("TASK %d", i)
			time.Sleep(w.jobTime)
			log.Infof("TASK %d END", i)
		})

		if w.pauseEvery > 0 && i%w.pauseEvery == 0 {
			select {
			case <-time.After(w.pause):
			case <-ctx.Done():
				return
			}
		}
	}

	p.Execute(func() {
		log.Info("TASK2")
	})
}
