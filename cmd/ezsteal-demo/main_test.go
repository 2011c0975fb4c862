package main

import (
	"context"
	"testing"
	"time"

	"github.com/pgvanniekerk/ezsteal/internal/pool"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig_FlagsOverride(t *testing.T) {
	cfg, err := buildConfig("", 7, ":0", 250*time.Millisecond)
	require.NoError(t, err)

	require.Equal(t, 7, cfg.Pool.MaxWorkers)
	require.Equal(t, ":0", cfg.Admin.Addr)
	require.Equal(t, 250*time.Millisecond, cfg.ReportInterval())
}

func TestBuildConfig_MissingFile(t *testing.T) {
	_, err := buildConfig("does-not-exist.yaml", 0, "", 0)
	require.Error(t, err)
}

func TestSubmit_RunsWorkload(t *testing.T) {
	p := pool.New(4, pool.WithBackoff(time.Millisecond))
	defer p.Stop()

	submit(context.Background(), p, workload{
		jobs:       20,
		jobTime:    5 * time.Millisecond,
		pauseEvery: 5,
		pause:      5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	require.Equal(t, uint64(21), p.Stats().Executed)
}

func TestSubmit_StopsOnCancel(t *testing.T) {
	p := pool.New(1, pool.WithBackoff(time.Millisecond))
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	submit(ctx, p, workload{jobs: 20, pauseEvery: 1, pause: time.Hour})

	require.Equal(t, uint64(1), p.Stats().Submitted)
}

func TestRun_FastWorkload(t *testing.T) {
	cfg, err := buildConfig("", 2, "127.0.0.1:0", time.Hour)
	require.NoError(t, err)
	cfg.Log.Level = "error"

	err = run(cfg, workload{jobs: 5, jobTime: time.Millisecond, pauseEvery: 0}, 5*time.Second)
	require.NoError(t, err)
}
