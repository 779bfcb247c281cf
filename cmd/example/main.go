package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskpoolio/taskpool/pkg/config"
	"github.com/taskpoolio/taskpool/pkg/inspector"
	"github.com/taskpoolio/taskpool/pkg/observability/prometheus"
	"github.com/taskpoolio/taskpool/pkg/observability/tracing"
	"github.com/taskpoolio/taskpool/pkg/pool"
)

type AppConfig struct {
	Pool      PoolConfig      `yaml:"pool"`
	Inspector InspectorConfig `yaml:"inspector"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Workload  WorkloadConfig  `yaml:"workload"`
}

type PoolConfig struct {
	Workers int `yaml:"workers"`
	GrowTo  int `yaml:"grow_to"`
}

type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool `yaml:"enabled"`
	PrettyPrint bool `yaml:"pretty_print"`
}

type WorkloadConfig struct {
	Items     int `yaml:"items"`
	BatchSize int `yaml:"batch_size"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := pool.NewDefaultLogger()

	if cfg.Tracing.Enabled {
		tracingConfig := tracing.Config{
			ServiceName: "taskpool-example",
			PrettyPrint: cfg.Tracing.PrettyPrint,
		}
		if err := tracing.Initialize(context.Background(), tracingConfig); err != nil {
			logger.Warnf("failed to initialize tracing: %v", err)
		} else {
			logger.Infof("tracing enabled")
		}
	}

	metrics := prometheus.GetMetrics()

	p := pool.New(pool.Config{
		Workers:        cfg.Pool.Workers,
		Logger:         logger,
		Hooks:          metrics.Hooks(),
		TracerProvider: tracing.Provider(),
	})
	prometheus.DefaultRegisterer.MustRegister(prometheus.NewPoolCollector(p))
	logger.Infof("pool started with %d workers", p.Size())

	var ins *inspector.Inspector
	if cfg.Inspector.Enabled {
		ins = inspector.New(p, inspector.Config{
			Addr:     cfg.Inspector.Addr,
			Gatherer: prometheus.DefaultRegistry,
			Logger:   logger,
		})
		if err := ins.Start(); err != nil {
			log.Fatalf("Failed to start inspector: %v", err)
		}
	}

	go runWorkload(p, cfg, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ins != nil {
		if err := ins.Stop(shutdownCtx); err != nil {
			logger.Errorf("inspector shutdown failed: %v", err)
		}
	}
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Errorf("pool shutdown failed: %v", err)
	}
	if tracing.IsInitialized() {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("tracing shutdown failed: %v", err)
		}
	}
	logger.Infof("stopped")
}

func loadConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Pool:      PoolConfig{Workers: 4},
		Inspector: InspectorConfig{Enabled: true, Addr: ":8642"},
		Workload:  WorkloadConfig{Items: 10000, BatchSize: 8},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := config.LoadYAML(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := config.ApplyEnvOverrides("", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := config.Validate(cfg,
		config.RangeValidator("Pool.Workers", 1, 4096),
		config.RangeValidator("Workload.Items", 1, 10_000_000),
		config.RangeValidator("Workload.BatchSize", 1, 1024),
	); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runWorkload keeps the pool busy so the inspector and metrics endpoints
// have something to show. It exits once the pool rejects work.
func runWorkload(p pool.Pool, cfg *AppConfig, logger pool.Logger) {
	if err := p.Detach(func() {
		logger.Infof("warm-up task ran on pool %s", p.Stats().PoolID)
	}); err != nil {
		logger.Errorf("warm-up task rejected: %v", err)
		return
	}

	total, err := computeSquares(p, cfg.Workload.Items)
	if err != nil {
		logger.Errorf("range workload failed: %v", err)
		return
	}
	logger.Infof("computed %d squares, sum %d", cfg.Workload.Items, total)

	if cfg.Pool.GrowTo > p.Size() {
		if err := p.Resize(cfg.Pool.GrowTo); err != nil {
			logger.Errorf("resize failed: %v", err)
		} else {
			logger.Infof("pool grown to %d workers", p.Size())
		}
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		batch := make([]pool.Task, cfg.Workload.BatchSize)
		for i := range batch {
			batch[i] = func() { time.Sleep(50 * time.Millisecond) }
		}
		if err := p.Run(batch...); err != nil {
			logger.Warnf("batch rejected: %v", err)
			return
		}
		stats := p.Stats()
		logger.Infof("batch done: completed=%d failed=%d queued=%d",
			stats.Completed, stats.Failed, stats.QueueDepth)
	}
}

// computeSquares fans the index range out over the pool and reduces the
// results after the batch completes.
func computeSquares(p pool.Pool, items int) (int64, error) {
	squares := make([]int64, items)
	if err := pool.RunRange(p, 0, items, func(i int) {
		squares[i] = int64(i) * int64(i)
	}); err != nil {
		return 0, err
	}

	var total int64
	for _, s := range squares {
		total += s
	}
	return total, nil
}
