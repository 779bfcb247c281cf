package prometheus_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promlib "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskpoolio/taskpool/pkg/observability/prometheus"
	"github.com/taskpoolio/taskpool/pkg/pool"
)

func scrape(t *testing.T, registry *promlib.Registry) string {
	t.Helper()
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("scrape status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read scrape body: %v", err)
	}
	return string(body)
}

// End-to-end: hooks feed the counters and the collector exports pool state.
func TestMetrics_PoolIntegration(t *testing.T) {
	registry := promlib.NewRegistry()
	metrics := prometheus.NewMetrics(registry)

	p := pool.New(pool.Config{
		Workers: 2,
		Hooks:   metrics.Hooks(),
	})
	registry.MustRegister(prometheus.NewPoolCollector(p))

	if err := p.Run(func() {}, func() {}, func() {}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := p.Run(func() { panic("boom") }); err == nil {
		t.Fatal("Run() with a panicking task should fail")
	}

	output := scrape(t, registry)

	expected := []string{
		"taskpool_tasks_submitted_total 4",
		"taskpool_tasks_completed_total 3",
		"taskpool_tasks_failed_total 1",
		"taskpool_task_duration_seconds_count 4",
		"taskpool_batches_total 2",
		"taskpool_workers 2",
		"taskpool_queue_depth 0",
		"taskpool_up 1",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("metrics output missing %q\noutput:\n%s", want, output)
		}
	}

	if !strings.Contains(output, "# HELP") || !strings.Contains(output, "# TYPE") {
		t.Error("metrics output should carry HELP and TYPE comments")
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	output = scrape(t, registry)
	if !strings.Contains(output, "taskpool_up 0") {
		t.Error("taskpool_up should read 0 after Stop()")
	}
}

func TestMetrics_DroppedTasks(t *testing.T) {
	registry := promlib.NewRegistry()
	metrics := prometheus.NewMetrics(registry)

	p := pool.New(pool.Config{
		Workers: 1,
		Hooks:   metrics.Hooks(),
	})

	started := make(chan struct{})
	release := make(chan struct{})
	p.Detach(func() {
		close(started)
		<-release
	})
	<-started

	for i := 0; i < 3; i++ {
		p.Detach(func() {})
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- p.Stop(context.Background()) }()

	// Hold the worker until Stop has drained the queue.
	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().Dropped != 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-stopDone

	output := scrape(t, registry)
	if !strings.Contains(output, "taskpool_tasks_dropped_total 3") {
		t.Errorf("metrics output missing dropped count\noutput:\n%s", output)
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	first := prometheus.GetMetrics()
	second := prometheus.GetMetrics()
	if first != second {
		t.Error("GetMetrics() should return the same instance")
	}

	// The global instance registers on the default registry with the
	// service label attached.
	first.TasksSubmitted.Add(1)
	families, err := prometheus.DefaultRegistry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() != "taskpool_tasks_submitted_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "service" && label.GetValue() == "taskpool" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("default registry should carry taskpool metrics with the service label")
	}
}
