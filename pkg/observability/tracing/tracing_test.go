package tracing_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/taskpoolio/taskpool/pkg/observability/tracing"
	"github.com/taskpoolio/taskpool/pkg/pool"
)

func TestInitialize_TracesBatches(t *testing.T) {
	var buf bytes.Buffer
	err := tracing.Initialize(context.Background(), tracing.Config{
		ServiceName: "taskpool-test",
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !tracing.IsInitialized() {
		t.Error("IsInitialized() should return true after Initialize()")
	}

	// Double initialization is rejected.
	if err := tracing.Initialize(context.Background(), tracing.Config{}); err == nil {
		t.Error("second Initialize() should fail")
	}

	p := pool.New(pool.Config{
		Workers:        2,
		TracerProvider: tracing.Provider(),
	})
	if err := p.Run(func() {}, func() {}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := pool.RunRange(p, 0, 4, func(int) {}); err != nil {
		t.Fatalf("RunRange() error = %v", err)
	}
	p.Stop(context.Background())

	// Shutdown flushes the batcher, so the spans land in the buffer.
	if err := tracing.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if tracing.IsInitialized() {
		t.Error("IsInitialized() should return false after Shutdown()")
	}

	output := buf.String()
	if !strings.Contains(output, "pool.run") {
		t.Errorf("exported spans missing pool.run:\n%s", output)
	}
	if !strings.Contains(output, "pool.run_range") {
		t.Errorf("exported spans missing pool.run_range:\n%s", output)
	}
	if !strings.Contains(output, "taskpool-test") {
		t.Errorf("exported spans missing service name:\n%s", output)
	}
}

func TestShutdown_BeforeInitialize(t *testing.T) {
	if err := tracing.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without Initialize() error = %v, want nil", err)
	}
	if tracing.Provider() != nil {
		t.Error("Provider() should return nil before Initialize()")
	}
}
