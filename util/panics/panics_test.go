package panics

import (
	"testing"
	"time"

	"github.com/oneepicnight/vision-node/logger"
)

func TestGoroutineWrapperRunsFunction(t *testing.T) {
	log, ok := logger.Get(logger.SubsystemTags.VSND)
	if !ok {
		t.Fatalf("logger.Get: no logger for tag %s", logger.SubsystemTags.VSND)
	}
	spawn := GoroutineWrapperFunc(log)

	done := make(chan struct{})
	spawn(func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("spawned function did not run")
	}
}
