package client

import (
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/namereg/testutil"
)

func TestMetrics_Counts(t *testing.T) {
	m := newMetrics()

	testutil.AssertEqual(t, uint64(0), m.GetRequestCount("Commit"))
	testutil.AssertEqual(t, 0.0, m.GetSuccessRate("Commit"))
	testutil.AssertEqual(t, time.Duration(0), m.GetAverageLatency("Commit"))

	m.IncrSuccess("Commit")
	m.IncrSuccess("Commit")
	m.IncrSuccess("Commit")
	m.IncrFailure("Commit")
	m.IncrRetry("Commit")
	m.ObserveLatency("Commit", 10*time.Millisecond)
	m.ObserveLatency("Commit", 30*time.Millisecond)

	testutil.AssertEqual(t, uint64(4), m.GetRequestCount("Commit"))
	testutil.AssertEqual(t, 0.75, m.GetSuccessRate("Commit"))
	testutil.AssertEqual(t, 20*time.Millisecond, m.GetAverageLatency("Commit"))
	testutil.AssertEqual(t, uint64(1), m.GetRetryCount("Commit"))
	testutil.AssertEqual(t, uint64(0), m.GetRequestCount("Register"), "operations are tracked separately")

	m.Reset()
	testutil.AssertEqual(t, uint64(0), m.GetRequestCount("Commit"))
	testutil.AssertEqual(t, uint64(0), m.GetRetryCount("Commit"))
}

func TestMetrics_Concurrent(t *testing.T) {
	m := newMetrics()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.IncrSuccess("GetRecord")
				m.ObserveLatency("GetRecord", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, uint64(800), m.GetRequestCount("GetRecord"))
	testutil.AssertEqual(t, 1.0, m.GetSuccessRate("GetRecord"))
}
