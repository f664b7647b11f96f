// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bookrec/internal/metrics"
)

type flakyQuerier struct {
	err   error
	calls int
}

func (f *flakyQuerier) TopItems(_ context.Context, _ string, _ int) ([]ItemCount, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []ItemCount{{Item: 7, Count: 3}}, nil
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := g.Write(&m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}

func testBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Hour,
		MinRequests: 2,
		FailRatio:   0.5,
	}
}

func TestBreaker_PassesThrough(t *testing.T) {
	q := &flakyQuerier{}
	b := NewBreaker(q, testBreakerSettings("test-pass"))

	items, err := b.TopItems(context.Background(), "run", 5)
	if err != nil {
		t.Fatalf("TopItems() error = %v", err)
	}
	if len(items) != 1 || items[0].Item != 7 {
		t.Errorf("TopItems() = %v", items)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	boom := errors.New("disk gone")
	q := &flakyQuerier{err: boom}
	b := NewBreaker(q, testBreakerSettings("test-open"))

	for i := 0; i < 2; i++ {
		if _, err := b.TopItems(context.Background(), "run", 5); !errors.Is(err, boom) {
			t.Fatalf("call %d error = %v, want boom", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	_, err := b.TopItems(context.Background(), "run", 5)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("open breaker error = %v, want ErrUnavailable", err)
	}
	if q.calls != 2 {
		t.Errorf("querier calls = %d, want 2", q.calls)
	}
	if got := gaugeValue(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
}

func TestBreaker_IgnoresCanceled(t *testing.T) {
	q := &flakyQuerier{err: context.Canceled}
	b := NewBreaker(q, testBreakerSettings("test-canceled"))

	for i := 0; i < 4; i++ {
		_, _ = b.TopItems(context.Background(), "run", 5)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}
