package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/resample"
)

func TestBarQueuePushRecvPreservesOrder(t *testing.T) {
	q := NewBarQueue(4)
	bars := makeBars([]float64{100, 101, 102})
	go func() {
		for _, b := range bars {
			q.Push(b)
		}
		q.Close()
	}()

	var got []resample.Bar
	for {
		b, ok := q.Recv()
		if !ok {
			break
		}
		got = append(got, b)
	}
	if len(got) != len(bars) {
		t.Fatalf("got %d bars, want %d", len(got), len(bars))
	}
	for i, b := range got {
		if b.Close != bars[i].Close {
			t.Fatalf("bar %d close = %v, want %v", i, b.Close, bars[i].Close)
		}
	}
}

func TestRunProducersClosesQueueWhenAllFinish(t *testing.T) {
	q := NewBarQueue(4)
	bars := makeBars([]float64{10, 20})

	err := RunProducers(context.Background(), q,
		func(ctx context.Context, q *BarQueue) error {
			for _, b := range bars {
				q.Push(b)
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("RunProducers: %v", err)
	}

	count := 0
	for {
		if _, ok := q.Recv(); !ok {
			break
		}
		count++
	}
	if count != len(bars) {
		t.Fatalf("drained %d bars, want %d", count, len(bars))
	}
}

func TestRunProducersPropagatesError(t *testing.T) {
	q := NewBarQueue(4)
	wantErr := errors.New("producer boom")

	err := RunProducers(context.Background(), q,
		func(ctx context.Context, q *BarQueue) error { return wantErr },
	)
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunProducers err = %v, want %v", err, wantErr)
	}
	if _, ok := q.Recv(); ok {
		t.Fatalf("expected queue to be closed after producer error")
	}
}

// TestLiveFeedDrivesCerebroLikeAPreloadedFeed exercises NewLiveFeed
// end-to-end through Cerebro, confirming a queue-backed feed advances
// bar-by-bar exactly like the CSV-backed path once bars are pushed.
func TestLiveFeedDrivesCerebroLikeAPreloadedFeed(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102, 103, 104})

	q := NewBarQueue(len(bars))
	br := broker.New(broker.DefaultConfig())
	c := New(br)

	feed := NewLiveFeed("SYM", q, nil)
	c.AddFeed(feed)

	done := make(chan error, 1)
	go func() {
		_, err := c.Run()
		done <- err
	}()

	for _, b := range bars {
		q.Push(b)
	}
	q.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cerebro.Run did not finish draining the live queue in time")
	}

	if feed.Data.Close().DataSize() != len(bars) {
		t.Fatalf("fed %d bars, want %d", feed.Data.Close().DataSize(), len(bars))
	}
}
