package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/sync/errgroup"
)

type failingFeed struct{}

func (failingFeed) Run(context.Context) error {
	return errors.New("ticker feed gave up after 11 attempts")
}

func TestRunFeed_FailureKeepsServeGroupAlive(t *testing.T) {
	logger, hook := test.NewNullLogger()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return runFeed(ctx, failingFeed{}, logger)
	})
	// Stands in for the API server, which stops when ctx is cancelled.
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return errors.New("server context cancelled")
		case <-time.After(50 * time.Millisecond):
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		t.Fatalf("feed failure stopped the server: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected the feed failure to be logged at error level, got %+v", entry)
	}
}
