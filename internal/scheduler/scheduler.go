// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CrisisScanner forecasts opted-in users and alerts those near a crisis.
type CrisisScanner interface {
	ScanCrises(ctx context.Context) (int, error)
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) fields(keysAndValues []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	log     *logrus.Logger
	timeout time.Duration
}

// New creates a stopped scheduler. Each job run is bounded by timeout.
func New(logger *logrus.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		log:     logger,
		timeout: timeout,
	}
}

// AddCrisisScan schedules scanner on schedule, a standard five-field cron
// expression or descriptor such as "@daily".
func (s *Scheduler) AddCrisisScan(schedule string, scanner CrisisScanner) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.runCrisisScan(scanner) }); err != nil {
		return fmt.Errorf("failed to schedule crisis scan %q: %w", schedule, err)
	}
	s.log.Infof("Crisis scan scheduled: %s", schedule)
	return nil
}

func (s *Scheduler) runCrisisScan(scanner CrisisScanner) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	sent, err := scanner.ScanCrises(ctx)
	if err != nil {
		s.log.Errorf("Crisis scan failed after %d alerts: %v", sent, err)
		return
	}
	s.log.WithField("duration", time.Since(start).String()).Infof("Crisis scan sent %d alerts", sent)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out with jobs still running")
	}
}
