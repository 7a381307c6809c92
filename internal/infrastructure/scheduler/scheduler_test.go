package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Description() string           { return "test job " + j.name }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func quietScheduler(tick time.Duration) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		TickInterval: tick,
	})
}

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		expr  string
		after time.Time
		want  time.Time
	}{
		{
			expr:  "*/15 * * * *",
			after: time.Date(2024, 4, 15, 10, 7, 30, 0, time.UTC),
			want:  time.Date(2024, 4, 15, 10, 15, 0, 0, time.UTC),
		},
		{
			expr:  EveryNight3AM,
			after: time.Date(2024, 4, 15, 3, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 4, 16, 3, 0, 0, 0, time.UTC),
		},
		{
			expr:  "30 9 * * 1-5",
			after: time.Date(2024, 4, 13, 12, 0, 0, 0, time.UTC), // Saturday
			want:  time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			expr:  "0 0 1 1,7 *",
			after: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "59 23 31 12 *",
			after: time.Date(2024, 12, 31, 23, 58, 59, 0, time.UTC),
			want:  time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ce.Next(tt.after))
		})
	}
}

func TestParseCronExpression_Invalid(t *testing.T) {
	for _, expr := range []string{
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
	} {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}

	assert.Panics(t, func() { MustParseCronExpression("bad") })
}

func TestCronExpression_ImpossibleDateNeverFires(t *testing.T) {
	ce := MustParseCronExpression("0 0 31 2 *")
	assert.True(t, ce.Next(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).IsZero())
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)
	base := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "@every 5m0s", s.String())

	assert.Equal(t, time.Minute, NewIntervalSchedule(0).Interval)
}

func TestScheduler_Register(t *testing.T) {
	s := quietScheduler(time.Second)
	job := &funcJob{name: "a", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&funcJob{name: "b"}, nil), ErrNilSchedule)
}

func TestScheduler_RunNowRecordsResult(t *testing.T) {
	s := quietScheduler(time.Second)
	boom := errors.New("boom")
	require.NoError(t, s.Register(&funcJob{name: "ok", run: func(context.Context) error { return nil }}, NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(&funcJob{name: "fails", run: func(context.Context) error { return boom }}, NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(&funcJob{name: "panics", run: func(context.Context) error { panic("oops") }}, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "fails")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "panics")
	assert.ErrorIs(t, err, ErrJobPanicked)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	infos := s.ListJobs()
	require.Len(t, infos, 3)
	assert.Equal(t, "fails", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].FailCount)
	assert.Equal(t, "boom", infos[0].LastError)

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalExecutions)
	assert.Equal(t, int64(2), snap.TotalFailures)
}

func TestScheduler_RunNowRejectsBusyJob(t *testing.T) {
	s := quietScheduler(time.Second)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(&funcJob{name: "slow", run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}, NewIntervalSchedule(time.Hour)))

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "slow")
		done <- err
	}()
	<-started

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobBusy)

	close(release)
	assert.NoError(t, <-done)
}

func TestScheduler_RunsDueJobsAndStops(t *testing.T) {
	s := quietScheduler(5 * time.Millisecond)
	var runs atomic.Int32
	require.NoError(t, s.Register(&funcJob{name: "tick", run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := quietScheduler(5 * time.Millisecond)
	started := make(chan struct{}, 1)
	require.NoError(t, s.Register(&funcJob{name: "blocking", run: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}}, NewIntervalSchedule(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	require.NoError(t, s.Stop())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].RunCount)
	assert.False(t, infos[0].Executing)
}
