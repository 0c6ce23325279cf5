package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/xmlimport/internal/config"
	"github.com/mrlokans/xmlimport/internal/entities"
	"github.com/mrlokans/xmlimport/internal/services"
)

type fakeImporter struct {
	mu       sync.Mutex
	requests []services.Request
	fail     map[string]error
	skip     map[string]bool
}

func (f *fakeImporter) Import(ctx context.Context, req services.Request) (*services.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.fail[req.File]; err != nil {
		return nil, err
	}
	return &services.Report{Run: &entities.ImportRun{ID: uint(len(f.requests))}, Skipped: f.skip[req.File]}, nil
}

func TestParseJobs(t *testing.T) {
	jobs, err := ParseJobs([]string{"provinces:provincias.xml", " localities : /data/localidades.xml "})
	require.NoError(t, err)
	assert.Equal(t, []Job{
		{Target: "provinces", File: "provincias.xml"},
		{Target: "localities", File: "/data/localidades.xml"},
	}, jobs)
	assert.Equal(t, "provinces:provincias.xml", jobs[0].String())

	for _, bad := range []string{"provinces", ":file.xml", "provinces:", ""} {
		_, err := ParseJobs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 3 * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.Error(t, ValidateCronSchedule("every day"))
	assert.Error(t, ValidateCronSchedule("0 0 3 * * *"), "seconds field is not accepted")

	next, err := NextRunTime("0 3 * * *")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 3, next.Hour())
}

func TestNewImportScheduler_Validation(t *testing.T) {
	_, err := NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "nope", Files: []string{"provinces:p.xml"}})
	assert.Error(t, err)

	_, err = NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "0 3 * * *", Files: []string{"p.xml"}})
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	fake := &fakeImporter{
		fail: map[string]error{"broken.xml": errors.New("parse failed")},
		skip: map[string]bool{"same.xml": true},
	}
	s, err := NewImportScheduler(fake, config.Schedule{
		Cron:  "0 3 * * *",
		Files: []string{"provinces:broken.xml", "provinces:same.xml", "localities:new.xml"},
	})
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provinces:broken.xml")

	require.Len(t, fake.requests, 3, "a failing file does not stop the others")
	for _, req := range fake.requests {
		assert.True(t, req.SkipUnchanged)
		assert.Equal(t, entities.ImportTriggerSchedule, req.Trigger)
	}
	assert.Equal(t, "localities", fake.requests[2].Target)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	fake := &fakeImporter{}
	s, err := NewImportScheduler(fake, config.Schedule{Cron: "0 3 * * *", Files: []string{"provinces:p.xml"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.RunOnce(ctx), context.Canceled)
	assert.Empty(t, fake.requests)
}

func TestStartStop(t *testing.T) {
	s, err := NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "0 3 * * *", Files: []string{"provinces:p.xml"}})
	require.NoError(t, err)

	assert.Nil(t, s.NextRun())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestStart_StopsWithContext(t *testing.T) {
	s, err := NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "0 3 * * *", Files: []string{"provinces:p.xml"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

// blockingImporter holds every import until its context ends.
type blockingImporter struct {
	started chan struct{}
}

func (b *blockingImporter) Import(ctx context.Context, req services.Request) (*services.Report, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStop_GivesUpOnRunningImportAtDeadline(t *testing.T) {
	imp := &blockingImporter{started: make(chan struct{}, 1)}
	s, err := NewImportScheduler(imp, config.Schedule{Cron: "0 3 * * *", Files: []string{"provinces:p.xml"}})
	require.NoError(t, err)
	s.cron = cron.New(cron.WithSeconds())
	s.schedule = "* * * * * *"

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-imp.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled import did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	begin := time.Now()
	err = s.Stop(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.False(t, s.IsRunning())
}

func TestStart_NoFiles(t *testing.T) {
	s, err := NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "0 3 * * *"})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

type fakeCleaner struct {
	cutoff time.Time
}

func (f *fakeCleaner) DeleteOlderThan(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

func TestCleanup(t *testing.T) {
	cleaner := &fakeCleaner{}
	s, err := NewImportScheduler(&fakeImporter{}, config.Schedule{Cron: "0 3 * * *", Files: []string{"provinces:p.xml"}})
	require.NoError(t, err)
	s.WithRunCleanup(cleaner, 48*time.Hour)

	s.cleanup()
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), cleaner.cutoff, time.Minute)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())
	assert.Len(t, s.cron.Entries(), 2)
}
