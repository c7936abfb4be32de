package executor

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestJobFileRoundTripsAllScheduleKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")

	cron, err := ParseCron("0 9 * * *", time.UTC)
	if err != nil {
		t.Fatalf("ParseCron: %v", err)
	}

	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	original := []*Job{
		{ID: "i1", Name: "interval job", Scope: ScopeUser, Message: "ping", Category: CategoryDefault, Schedule: Schedule{Kind: ScheduleInterval, IntervalMS: 60000}},
		{ID: "c1", Name: "cron job", Scope: ScopeUser, Message: "good morning", Category: CategoryDefault, Schedule: Schedule{Kind: ScheduleCron, Cron: cron}},
		{ID: "o1", Name: "once job", Scope: ScopeSystem, Tag: TagCalibration, Message: "calibrate", Category: CategoryLLM, Schedule: Schedule{Kind: ScheduleOnce, At: at}},
	}

	if err := SaveJobFile(path, original); err != nil {
		t.Fatalf("SaveJobFile: %v", err)
	}

	loaded, err := LoadJobFile(path)
	if err != nil {
		t.Fatalf("LoadJobFile: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d jobs, want 3", len(loaded))
	}

	byID := map[string]*Job{}
	for _, j := range loaded {
		byID[j.ID] = j
	}

	interval := byID["i1"]
	if interval == nil || interval.Schedule.Kind != ScheduleInterval || interval.Schedule.IntervalMS != 60000 {
		t.Errorf("interval job round-trip mismatch: %+v", interval)
	}

	cronJob := byID["c1"]
	if cronJob == nil || cronJob.Schedule.Kind != ScheduleCron || cronJob.Schedule.Cron == nil {
		t.Fatalf("cron job round-trip mismatch: %+v", cronJob)
	}
	if !cronJob.Schedule.Cron.Matches(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)) {
		t.Error("expected round-tripped cron expression to still match 9am UTC")
	}

	onceJob := byID["o1"]
	if onceJob == nil || onceJob.Schedule.Kind != ScheduleOnce || !onceJob.Schedule.At.Equal(at) {
		t.Errorf("once job round-trip mismatch: %+v", onceJob)
	}
	if onceJob.Tag != TagCalibration || onceJob.Scope != ScopeSystem {
		t.Errorf("once job scope/tag not preserved: scope=%v tag=%v", onceJob.Scope, onceJob.Tag)
	}
}

func TestLoadJobFileMissingFileReturnsEmpty(t *testing.T) {
	jobs, err := LoadJobFile(fmt.Sprintf("/tmp/agentcore-does-not-exist-%d.json", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected empty job list for missing file, got %d", len(jobs))
	}
}

func TestJobRecordToJobRejectsUnknownTimezone(t *testing.T) {
	r := JobRecord{ID: "bad-tz", ScheduleKind: ScheduleCron, CronExpr: "0 9 * * *", Timezone: "Not/A_Zone"}
	if _, err := r.ToJob(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestJobRecordToJobRejectsBadCronExpr(t *testing.T) {
	r := JobRecord{ID: "bad-cron", ScheduleKind: ScheduleCron, CronExpr: "not a cron"}
	if _, err := r.ToJob(); err == nil {
		t.Error("expected error for malformed cron expression")
	}
}
