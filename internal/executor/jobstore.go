package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jobFile is the on-disk JSON document backing the schedule-management
// CLI surface, so `schedule add`/`list`/`remove` and the running
// executor agree on the same job set without requiring a live
// connection to the daemon process.
type jobFile struct {
	Version int         `json:"version"`
	Jobs    []JobRecord `json:"jobs"`
}

// JobRecord is the serializable form of a Job. CronExpr is stored as
// its original 5-field string plus a timezone name rather than the
// parsed field slices, since *time.Location doesn't round-trip
// through JSON.
type JobRecord struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Scope        JobScope    `json:"scope"`
	Tag          JobTag      `json:"tag,omitempty"`
	Category     JobCategory `json:"category"`
	Message      string      `json:"message"`
	Channel      string      `json:"channel,omitempty"`
	To           string      `json:"to,omitempty"`
	Deliver      bool        `json:"deliver,omitempty"`
	TargetAgent  string      `json:"targetAgent,omitempty"`
	ScheduleKind ScheduleKind `json:"scheduleKind"`
	IntervalMS   int64       `json:"intervalMs,omitempty"`
	CronExpr     string      `json:"cronExpr,omitempty"`
	Timezone     string      `json:"timezone,omitempty"`
	At           time.Time   `json:"at,omitempty"`
	LastFiredAt  time.Time   `json:"lastFiredAt,omitempty"`
}

// ToJob converts the record into a runtime Job, parsing its cron
// expression (if any) in the named timezone.
func (r JobRecord) ToJob() (*Job, error) {
	job := &Job{
		ID:          r.ID,
		Name:        r.Name,
		Scope:       r.Scope,
		Tag:         r.Tag,
		Category:    r.Category,
		Message:     r.Message,
		Channel:     r.Channel,
		To:          r.To,
		Deliver:     r.Deliver,
		TargetAgent: r.TargetAgent,
		LastFiredAt: r.LastFiredAt,
	}

	switch r.ScheduleKind {
	case ScheduleInterval:
		job.Schedule = Schedule{Kind: ScheduleInterval, IntervalMS: r.IntervalMS}
	case ScheduleCron:
		loc := time.UTC
		if r.Timezone != "" {
			var err error
			loc, err = time.LoadLocation(r.Timezone)
			if err != nil {
				return nil, fmt.Errorf("job %s: unknown timezone %q: %w", r.ID, r.Timezone, err)
			}
		}
		cron, err := ParseCron(r.CronExpr, loc)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", r.ID, err)
		}
		job.Schedule = Schedule{Kind: ScheduleCron, Cron: cron}
	case ScheduleOnce:
		job.Schedule = Schedule{Kind: ScheduleOnce, At: r.At}
	default:
		return nil, fmt.Errorf("job %s: unknown schedule kind %q", r.ID, r.ScheduleKind)
	}

	return job, nil
}

// jobRecordFromJob converts a runtime Job back into its serializable
// form. Cron timezone is recovered from the location's name.
func jobRecordFromJob(job *Job) JobRecord {
	r := JobRecord{
		ID:           job.ID,
		Name:         job.Name,
		Scope:        job.Scope,
		Tag:          job.Tag,
		Category:     job.Category,
		Message:      job.Message,
		Channel:      job.Channel,
		To:           job.To,
		Deliver:      job.Deliver,
		TargetAgent:  job.TargetAgent,
		ScheduleKind: job.Schedule.Kind,
		LastFiredAt:  job.LastFiredAt,
	}
	switch job.Schedule.Kind {
	case ScheduleInterval:
		r.IntervalMS = job.Schedule.IntervalMS
	case ScheduleCron:
		if job.Schedule.Cron != nil {
			r.CronExpr = job.Schedule.Cron.Expr
			r.Timezone = job.Schedule.Cron.Location.String()
		}
	case ScheduleOnce:
		r.At = job.Schedule.At
	}
	return r
}

// LoadJobFile reads jobs from path. A missing file is treated as an
// empty job set, not an error, so a fresh workspace needs no
// initialization step.
func LoadJobFile(path string) ([]*Job, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("executor: read job file: %w", err)
	}

	var file jobFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("executor: parse job file: %w", err)
	}

	jobs := make([]*Job, 0, len(file.Jobs))
	for _, r := range file.Jobs {
		job, err := r.ToJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SaveJobFile writes jobs to path as JSON, overwriting any existing
// content.
func SaveJobFile(path string, jobs []*Job) error {
	records := make([]JobRecord, 0, len(jobs))
	for _, job := range jobs {
		records = append(records, jobRecordFromJob(job))
	}
	file := jobFile{Version: 1, Jobs: records}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("executor: marshal job file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("executor: write job file: %w", err)
	}
	return nil
}
