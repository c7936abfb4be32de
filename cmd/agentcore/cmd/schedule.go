package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"agentcore/internal/config"
	"agentcore/internal/executor"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled jobs (reminders, tasks, calibration)",
}

var (
	scheduleMessage     string
	scheduleEverySecs   int64
	scheduleCronExpr    string
	scheduleTimezone    string
	scheduleAt          string
	scheduleChannel     string
	scheduleTo          string
	scheduleDeliver     bool
	scheduleTargetAgent string
	scheduleJobID       string
)

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduled job",
	Run:   runScheduleAdd,
}

var scheduleCalibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Schedule a router calibration job (defaults to daily at 2am)",
	Run:   runScheduleCalibrate,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	Run:   runScheduleList,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a scheduled job by id",
	Run:   runScheduleRemove,
}

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleMessage, "message", "", "message to run through the assistant (required)")
	scheduleAddCmd.Flags().Int64Var(&scheduleEverySecs, "every_seconds", 0, "fire every N seconds")
	scheduleAddCmd.Flags().StringVar(&scheduleCronExpr, "cron_expr", "", "5-field cron expression")
	scheduleAddCmd.Flags().StringVar(&scheduleTimezone, "timezone", "UTC", "timezone for cron_expr")
	scheduleAddCmd.Flags().StringVar(&scheduleAt, "at", "", "RFC3339 timestamp for a one-shot job")
	scheduleAddCmd.Flags().StringVar(&scheduleChannel, "channel", "cli", "delivery channel")
	scheduleAddCmd.Flags().StringVar(&scheduleTo, "to", "", "delivery recipient (chat id)")
	scheduleAddCmd.Flags().BoolVar(&scheduleDeliver, "deliver", false, "publish the result to the channel/recipient")

	scheduleRemoveCmd.Flags().StringVar(&scheduleJobID, "job_id", "", "id of the job to remove (required)")

	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleCalibrateCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
}

func jobFilePath() (string, error) {
	cfg, err := config.LoadFromDefaultPath()
	if err != nil {
		return "", err
	}
	if err := config.EnsureDir(cfg.Paths.Workspace); err != nil {
		return "", err
	}
	return filepath.Join(cfg.Paths.Workspace, "jobs.json"), nil
}

func fail(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
}

func runScheduleAdd(cmd *cobra.Command, args []string) {
	if scheduleMessage == "" {
		fail("message is required")
		return
	}

	given := 0
	for _, set := range []bool{scheduleEverySecs > 0, scheduleCronExpr != "", scheduleAt != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		fail("exactly one of every_seconds, cron_expr, or at is required")
		return
	}

	path, err := jobFilePath()
	if err != nil {
		fail("%v", err)
		return
	}
	jobs, err := executor.LoadJobFile(path)
	if err != nil {
		fail("%v", err)
		return
	}

	job := &executor.Job{
		ID:      uuid.NewString(),
		Name:    "user routine",
		Scope:   executor.ScopeUser,
		Message: scheduleMessage,
		Channel: scheduleChannel,
		To:      scheduleTo,
		Deliver: scheduleDeliver,
	}

	switch {
	case scheduleEverySecs > 0:
		job.Schedule = executor.Schedule{Kind: executor.ScheduleInterval, IntervalMS: scheduleEverySecs * 1000}
	case scheduleCronExpr != "":
		loc, err := time.LoadLocation(scheduleTimezone)
		if err != nil {
			fail("unknown timezone %q", scheduleTimezone)
			return
		}
		cron, err := executor.ParseCron(scheduleCronExpr, loc)
		if err != nil {
			fail("%v", err)
			return
		}
		job.Schedule = executor.Schedule{Kind: executor.ScheduleCron, Cron: cron}
	case scheduleAt != "":
		at, err := time.Parse(time.RFC3339, scheduleAt)
		if err != nil {
			fail("at must be an RFC3339 timestamp: %v", err)
			return
		}
		job.Schedule = executor.Schedule{Kind: executor.ScheduleOnce, At: at}
	}

	jobs = append(jobs, job)
	if err := executor.SaveJobFile(path, jobs); err != nil {
		fail("%v", err)
		return
	}

	color.Green("added job %s", job.ID)
}

func runScheduleCalibrate(cmd *cobra.Command, args []string) {
	path, err := jobFilePath()
	if err != nil {
		fail("%v", err)
		return
	}
	jobs, err := executor.LoadJobFile(path)
	if err != nil {
		fail("%v", err)
		return
	}

	cron, err := executor.ParseCron("0 2 * * *", time.UTC)
	if err != nil {
		fail("%v", err)
		return
	}

	job := &executor.Job{
		ID:       uuid.NewString(),
		Name:     "router calibration",
		Scope:    executor.ScopeSystem,
		Tag:      executor.TagCalibration,
		Category: executor.CategoryLLM,
		Schedule: executor.Schedule{Kind: executor.ScheduleCron, Cron: cron},
	}

	jobs = append(jobs, job)
	if err := executor.SaveJobFile(path, jobs); err != nil {
		fail("%v", err)
		return
	}

	color.Green("scheduled calibration job %s (daily at 02:00 UTC)", job.ID)
}

func runScheduleList(cmd *cobra.Command, args []string) {
	path, err := jobFilePath()
	if err != nil {
		fail("%v", err)
		return
	}
	jobs, err := executor.LoadJobFile(path)
	if err != nil {
		fail("%v", err)
		return
	}

	if len(jobs) == 0 {
		fmt.Println("no scheduled jobs")
		return
	}

	for _, job := range jobs {
		label := fmt.Sprintf("%s  %-8s  %-6s  %s", job.ID, job.Schedule.Kind, job.Scope, job.Name)
		if job.Tag != executor.TagNone {
			label += color.YellowString("  [%s]", job.Tag)
		}
		fmt.Println(label)
	}
}

func runScheduleRemove(cmd *cobra.Command, args []string) {
	if scheduleJobID == "" {
		fail("job_id is required")
		return
	}

	path, err := jobFilePath()
	if err != nil {
		fail("%v", err)
		return
	}
	jobs, err := executor.LoadJobFile(path)
	if err != nil {
		fail("%v", err)
		return
	}

	kept := jobs[:0]
	found := false
	for _, job := range jobs {
		if job.ID == scheduleJobID {
			found = true
			continue
		}
		kept = append(kept, job)
	}
	if !found {
		fail("no job with id %s", scheduleJobID)
		return
	}

	if err := executor.SaveJobFile(path, kept); err != nil {
		fail("%v", err)
		return
	}

	color.Green("removed job %s", scheduleJobID)
}
