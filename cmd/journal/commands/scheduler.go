package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/external/supabase"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/scheduler"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/scheduler/jobs"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/httputil"
	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the job scheduler",
	Long: `Start the scheduler or manage its jobs.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job now and wait for it
  status  - show job schedules

Example:
  go run ./cmd/journal scheduler start
  go run ./cmd/journal scheduler list
  go run ./cmd/journal scheduler run hwm_reconcile`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and schedule every registered job.

Registered jobs:
- hwm_reconcile: daily at 03:00 (replays every account and advances lagging high-water-marks)
- supabase_sync: every 15 minutes, only when SUPABASE_URL and SUPABASE_KEY are set

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job schedules and next runs",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Trading Journal Scheduler ===")

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	PrintList(sched.GetAllJobs())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	start := time.Now()
	if err := sched.RunJobSync(context.Background(), jobName); err != nil {
		PrintError(err.Error())
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", jobName, time.Since(start).Seconds()))
	if history, err := sched.GetJobHistory(jobName); err == nil {
		if latest := history.Latest(1); len(latest) == 1 {
			PrintKeyValue("Accounts", fmt.Sprintf("%d", latest[0].Report.Accounts), 10)
			PrintKeyValue("Changed", fmt.Sprintf("%d", latest[0].Report.Changed), 10)
		}
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// the cron has to run to compute next activations
	sched.Start()
	defer sched.Stop()

	stats := sched.GetJobStats()
	widths := []int{16, 18, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		stat := stats[name]
		next := "-"
		if stat.NextRun != nil {
			next = stat.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, stat.Schedule, next}, widths)
	}

	return nil
}

// initScheduler registers every job the configuration enables
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.WithLocation(a.cfg.Location()))

	if err := sched.AddJob(jobs.NewHWMReconcileJob(a.service, a.cfg.Scheduler.HWMReconcile, a.log)); err != nil {
		return nil, err
	}

	if a.cfg.Supabase.Enabled() {
		httpClient := httputil.New(a.log)
		if a.redis.Enabled() {
			httpClient.WithRateLimiter(redis.NewRateLimiter(a.redis, cachePrefix), redis.SupabaseRateLimit)
		}
		client := supabase.NewClient(a.cfg.Supabase, httpClient, a.log)

		if err := sched.AddJob(jobs.NewSupabaseSyncJob(client, a.service, a.cfg.Scheduler.SupabaseSync, a.log)); err != nil {
			return nil, err
		}
	} else {
		a.log.Debug("Supabase not configured, sync job disabled")
	}

	return sched, nil
}
