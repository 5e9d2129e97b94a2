package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage ingestion jobs",
	Long:  `Inspect, cancel, and summarise asynchronous ingestion jobs.`,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a pending or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise tracked jobs",
	RunE:  runJobsStats,
}

func init() {
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	status, err := jobService.GetJobStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job status: %w", err)
	}

	cmd.Printf("Job: %s\n\n", status.JobID)
	cmd.Printf("  State:     %s\n", status.State)
	cmd.Printf("  Progress:  %d%%\n", status.Progress)
	if status.DocumentID != "" {
		cmd.Printf("  Document:  %s\n", status.DocumentID)
	}
	if status.Error != "" {
		cmd.Printf("  Error:     %s\n", status.Error)
	}
	cmd.Printf("  Started:   %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
	if status.CompletedAt != nil {
		cmd.Printf("  Completed: %s\n", status.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	if err := jobService.CancelJob(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	cmd.Printf("Job %s cancellation requested.\n", args[0])
	return nil
}

func runJobsStats(cmd *cobra.Command, _ []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	stats, err := jobService.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get job stats: %w", err)
	}

	cmd.Println("Jobs:")
	cmd.Printf("  Pending:    %d\n", stats.Pending)
	cmd.Printf("  Processing: %d\n", stats.Processing)
	cmd.Printf("  Completed:  %d\n", stats.Completed)
	cmd.Printf("  Failed:     %d\n", stats.Failed)
	cmd.Printf("  Cancelled:  %d\n", stats.Cancelled)

	return nil
}
