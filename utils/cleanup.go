package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupJob is one periodic housekeeping task.
type CleanupJob struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// StartCleaner schedules jobs on spec (cron syntax or "@every 5m") and
// returns the running scheduler; Stop it on shutdown. Jobs are best-effort
// and only log failures.
func StartCleaner(spec string, timeout time.Duration, jobs ...CleanupJob) (*cron.Cron, error) {
	if spec == "" {
		spec = "@every 5m"
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(spec, func() { runCleanupJob(job, timeout) }); err != nil {
			return nil, err
		}
	}
	c.Start()
	return c, nil
}

func runCleanupJob(job CleanupJob, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := job.Run(ctx)
	if err != nil {
		Sugar.Warnf("cleanup %s failed: %v", job.Name, err)
		return
	}
	if n > 0 {
		Sugar.Infof("cleanup %s removed %d item(s)", job.Name, n)
	}
}
