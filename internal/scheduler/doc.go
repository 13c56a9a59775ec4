// Package scheduler runs periodic background jobs for the long-running
// server, currently the appeal snapshot refresh for every known poll.
//
// Jobs run on a robfig/cron schedule in the configured timezone. Overlapping
// runs are skipped rather than queued, and every run carries its own run_id
// in the logging context.
package scheduler
