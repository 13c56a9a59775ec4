// Package poll coordinates the movie poll workflows shared by the CLI, the
// HTTP API, and the scheduler.
//
// A Service ties the store to the TMDB catalog and the pure appeal and title
// matching packages: it adds movies by matching a requested title against
// search candidates, records single and batch votes, computes live rankings,
// persists appeal snapshots, and seeds polls from YAML files.
package poll
