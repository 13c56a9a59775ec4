// Package api serves the moviepoll HTTP interface.
//
// Server wraps a poll.Service behind a net/http ServeMux using method and
// wildcard patterns. Handlers decode JSON requests, delegate to the service,
// and map domain errors onto status codes:
//
//	appeal.ErrInvalidVote       400
//	store.ErrNotFound           404
//	poll.ErrDuplicateMovie      409
//	poll.ErrNoMatch             422 (body carries match_info)
//	poll.ErrCatalogUnavailable  503
//
// Every request is tagged with an X-Request-ID (generated with
// github.com/google/uuid when the client does not send one), logged, and
// recorded in Prometheus collectors exposed on /metrics.
package api
