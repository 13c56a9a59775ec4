// Package daemon coordinates the long-running moviepoll server process.
//
// It wires configuration, the poll service, the HTTP API, and the refresh
// scheduler into a single lifecycle with flock-based locking so only one
// server owns a data directory at a time. Individual workflows live in the
// poll package; the daemon only handles startup, shutdown, and status.
package daemon
