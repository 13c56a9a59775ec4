// Command moviepoll manages movie-night polls: it adds movies through TMDB
// title matching, records votes, ranks movies by appeal, and runs the HTTP
// API server.
//
// Commands operate directly on the configured database. `moviepoll serve`
// holds a lock on the data directory while the API and the refresh scheduler
// run.
package main
