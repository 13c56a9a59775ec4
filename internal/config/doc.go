// Package config loads, normalizes, and validates moviepoll configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and MOVIEPOLL_DATABASE_DSN. The Config type centralizes every
// knob the server and CLI need: where the database lives, how TMDB is queried,
// how strict title matching is, and when appeal snapshots are refreshed.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
