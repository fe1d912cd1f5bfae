/*
Package observability turns pipeline lifecycle hooks into metrics and logs.

Metrics exports Prometheus counters and histograms; LoggingHooks writes
structured slog records. Combine fans one set of hooks out to several
consumers so both can be installed on the same engine.
*/
package observability
