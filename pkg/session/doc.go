/*
Package session manages parked runs.

A run that suspends can be parked in a ports.RunStore and resumed later,
possibly by another replica. The Manager serializes access to each run with a
reference-counted local lock and, when configured, a distributed lock so that
a parked run is never resumed twice at the same time.
*/
package session
