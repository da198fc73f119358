// Package testdoubles provides spy implementations of the lending
// observability interfaces for verifying logging and metrics
// instrumentation in tests.
package testdoubles
