// Package cli implements the command-line interface for venue-events.
//
// The cli package provides the Cobra-based CLI that wires config, storage
// and the scout pipeline together, formats output (text/JSON), and exposes
// the optional Telegram digest and ICS export. The exit code signals the
// outcome: 0 when nothing new was found, 2 when new events were found, 1 on
// failure.
package cli
