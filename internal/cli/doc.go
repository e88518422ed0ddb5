// Package cli implements the v2dash command-line interface.
//
// Every command is a cobra.Command. Commands that talk to the backend go
// through withApp, which loads the config, layers the global flags over
// it, opens the log file and builds the API client (through an SSH tunnel
// when api.ssh is set). The app is closed when the command returns.
//
// # Command Structure
//
//	v2dash                      - Full-screen dashboard (watch output when piped)
//	v2dash watch                - Gauges and account table as plain frames
//	v2dash stats                - Host resource usage, once
//	v2dash users [list|create|delete|reset|qr]
//	v2dash server [health|container|config]
//	v2dash server config apply <file>
//
// # Flag Handling
//
// Global flags (--config, --api-url, --ssh, --timeout, --no-color) are
// defined on the root command. Commands with read-only output accept
// --json, which prints a JSONEnvelope; destructive commands accept --yes.
// Without --yes a destructive command prompts with huh, and refuses to run
// when there is no terminal to prompt on.
package cli
