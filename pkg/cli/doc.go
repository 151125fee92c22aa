// Package cli implements the routeval command line.
//
// Commands:
//   - check: load a route file or OpenAPI document and list its routes
//   - try: send one request through the validators in-process
//   - serve: run an HTTP server that validates requests and echoes them
//   - version: print build information
//
// Logging goes to stderr and is configured with --log-level and
// --log-format. Command results go to stdout, as JSON with --json.
package cli
