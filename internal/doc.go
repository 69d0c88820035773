// Package internal contains the core implementation packages for nitro.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the nitro CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - build: build orchestration, output preparation, document and
//     type-declaration generation, the watch state machine
//   - bundler: external bundler invocation, one-shot and watch sessions
//   - config: configuration management with defaults and validation
//   - content: document content resolution with override support
//   - devserver: websocket live-reload hub for the dev loop
//   - errors: typed pipeline-stage errors
//   - hooks: the extension bus dispatched through the pipeline
//   - logging: structured logging with component scoping
//   - scanner: middleware-handler discovery and change subscriptions
package internal
