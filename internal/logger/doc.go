// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON output,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.),
//   - a Printer adapter for libraries that log through Println/Printf.
//
// All services accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase.
package logger
