// Package logging builds the zap loggers used across cardset.
//
// Loggers write to stderr so command output on stdout stays parseable. The
// console format is for interactive use, the JSON format for anything that
// scrapes logs.
package logging
