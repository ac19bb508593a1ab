// Package batch drives one Action over an ordered worklist of dataset PIDs.
//
// An Engine is single-use and moves through idle -> running -> completed or
// aborted. Items are processed strictly in worklist order on the calling
// goroutine:
//   - a mutated item is recorded in the Sink before the next item starts
//   - the first Action or Sink error aborts the run; no later item is touched
//   - the configured delay is applied between items, never after the last
//     item or after an abort
//
// Progress is reported through an optional ProgressCallback so callers can
// log or render it without the engine knowing about output.
package batch
