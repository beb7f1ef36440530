// Package engine drives virtual users against the target service.
//
// A Scheduler spawns users at a bounded rate, assigns each a profile and
// an identity, and runs one goroutine per user that repeatedly draws a
// weighted task, issues its request and pauses for the profile's think
// time. Users share nothing but the executor and the recorder.
package engine
