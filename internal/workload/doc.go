// Package workload describes what a virtual user does: the task catalogue,
// the weighted task sampler, think-time ranges, identities and request
// payloads. Everything here is immutable configuration or a pure function of
// an injected random source; scheduling lives in package engine.
package workload
