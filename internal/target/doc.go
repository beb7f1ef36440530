// Package target is a small metrics-ingestion service exposing the six
// endpoints the load generator drives. It keeps a rolling RPS window per
// device, flags z-score anomalies and caches per-device results in memory
// or in Redis. It exists to validate load runs end to end.
package target
