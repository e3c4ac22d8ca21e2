// Package internaldefs holds the metric names and bucket bounds shared by the
// Prometheus and OTel exporters.
//
// Both exporters read from here so a renamed series changes everywhere at once.
// The package performs no I/O.
package internaldefs
