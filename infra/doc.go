// Package infra holds the adapters around the scheduler: the zerolog
// logger, the Prometheus and InfluxDB sinks and the MQTT schedule
// publisher. They implement interfaces declared under core.
package infra
