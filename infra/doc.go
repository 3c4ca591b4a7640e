// Package infra contains technical adapters: record store backends, MQTT
// notifications, metrics exporters, error monitoring and logging. These
// packages depend only on the interfaces defined in the core packages.
package infra
