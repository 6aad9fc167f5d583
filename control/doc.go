// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection layer.
//
// Provides:
//   - YAML configuration with defaults and validation
//   - Zap logger construction with a hot-reloadable level
//   - The Prometheus registry shared by all components
//   - Debug state exported as JSON
package control
