// Package config loads the server settings from TASKS_-prefixed environment
// variables and an optional config.yaml, applies defaults, and validates the
// result before anything else starts.
package config
