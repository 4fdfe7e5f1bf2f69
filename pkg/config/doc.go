// Package config loads labtrack configuration from environment variables.
//
// All variables are prefixed LABTRACK_. Every setting has a default that is
// reasonable for local development against a localhost Redis; production
// deployments override via the environment. LoadConfig validates the result
// and fails fast on inconsistent settings (for example, API and health ports
// colliding, or a zero rate-limit window).
package config
