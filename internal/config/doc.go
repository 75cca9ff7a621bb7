// Package config provides configuration structures and utilities for
// pubchemscan. It defines the PubChem endpoint, request pacing, cache and
// report settings, and loads overrides from a YAML configuration file.
package config
