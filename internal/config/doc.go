// Package config provides configuration structures and utilities for seocheck.
// It defines the engine options that govern crawling, fetching and auxiliary
// checks, per-site overrides loaded from a YAML file, and report output
// preferences.
//
// A Config is built once (NewConfig, then flags and file overrides), validated
// with Validate, and then copied into each engine. Engines never read the
// caller's Config again after construction.
package config
