// Package config provides the configuration of a sitecrawl run.
// It defines where the frontier and artifacts live, how pages are rendered
// and how referenced resources are harvested.
//
// Values come from three layers, later layers winning:
//  1. NewConfig defaults
//  2. the optional YAML file (.sitecrawl or --config)
//  3. command line flags
package config
