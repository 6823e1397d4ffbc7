// Package model defines the data structures shared by the sitecrawl packages.
//
// This package contains the following main types:
//   - Document: The structured content mined from one rendered page
//   - Visit: One attempt at processing a frontier URL, with its state
//   - Status: A summary of the frontier and the last runs, used for reports
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, pipeline, database and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for artifacts and
// report output.
package model
