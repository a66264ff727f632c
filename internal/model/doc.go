// Package model defines the core domain types shared by the pipeline stages:
// bound knowledge contexts, queries, candidates, responses and session records.
package model
