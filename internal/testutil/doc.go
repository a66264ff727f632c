// Package testutil provides shared fixtures for local-guide tests: sample
// knowledge documents, temporary knowledge directories and scripted
// completers.
package testutil
