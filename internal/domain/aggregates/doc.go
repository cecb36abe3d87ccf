// Package aggregates declares the roadmap write boundary: the operations that
// must move a learner's roadmap, learning state and history together, and
// the error codes every implementation reports.
package aggregates
