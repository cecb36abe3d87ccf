// Package aggregates implements the roadmap aggregate on gorm. Each write
// runs in one transaction, reloads the roadmap row, mutates a clone, validates
// it and saves it only if the stored version has not moved.
package aggregates
