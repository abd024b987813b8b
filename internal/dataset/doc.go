// Package dataset holds the in-memory tabular representations shared by the
// training and replay pipelines.
//
// A Frame is the loosely typed table read from CSV: every cell is a Value that
// is numeric, text, or missing. A Matrix is the strictly numeric feature table
// handed to fitted stages; it carries its column names so transforms can match
// inputs by name and reject a differing column set.
package dataset
