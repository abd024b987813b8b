// Package training splits encoded data, fits the registered classifier
// strategies, scores them on the held-out split, selects the best by the
// primary metric, and cross-validates the selection.
//
// Randomized hyperparameter search lives here as well so tuning shares the
// fold assignment and scoring used by cross-validation.
package training
