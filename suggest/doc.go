// Package suggest proposes a stamp shape and grid size for a piece of
// artwork.
//
// An Advisor inspects an image and returns a Suggestion. The production
// advisor is an external vision model; this package provides the contract,
// a parser for the model's JSON answer, a local Heuristic advisor and the
// Fallback wrapper that turns any advisor failure into the default
// suggestion, so callers always receive something they can apply.
package suggest
