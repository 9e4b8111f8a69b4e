// Package event provides the data model for harvested venue events and the
// cross-run reconciliation logic.
//
// Events are identified by the pair (name, date) after whitespace
// normalization. The identity key is used both to suppress duplicate rows
// while a listing page is paginated and to match events between runs.
// Reconciliation carries previously computed relevance and error state
// forward onto freshly harvested events and computes the delta of events
// that have never been seen before.
package event
