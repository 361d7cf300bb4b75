package models

// Fact is a (subject, predicate, object) assertion extracted from source
// text and stored as a graph edge. Facts are append-only: re-training adds
// facts, it never corrects old ones.
type Fact struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// GenericPredicate replaces empty or trivial predicates during
// normalization so no extracted relation is silently lost.
const GenericPredicate = "relates to"
