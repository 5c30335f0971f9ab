package core

// AllSentencesAnalyzed reports whether every sentence in the slice has been
// analyzed. It is the pure reducer behind the Segmented -> Analyzed
// transition: callers re-run it after any mutation and the reconciler re-runs
// it on a sweep, so it must stay side-effect-free and re-entrant.
// An empty slice reduces to true: a document with no sentences has nothing
// left to analyze.
func AllSentencesAnalyzed(sentences []*Sentence) bool {
	for _, sentence := range sentences {
		if sentence != nil && !sentence.IsAnalyzed {
			return false
		}
	}
	return true
}

// CountPendingSentences returns the number of sentences not yet analyzed.
func CountPendingSentences(sentences []*Sentence) int {
	pending := 0
	for _, sentence := range sentences {
		if sentence != nil && !sentence.IsAnalyzed {
			pending++
		}
	}
	return pending
}
