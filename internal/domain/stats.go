package domain

// IndexStats summarizes the contract index for health and stats reporting.
type IndexStats struct {
	Documents      int
	Indexing       bool
	PercentIndexed float64
}
