package entities

// EvidenceDoc is one retrieved passage with provenance, as returned by the
// passage retriever boundary.
type EvidenceDoc struct {
	DocID     string  `json:"doc_id"`
	Title     string  `json:"title"`
	Org       string  `json:"org"`
	Year      string  `json:"year"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}
