package model

// RetrievalCandidate is a single retrieved content chunk with its similarity
// score, prior to context assembly. Transient: it lives for one query only.
type RetrievalCandidate struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	OriginID   string  `json:"origin_id"`
	SourceName string  `json:"source_name"`
}

// Source is a citation entry returned alongside the AI response.
type Source struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Name       string  `json:"name"`
	URL        string  `json:"url,omitempty"`
}
