package models

// RankResult is one ranked resume.
type RankResult struct {
	Rank     int     `json:"rank"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// RankResponse is the response for a rank request.
type RankResponse struct {
	Results   []RankResult `json:"results"`
	QueryTime int64        `json:"query_time_ms"`
	// Warning is set when the ranking succeeded but a side effect (such as saving the
	// index snapshot) failed.
	Warning string `json:"warning,omitempty"`
}

// Explanation lists the keywords a resume shares with a job description.
type Explanation struct {
	Filename        string   `json:"filename"`
	MatchedKeywords []string `json:"matched_keywords"`
	Summary         string   `json:"explanation"`
}

// ExplainResponse is the response for an explain request.
type ExplainResponse struct {
	Explanations []Explanation `json:"explanations"`
	Message      string        `json:"message,omitempty"`
}

// UploadResponse reports a stored resume.
type UploadResponse struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
	Indexed  bool   `json:"indexed"`
	Warning  string `json:"warning,omitempty"`
}

// DeleteResponse reports a removed resume.
type DeleteResponse struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
	Warning  string `json:"warning,omitempty"`
}

// RebuildResponse reports how many resumes were indexed by a rebuild.
type RebuildResponse struct {
	Indexed int    `json:"indexed"`
	Warning string `json:"warning,omitempty"`
}

// ResumeList is the response for listing stored resumes.
type ResumeList struct {
	Filenames []string `json:"filenames"`
	Total     int      `json:"total"`
}

// Status summarises the store and index.
type Status struct {
	Resumes           int    `json:"resumes"`
	Indexed           int    `json:"indexed"`
	Dimensions        int    `json:"dimensions"`
	IndexType         string `json:"index_type"`
	EmbeddingProvider string `json:"embedding_provider"`
	DiskUsageBytes    int64  `json:"disk_usage_bytes"`
}
