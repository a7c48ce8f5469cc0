package models

import (
	"fmt"
	"strings"
)

// RankRequest asks for the resumes most similar to a job description.
type RankRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k,omitempty"`
}

// Validate ensures the job description is not blank and caps TopK.
// Non-positive TopK is left for the caller to default.
func (r *RankRequest) Validate(maxTopK int) error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("job description text cannot be empty")
	}
	if r.TopK < 0 {
		r.TopK = 0
	}
	if maxTopK > 0 && r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}

// ExplainRequest asks for keyword overlap between a job description and every resume.
type ExplainRequest struct {
	Text string `json:"text"`
}

// Validate ensures the job description is not blank.
func (r *ExplainRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("job description text cannot be empty")
	}
	return nil
}
