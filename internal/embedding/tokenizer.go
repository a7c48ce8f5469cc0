package embedding

import "github.com/hyperjump/kouho/internal/textnorm"

// BERT special token IDs.
const (
	tokenCLS = 101
	tokenSEP = 102
	// vocabSize bounds hashed word IDs to the MiniLM vocabulary range.
	vocabSize = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. Text is cleaned
// first, so casing and spacing differences do not change the tokens.
type SimpleTokenizer struct{}

// Tokenize produces [CLS] words... [SEP] padded with zeros to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range textnorm.Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		return 0
	}
	return h
}
