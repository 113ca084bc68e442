package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Story is a stored reading passage. TextHash is unique across the store.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	TextHash  string    `json:"text_hash"`
	CreatedAt time.Time `json:"timestamp"`
}

// Fingerprint returns the lowercase hex SHA-256 of the raw text bytes.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type CreateStoryRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ExistingStoryResponse is returned with 200 when the text was already stored.
type ExistingStoryResponse struct {
	Message string `json:"message"`
	Story
}

type MessageResponse struct {
	Message string `json:"message"`
}
