package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrGenerationFailed = errors.New("generation_failed")
)

// Answer sources reported to callers.
const (
	SourceLibrary = "library"
	SourceCache   = "cache"
	SourceAI      = "ai"
)

type AskRequest struct {
	AccountID string `json:"account_id"`
	Question  string `json:"question"`
	// Lang is the declared language; empty means detect from the text.
	Lang string `json:"lang,omitempty"`
	// Mode defaults to text.
	Mode string `json:"mode,omitempty"`
}

type AskResponse struct {
	OK           bool   `json:"ok"`
	Answer       string `json:"answer"`
	Source       string `json:"source"`
	Lang         string `json:"lang"`
	CanonicalKey string `json:"canonical_key"`
	FallbackUsed bool   `json:"fallback_used,omitempty"`
}

// Service runs the guarded question pipeline: canonicalize, gate on
// subscription state, resolve library then cache, fall back to the base
// language, and only then generate.
type Service interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}
