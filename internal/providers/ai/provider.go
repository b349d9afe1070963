// Package ai holds the external answer generator and translator.
package ai

import (
	"context"
	"errors"
)

var (
	ErrGenerationFailed  = errors.New("generation_failed")
	ErrTranslationFailed = errors.New("translation_failed")
	ErrNotConfigured     = errors.New("ai_not_configured")
)

// Generator produces and translates answers. Implementations must
// honor ctx deadlines; callers bound every invocation with a timeout.
type Generator interface {
	Generate(ctx context.Context, question, lang string) (string, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
