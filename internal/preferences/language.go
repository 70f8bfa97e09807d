// Package preferences stores per-profile client preferences.
package preferences

import (
	"context"
	"fmt"

	"storefront/internal/kvstore"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Language is a supported interface language.
type Language string

const (
	English Language = "en"
	French  Language = "fr"

	DefaultLanguage = French
)

// ParseLanguage validates a language code.
func ParseLanguage(code string) (Language, error) {
	switch Language(code) {
	case English, French:
		return Language(code), nil
	}
	return "", model.ErrUnsupportedLanguage
}

// Preferences reads and writes preferences in the key-value store.
type Preferences struct {
	store  kvstore.Store
	logger zerolog.Logger
}

// New creates a preferences accessor.
func New(store kvstore.Store, logger zerolog.Logger) *Preferences {
	return &Preferences{
		store:  store,
		logger: logger.With().Str("component", "preferences").Logger(),
	}
}

// Language returns the stored language, or DefaultLanguage when nothing
// valid is stored.
func (p *Preferences) Language(ctx context.Context) Language {
	stored, ok, err := p.store.Get(ctx, kvstore.LanguageKey)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to read language preference")
		return DefaultLanguage
	}
	if !ok {
		return DefaultLanguage
	}
	lang, err := ParseLanguage(stored)
	if err != nil {
		return DefaultLanguage
	}
	return lang
}

// SetLanguage stores code after validating it.
func (p *Preferences) SetLanguage(ctx context.Context, code string) (Language, error) {
	lang, err := ParseLanguage(code)
	if err != nil {
		return "", err
	}
	if err := p.store.Set(ctx, kvstore.LanguageKey, string(lang)); err != nil {
		return "", fmt.Errorf("failed to save language preference: %w", err)
	}
	return lang, nil
}
