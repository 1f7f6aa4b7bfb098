package spellcheck

import (
	"errors"

	"github.com/hyperjump/crec/internal/config"
)

// FromConfig builds a Checker from the parse.spellcheck section. It returns nil when
// spelling correction is disabled.
func FromConfig(cfg *config.SpellCheckConfig) (*Checker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.DictionaryPath == "" {
		return nil, errors.New("spellcheck is enabled but no dictionary_path is set")
	}
	dict, err := LoadDictionary(cfg.DictionaryPath)
	if err != nil {
		return nil, err
	}
	return New(dict,
		WithPersonalDictionary(cfg.PersonalDictionary),
		WithSubstitutions(cfg.Substitutions),
		WithMaxDistance(cfg.MaxDistance),
		WithFrequencySort(cfg.FrequencySortOrDefault()),
	), nil
}
