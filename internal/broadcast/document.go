// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package broadcast

import (
	"sort"
	"time"
)

// DefaultSessionID is the session listeners join when no course id is given.
const DefaultSessionID = "current"

// DefaultLanguages are offered when a session names none.
var DefaultLanguages = []string{"en", "zh"}

// Session is the top level broadcast document.
type Session struct {
	ID                 string                 `json:"id" validate:"required"`
	Status             string                 `json:"status"`
	SupportedLanguages []string               `json:"supported_languages,omitempty" validate:"dive,required"`
	LanguageMap        map[string]Translation `json:"languages,omitempty"`
}

// Languages returns the language codes the session offers: the supported
// list when present, else the sorted keys of the language map, else
// DefaultLanguages.
func (s *Session) Languages() []string {
	if len(s.SupportedLanguages) > 0 {
		return append([]string(nil), s.SupportedLanguages...)
	}
	if len(s.LanguageMap) > 0 {
		return sortedKeys(s.LanguageMap)
	}
	return append([]string(nil), DefaultLanguages...)
}

// Message is one translated utterance.
type Message struct {
	ID              string                 `json:"id" validate:"required"`
	UpdatedAt       time.Time              `json:"updated_at" validate:"required"`
	OriginalContext string                 `json:"original_context,omitempty"`
	Languages       map[string]Translation `json:"languages" validate:"dive,keys,required,endkeys"`
}

// Translation is a message rendered in one language. AudioURL may be empty
// and may repeat across messages.
type Translation struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty" validate:"omitempty,url"`
}

func sortedKeys(m map[string]Translation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
