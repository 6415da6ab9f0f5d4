// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package broadcast

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultTimelineLimit is how many messages a listener keeps.
const DefaultTimelineLimit = 100

const previewRunes = 80

var languageNames = map[string]string{
	"en":     "English",
	"en-US":  "English (US)",
	"zh":     "Chinese (中文)",
	"zh-CN":  "Mandarin (简体中文)",
	"zh-TW":  "Mandarin (繁體中文)",
	"yue":    "Cantonese (Gwong2 dung1 waa2)",
	"yue-HK": "Cantonese (香港)",
	"es":     "Spanish (Español)",
	"ja":     "Japanese (日本語)",
}

// LanguageName returns the display name of a language code, or the code
// itself when it is not known.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// Resolve finds the translation for lang. An exact match wins. Otherwise the
// first code, in lexical order, that extends lang or that lang extends is
// used, so "zh" finds "zh-CN" and "yue-HK" finds "yue".
func (m *Message) Resolve(lang string) (Translation, bool) {
	if t, ok := m.Languages[lang]; ok {
		return t, true
	}
	for _, k := range sortedKeys(m.Languages) {
		if strings.HasPrefix(k, lang) || strings.HasPrefix(lang, k) {
			return m.Languages[k], true
		}
	}
	return Translation{}, false
}

// Render returns the text a listener shows for lang.
func (m *Message) Render(lang string) string {
	if t, ok := m.Resolve(lang); ok {
		return t.Text
	}
	return "(Content not available in " + LanguageName(lang) + ")"
}

// ContextPreview shortens the original context to 80 characters.
func (m *Message) ContextPreview() string {
	if utf8.RuneCountInString(m.OriginalContext) <= previewRunes {
		return m.OriginalContext
	}
	runes := []rune(m.OriginalContext)
	return string(runes[:previewRunes]) + "..."
}

// Timeline orders msgs by UpdatedAt and keeps the newest limit of them. A
// limit below one means DefaultTimelineLimit. The input is not modified.
func Timeline(msgs []Message, limit int) []Message {
	if limit < 1 {
		limit = DefaultTimelineLimit
	}
	out := append([]Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// AudioTracker decides when a listener should start playing new audio. It
// is not safe for concurrent use.
type AudioTracker struct {
	last string
}

// Next returns the audio URL of msg in lang when there is one and it differs
// from the last URL returned.
func (a *AudioTracker) Next(msg *Message, lang string) (string, bool) {
	t, ok := msg.Resolve(lang)
	if !ok || t.AudioURL == "" || t.AudioURL == a.last {
		return "", false
	}
	a.last = t.AudioURL
	return t.AudioURL, true
}

// Reset forgets the last URL. Listeners call it when switching language.
func (a *AudioTracker) Reset() {
	a.last = ""
}
