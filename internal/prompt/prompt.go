// Package prompt builds the chat messages sent to the LLM backend.
// The system prompt pins the model to translation-only output; the
// normalize package defends against the cases where it strays anyway.
package prompt

import (
	"fmt"
	"strings"
)

// System is the fixed system prompt for every translation request.
const System = `You are a precise translation tool. Your only task is to translate text between languages.

CRITICAL RULES:
1. Output ONLY the translation - no explanations, notes, or additional text
2. Preserve the original formatting (capitalization, punctuation)
3. For single words, provide the most common translation
4. For phrases, translate naturally while preserving meaning
5. If context is provided, use it to disambiguate meaning
6. Never add quotation marks, prefixes, or suffixes to your output
7. Never explain your translation choices

Examples:
Input: "Haus" (German → English)
Output: house

Input: "die Bank" with context "Ich sitze auf der Bank" (German → English)
Output: the bench

Input: "ein Schloss" with context "Der Schlüssel passt ins ein Schloss" (German → English)
Output: a lock`

// Message is one chat message of the request payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User builds the user prompt. When a non-empty context is supplied
// the text and context are labeled separately so the model can use
// the context without translating it.
func User(text, sourceLang, targetLang, context string) string {
	text = strings.TrimSpace(text)
	sourceLang = strings.TrimSpace(sourceLang)
	targetLang = strings.TrimSpace(targetLang)
	context = strings.TrimSpace(context)

	if context != "" {
		return fmt.Sprintf(`Translate from %s to %s:

Text to translate: %s

Context: %s

Translation:`, sourceLang, targetLang, text, context)
	}
	return fmt.Sprintf(`Translate from %s to %s:

%s`, sourceLang, targetLang, text)
}

// Messages builds the two-message chat payload.
func Messages(text, sourceLang, targetLang, context string) []Message {
	return []Message{
		{Role: "system", Content: System},
		{Role: "user", Content: User(text, sourceLang, targetLang, context)},
	}
}
