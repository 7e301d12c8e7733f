package models

// ChatMessage is a single turn in a grammar chat about a saved phrase.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// HistoryEntry is one saved phrase session: the Dutch source text, its
// English translation, the chat turns about it, and when it was saved.
type HistoryEntry struct {
	Dutch     string        `json:"dutch"`
	English   string        `json:"english"`
	Chat      []ChatMessage `json:"chat"`
	Timestamp int64         `json:"timestamp"` // Unix milliseconds
}

// BreakdownToken is one word of a word-by-word grammatical breakdown.
type BreakdownToken struct {
	Dutch   string `json:"dutch"`
	English string `json:"english"`
	POS     string `json:"pos"`
}

// POSTags is the fixed part-of-speech tag set the breakdown service uses.
var POSTags = []string{
	"PRON", "VERB", "NOUN", "ADJ", "ADV", "ART", "PREP", "CONJ", "NUM", "PART", "INT",
}
