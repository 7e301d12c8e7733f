// Package prompts holds the instruction text sent to the language model for
// each tutoring operation. Defaults are built in; a YAML file can override
// them and is hot-reloaded while the server runs.
package prompts

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Set is the full collection of tutor prompts.
type Set struct {
	// TutorSystem frames the grammar chat assistant.
	TutorSystem string `yaml:"tutor_system"`
	// Translate asks for a bare English translation of %s (the phrase).
	Translate string `yaml:"translate"`
	// Breakdown asks for a JSON word-by-word breakdown of %s / %s
	// (phrase, translation).
	Breakdown string `yaml:"breakdown"`
	// ChatContext prefixes the first user message with %s / %s
	// (phrase, translation).
	ChatContext string `yaml:"chat_context"`
	// Screenshot asks for the Dutch phrases in an attached image.
	Screenshot string `yaml:"screenshot"`
}

const defaultTutorSystem = `You are a Dutch language grammar tutor helping an English speaker who is learning Dutch via Duolingo. You explain grammar rules, word choice, sentence structure, and usage patterns clearly and practically.

Guidelines:
- Explain grammar rules clearly and concisely, using the specific phrase as your example
- Compare/contrast with English grammar when helpful
- When explaining word choice (e.g. "zitten" vs "liggen"), give additional example sentences with translations
- Use simple terminology — avoid heavy linguistic jargon unless asked
- If asked about something unrelated to the phrase, gently redirect
- Keep explanations focused and practical, not academic
- Use **bold** for Dutch words being discussed and *italics* for English translations
- Be encouraging — Dutch grammar is genuinely tricky for English speakers
- Keep responses concise. Don't over-explain unless the user asks for more detail.`

const defaultTranslate = `Translate this Dutch phrase to English. Return ONLY the English translation, nothing else. No quotes, no explanation, no preamble.

Dutch: "%s"`

const defaultBreakdown = `Given this Dutch phrase and its English translation, provide a word-by-word breakdown.

Dutch: "%s"
English: "%s"

Return ONLY a JSON array where each element is an object with these fields:
- "dutch": the Dutch word
- "english": the closest English equivalent (1-2 words max)
- "pos": abbreviated part of speech (use exactly one of: PRON, VERB, NOUN, ADJ, ADV, ART, PREP, CONJ, NUM, PART, INT)

For separable verbs or multi-word units, keep them as individual words but note the connection in the english field.

Return ONLY the JSON array, no markdown, no backticks, no explanation. Example format:
[{"dutch":"Ik","english":"I","pos":"PRON"},{"dutch":"vind","english":"find/think","pos":"VERB"}]`

const defaultChatContext = `[Context — Dutch phrase: "%s" | English translation: "%s"]

`

const defaultScreenshot = `This is a screenshot from Duolingo or a similar language learning app. Extract ONLY the Dutch text/phrases being taught or tested. Return each Dutch phrase on its own line, nothing else — no quotes, no explanation, no English text, no UI labels. If you cannot find any Dutch text, respond with exactly: NO_DUTCH_FOUND`

// Defaults returns the built-in prompt set.
func Defaults() Set {
	return Set{
		TutorSystem: defaultTutorSystem,
		Translate:   defaultTranslate,
		Breakdown:   defaultBreakdown,
		ChatContext: defaultChatContext,
		Screenshot:  defaultScreenshot,
	}
}

// Provider serves the current prompt set and optionally watches an override
// file for changes.
type Provider struct {
	mu      sync.RWMutex
	current Set
	file    string
	watcher *fsnotify.Watcher
}

// NewProvider builds a provider with the defaults, applying the override
// file when one is configured.
func NewProvider(file string) (*Provider, error) {
	p := &Provider{current: Defaults(), file: file}
	if file == "" {
		return p, nil
	}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the active prompt set.
func (p *Provider) Current() Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// reload merges the override file on top of the defaults. Empty fields in
// the file keep their default values.
func (p *Provider) reload() error {
	data, err := os.ReadFile(p.file)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	merged := Defaults()
	if override.TutorSystem != "" {
		merged.TutorSystem = override.TutorSystem
	}
	if override.Translate != "" {
		merged.Translate = override.Translate
	}
	if override.Breakdown != "" {
		merged.Breakdown = override.Breakdown
	}
	if override.ChatContext != "" {
		merged.ChatContext = override.ChatContext
	}
	if override.Screenshot != "" {
		merged.Screenshot = override.Screenshot
	}

	p.mu.Lock()
	p.current = merged
	p.mu.Unlock()
	return nil
}

// Watch starts watching the override file and reloads it on change.
// Returns immediately when no file is configured.
func (p *Provider) Watch() error {
	if p.file == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompts watcher: %w", err)
	}
	p.watcher = watcher

	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	dir := filepath.Dir(p.file)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch prompts directory: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(p.file) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := p.reload(); err != nil {
					log.Printf("⚠️ [PROMPTS] Reload failed: %v", err)
					continue
				}
				log.Printf("🔄 [PROMPTS] Reloaded %s", p.file)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ [PROMPTS] Watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the file watcher.
func (p *Provider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
