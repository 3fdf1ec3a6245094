// Package docs embeds the user guides shown by `etapas docs`, the TUI help
// overlay and the web page's /docs route.
package docs

import (
	"embed"
	"strings"
)

//go:embed content/*.md
var contentFS embed.FS

// Topics returns guide names in lexical order (embed.FS lists sorted).
func Topics() []string {
	entries, _ := contentFS.ReadDir("content")
	topics := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".md"); ok && !e.IsDir() {
			topics = append(topics, name)
		}
	}
	return topics
}

// Get returns the markdown for topic. Lookups are case-insensitive and only
// match names listed by Topics.
func Get(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	for _, t := range Topics() {
		if t == topic {
			b, err := contentFS.ReadFile("content/" + t + ".md")
			return string(b), err == nil
		}
	}
	return "", false
}
