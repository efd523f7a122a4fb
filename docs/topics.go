// Package docs embeds the user documentation of rbl, one markdown topic per
// file. The readme lists the topics and is shown when no topic is asked for.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var files embed.FS

// Readme is the topic listing the others.
const Readme = "readme"

// aliases maps each rbl command to the topic documenting it.
var aliases = map[string]string{
	"analyze":       "rebalancing",
	"holdings":      "holdings",
	"add":           "holdings",
	"update":        "holdings",
	"delete":        "holdings",
	"cash":          "holdings",
	"cash-target":   "holdings",
	"owner":         "holdings",
	"ticker-value":  "holdings",
	"ticker-target": "holdings",
	"import":        "import",
	"prices":        "prices",
	"sources":       "prices",
	"serve":         "serve",
}

// Topics returns the sorted topic names, the readme excluded.
func Topics() []string {
	paths, _ := fs.Glob(files, "*.md")
	var topics []string
	for _, p := range paths {
		if name := strings.TrimSuffix(p, ".md"); name != Readme {
			topics = append(topics, name)
		}
	}
	slices.Sort(topics)
	return topics
}

// Commands returns the sorted commands that have a topic.
func Commands() []string {
	var cmds []string
	for cmd := range aliases {
		cmds = append(cmds, cmd)
	}
	slices.Sort(cmds)
	return cmds
}

// Resolve returns the topic for name, either a topic or a command name.
func Resolve(name string) (string, bool) {
	if name == Readme || slices.Contains(Topics(), name) {
		return name, true
	}
	topic, ok := aliases[name]
	return topic, ok
}

// Get returns the markdown of the topic for name, see Resolve.
func Get(name string) (string, error) {
	topic, ok := Resolve(name)
	if !ok {
		return "", fmt.Errorf("unknown topic %q, try one of %s", name, strings.Join(Topics(), ", "))
	}
	content, err := files.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("cannot read topic %q: %w", topic, err)
	}
	return string(content), nil
}

// Join returns the markdown of the topics for names, each topic once and in
// the order asked. "*" stands for every topic.
func Join(names ...string) (string, error) {
	var topics []string
	for _, name := range names {
		expanded := []string{name}
		if name == "*" {
			expanded = Topics()
		}
		for _, n := range expanded {
			topic, ok := Resolve(n)
			if !ok {
				_, err := Get(n)
				return "", err
			}
			if !slices.Contains(topics, topic) {
				topics = append(topics, topic)
			}
		}
	}

	var b strings.Builder
	for _, topic := range topics {
		content, err := Get(topic)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
