// Package prompts loads the named prompt resources the pipeline and judge
// worker render. Prompts are opaque versioned strings owned by
// configuration; they are read once at construction and never mutated.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/*.txt
var defaults embed.FS

// Prompt resource names.
const (
	NameRewrite   = "rewrite"
	NameSynthesis = "synthesis"
	NameJudge     = "judge"
)

// Store holds the loaded prompt resources for one process lifetime.
type Store struct {
	prompts map[string]string
}

// Load reads the three prompt resources. Embedded defaults are used
// unless dir contains an override file named <name>.txt.
func Load(dir string) (*Store, error) {
	s := &Store{prompts: make(map[string]string, 3)}
	for _, name := range []string{NameRewrite, NameSynthesis, NameJudge} {
		text, err := loadOne(dir, name)
		if err != nil {
			return nil, err
		}
		s.prompts[name] = text
	}
	return s, nil
}

func loadOne(dir, name string) (string, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".txt")
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read prompt override %s: %w", path, err)
		}
	}

	data, err := defaults.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("missing embedded prompt %q: %w", name, err)
	}
	return string(data), nil
}

// Get returns the named prompt text. Unknown names return an empty
// string; callers pass the constants above.
func (s *Store) Get(name string) string {
	return s.prompts[name]
}

// Render substitutes {{key}} placeholders in the named prompt.
func (s *Store) Render(name string, vars map[string]string) string {
	text := s.Get(name)
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
