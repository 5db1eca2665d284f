// Package prompts renders the text sent to the model. Templates live in
// embedded files so prompt tuning never touches Go code.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Difficulty selects a generation prompt variant.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

var validDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
	DifficultyMixed:  true,
}

// IsValidDifficulty checks if a difficulty name is valid.
func IsValidDifficulty(d string) bool {
	return validDifficulties[Difficulty(d)]
}

var (
	loadOnce          sync.Once
	loadErr           error
	generateTemplates map[Difficulty]*template.Template
	explainTmpl       *template.Template
	generalTmpl       *template.Template
)

// maxContentRunes caps the source text included in a prompt.
const maxContentRunes = 8000

// GenerateData holds template data for generation prompts.
type GenerateData struct {
	Content             string
	Count               int
	Types               string
	IncludeExplanations bool
}

// ExplainData holds template data for the per-question explanation prompt.
type ExplainData struct {
	Prompt     string
	Options    []string
	Correct    string
	UserAnswer string
}

// GeneralData holds template data for the free-form concept prompt.
type GeneralData struct {
	Topic   string
	Context string
}

func load() error {
	loadOnce.Do(func() {
		generateTemplates = make(map[Difficulty]*template.Template)
		for d := range validDifficulties {
			name := "templates/generate_" + string(d) + ".txt"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(d)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			generateTemplates[d] = tmpl
		}

		explainTmpl, loadErr = parseOne("templates/explain.txt")
		if loadErr != nil {
			return
		}
		generalTmpl, loadErr = parseOne("templates/explain_general.txt")
	})
	return loadErr
}

func parseOne(name string) (*template.Template, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildGenerate renders the generation prompt for the given difficulty. The
// source content is trimmed to a bounded length before rendering.
func BuildGenerate(difficulty Difficulty, data GenerateData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := generateTemplates[difficulty]
	if !ok {
		return "", errors.New("invalid difficulty: " + string(difficulty))
	}
	data.Content = truncate(data.Content)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildExplain renders the per-question explanation prompt.
func BuildExplain(data ExplainData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := explainTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildGeneral renders the free-form concept explanation prompt.
func BuildGeneral(data GeneralData) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	data.Context = truncate(data.Context)

	var buf bytes.Buffer
	if err := generalTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= maxContentRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxContentRunes]) + "\n\n[Source truncated due to length]"
}
