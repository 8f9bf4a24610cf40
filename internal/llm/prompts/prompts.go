package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/examdesk/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// maxAnswerRunes bounds the answer text sent to the model.
const maxAnswerRunes = 10000

// PromptVariant represents a grading prompt variant.
type PromptVariant string

const (
	// PromptStrict is a strict grading variant for majors.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default grading variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient is a lenient grading variant for electives.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// EvalData holds template data for essay evaluation prompts.
type EvalData struct {
	QuestionText string
	MaxPoints    float64
	ModelAnswer  string
	Answer       string
}

// GenerateData holds template data for the exam generation prompt.
type GenerateData struct {
	Topic     string
	Summaries []string
	Count     int
}

// Set is a parsed collection of prompt templates.
type Set struct {
	eval     map[PromptVariant]*template.Template
	generate *template.Template
}

var defaultSet = sync.OnceValues(func() (*Set, error) {
	return Load(templateFS)
})

// Default returns the templates compiled into the binary.
func Default() (*Set, error) {
	return defaultSet()
}

// Load parses prompt templates from fsys. It expects
// templates/eval_<variant>.txt for every variant and templates/generate.txt.
func Load(fsys fs.FS) (*Set, error) {
	s := &Set{eval: make(map[PromptVariant]*template.Template)}

	for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
		tmpl, err := parse(fsys, "templates/eval_"+string(v)+".txt", nil)
		if err != nil {
			return nil, err
		}
		s.eval[v] = tmpl
	}

	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	tmpl, err := parse(fsys, "templates/generate.txt", funcs)
	if err != nil {
		return nil, err
	}
	s.generate = tmpl
	return s, nil
}

func parse(fsys fs.FS, name string, funcs template.FuncMap) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildEvalPrompt builds an essay evaluation prompt using the specified variant.
func (s *Set) BuildEvalPrompt(variant PromptVariant, question model.Question, answer string) (string, error) {
	tmpl, ok := s.eval[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := EvalData{
		QuestionText: question.Prompt,
		MaxPoints:    question.Points,
		ModelAnswer:  question.CorrectAnswer,
		Answer:       sanitizeAnswer(answer),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildGeneratePrompt builds the exam generation prompt. Blank summaries are
// dropped.
func (s *Set) BuildGeneratePrompt(topic string, summaries []string, count int) (string, error) {
	data := GenerateData{Topic: strings.TrimSpace(topic), Count: count}
	for _, sum := range summaries {
		if sum = strings.TrimSpace(sum); sum != "" {
			data.Summaries = append(data.Summaries, sum)
		}
	}

	var buf bytes.Buffer
	if err := s.generate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
