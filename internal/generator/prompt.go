package generator

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Veraticus/local-guide/internal/knowledge"
	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxRelevantSections bounds how many ranked sections lead the user prompt.
const maxRelevantSections = 3

// tamilMarkers are words whose presence in a context means it carries local
// Tamil vocabulary worth echoing.
var tamilMarkers = []string{"vanakkam", "enna", "semma", "vaanga", "tamil"}

// PromptBuilder renders the system and user prompts from embedded templates.
type PromptBuilder struct {
	templates map[string]*template.Template
}

// NewPromptBuilder parses the embedded templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	pb := &PromptBuilder{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"join": strings.Join,
	}

	for _, name := range []string{"system", "user"} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(name + ".tmpl").Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

// PromptData is everything the templates can see.
type PromptData struct {
	City        string
	Knowledge   string
	Query       string
	Topic       model.Topic
	TimeContext string
	Refusals    []string
	Relevant    []knowledge.ScoredSection
	TamilMix    bool
}

// Build renders the prompt for q against c. The output depends only on its
// arguments: the time note comes from q.SubmittedAt.
func (pb *PromptBuilder) Build(c model.Context, q model.Query) (llm.Prompt, error) {
	data := promptData(c, q)

	system, err := pb.execute("system", data)
	if err != nil {
		return llm.Prompt{}, err
	}
	user, err := pb.execute("user", data)
	if err != nil {
		return llm.Prompt{}, err
	}

	return llm.Prompt{System: system, User: user}, nil
}

func (pb *PromptBuilder) execute(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := pb.templates[name].ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func promptData(c model.Context, q model.Query) PromptData {
	refusals := make([]string, 0, 3)
	for _, p := range model.RefusalPhrases() {
		refusals = append(refusals, string(p))
	}

	lower := strings.ToLower(c.Text)
	tamil := false
	for _, marker := range tamilMarkers {
		if strings.Contains(lower, marker) {
			tamil = true
			break
		}
	}

	return PromptData{
		City:        c.City.Title(),
		Knowledge:   c.Text,
		Query:       strings.TrimSpace(q.Text),
		Topic:       q.Topic,
		TimeContext: knowledge.TimeContext(q.SubmittedAt),
		Refusals:    refusals,
		Relevant:    knowledge.Retrieve(c.Text, q.Text, maxRelevantSections, q.SubmittedAt),
		TamilMix:    tamil,
	}
}

var defaultBuilder = sync.OnceValues(NewPromptBuilder)

// BuildPrompt renders the prompt for q against c with the embedded templates.
func BuildPrompt(c model.Context, q model.Query) (llm.Prompt, error) {
	pb, err := defaultBuilder()
	if err != nil {
		return llm.Prompt{}, err
	}
	return pb.Build(c, q)
}
