package generator

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/memorymate/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// PromptTemplate is the YAML shape of templates/question.yaml.
type PromptTemplate struct {
	System        string                       `yaml:"system"`
	Difficulty    map[models.Difficulty]string `yaml:"difficulty"`
	TopicsWith    string                       `yaml:"topics_with"`
	TopicsWithout string                       `yaml:"topics_without"`
	Novelty       string                       `yaml:"novelty"`
	Format        string                       `yaml:"format"`
	User          string                       `yaml:"user"`
}

// PromptCatalog builds per-question instructions from the embedded template.
type PromptCatalog struct {
	tpl PromptTemplate
}

func NewPromptCatalog() (*PromptCatalog, error) {
	data, err := templateFS.ReadFile("templates/question.yaml")
	if err != nil {
		return nil, fmt.Errorf("read question template: %w", err)
	}
	return ParsePromptCatalog(data)
}

func ParsePromptCatalog(data []byte) (*PromptCatalog, error) {
	var tpl PromptTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse question template: %w", err)
	}
	if tpl.System == "" || tpl.User == "" || tpl.Format == "" {
		return nil, fmt.Errorf("question template missing system, user or format section")
	}
	for d := range models.ValidDifficulties {
		if tpl.Difficulty[d] == "" {
			return nil, fmt.Errorf("question template missing difficulty %q", d)
		}
	}
	return &PromptCatalog{tpl: tpl}, nil
}

// SystemPrompt frames difficulty, topic steering, novelty and output shape.
func (pc *PromptCatalog) SystemPrompt(difficulty models.Difficulty, topics []string) string {
	topicText := pc.tpl.TopicsWithout
	if len(topics) > 0 {
		topicText = strings.ReplaceAll(pc.tpl.TopicsWith, "{{.TopicList}}", strings.Join(topics, ", "))
	}

	framing, ok := pc.tpl.Difficulty[difficulty]
	if !ok {
		framing = pc.tpl.Difficulty[models.DifficultyMedium]
	}

	r := strings.NewReplacer(
		"{{.Difficulty}}", strings.TrimSpace(framing),
		"{{.Topics}}", strings.TrimSpace(topicText),
		"{{.Novelty}}", strings.TrimSpace(pc.tpl.Novelty),
		"{{.Format}}", strings.TrimSpace(pc.tpl.Format),
	)
	return strings.TrimSpace(r.Replace(pc.tpl.System))
}

// UserPrompt is the per-slot turn; index is zero based.
func (pc *PromptCatalog) UserPrompt(index int) string {
	return strings.ReplaceAll(pc.tpl.User, "{{.Number}}", strconv.Itoa(index+1))
}
