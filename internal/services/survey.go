package services

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/fincoach-backend/internal/schema"
)

//go:embed survey_questions.yaml
var surveyQuestionsYAML []byte

type questionMeta struct {
	Question  string `yaml:"question"`
	Context   string `yaml:"context"`
	InputType string `yaml:"input_type"`
}

type questionCatalog struct {
	Questions map[string]questionMeta `yaml:"questions"`
}

var surveyCatalog = func() map[string]questionMeta {
	var catalog questionCatalog
	if err := yaml.Unmarshal(surveyQuestionsYAML, &catalog); err != nil {
		panic(fmt.Sprintf("survey_questions.yaml: %v", err))
	}
	return catalog.Questions
}()

// NextQuestion is one onboarding or check-in prompt. Options is populated
// only for select inputs and carries labels in enum code order.
type NextQuestion struct {
	Field     string   `json:"field"`
	Question  string   `json:"question"`
	Context   string   `json:"context,omitempty"`
	InputType string   `json:"input_type"`
	Options   []string `json:"options,omitempty"`
	Progress  float64  `json:"progress"`
}

// SurveyService walks the field registry in declaration order and hands out
// one question at a time. It holds no per-user state; the caller tells it
// what has been collected so far.
type SurveyService struct{}

func NewSurveyService() *SurveyService {
	return &SurveyService{}
}

// Next returns the question for the first still-missing field, or ok=false
// with Progress 1.0 when every required field for the mode is collected.
// checkIn skips the demographic fields that live on the user record.
func (ss *SurveyService) Next(collected []string, checkIn bool) (NextQuestion, bool) {
	required := ss.requiredFor(checkIn)

	have := make(map[string]bool, len(collected))
	for _, f := range collected {
		have[f] = true
	}

	done := 0
	next := ""
	for _, f := range required {
		if have[f] {
			done++
		} else if next == "" {
			next = f
		}
	}

	if next == "" {
		return NextQuestion{Progress: 1.0}, false
	}

	q := NextQuestion{
		Field:    next,
		Progress: float64(done) / float64(len(required)),
	}
	if meta, ok := surveyCatalog[next]; ok {
		q.Question = meta.Question
		q.Context = meta.Context
		q.InputType = meta.InputType
	} else {
		q.Question = "Tell me about your " + next
		q.InputType = "text"
	}
	if spec, ok := schema.Lookup(next); ok && spec.Type == schema.TypeEnum {
		q.Options = spec.Options
	}
	return q, true
}

func (ss *SurveyService) requiredFor(checkIn bool) []string {
	all := schema.Required()
	if !checkIn {
		return all
	}
	profile := make(map[string]bool)
	for _, f := range schema.ProfileFields() {
		profile[f] = true
	}
	var out []string
	for _, f := range all {
		if !profile[f] {
			out = append(out, f)
		}
	}
	return out
}
