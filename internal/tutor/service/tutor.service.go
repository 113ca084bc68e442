package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/metrics"
)

//go:generate mockgen -source=tutor.service.go -destination=../../../mocks/completer.go -package=mocks

// Completer sends one prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const translatePrompt = "Translate the English word or phrase '%s' into %s. " +
	"Provide only the most common, direct, and concise translation, without any additional explanations, " +
	"examples, synonyms, or context. Respond ONLY with the translated word or phrase."

const grammarPrompt = `Analyze the following English text and identify exactly 3 grammatical structures that are worth learning.
For each structure return a JSON object with the keys:
- "title": the name of the structure,
- "example_sentence": a sentence from the text that uses it,
- "explanation": a short explanation in %s for a learner.
Reply ONLY with a JSON list of these 3 objects, without any other text.

Text:
"""
%s
"""`

type TutorService struct {
	LLM    Completer
	Topics []string
	// Target is the language words are translated into and grammar is explained in.
	Target string
}

// NewTutorService falls back to DefaultTopics and Polish when topics or target are empty.
func NewTutorService(llm Completer, topics []string, target string) *TutorService {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	if target == "" {
		target = "Polish"
	}
	return &TutorService{LLM: llm, Topics: topics, Target: target}
}

// SuggestTopics returns TopicSampleSize distinct random topics.
func (s *TutorService) SuggestTopics() []string {
	return sampleTopics(s.Topics, TopicSampleSize)
}

func (s *TutorService) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperror.NewValidation("No text provided")
	}

	completion, err := s.complete(ctx, "translate", fmt.Sprintf(translatePrompt, text, s.Target))
	if err != nil {
		return "", err
	}
	return cleanTranslation(completion, s.Target), nil
}

// Generate forwards prompt verbatim.
func (s *TutorService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperror.NewValidation("No prompt provided")
	}
	return s.complete(ctx, "generate", prompt)
}

// AnalyzeGrammar returns the findings exactly as the model sent them; see model.GrammarPoint
// for the fields the prompt asks for.
func (s *TutorService) AnalyzeGrammar(ctx context.Context, text string) ([]json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.NewValidation("No text provided")
	}

	completion, err := s.complete(ctx, "grammar", fmt.Sprintf(grammarPrompt, s.Target, text))
	if err != nil {
		return nil, err
	}

	points, ok := extractGrammarPoints(completion)
	if !ok {
		metrics.LLMRequests.WithLabelValues("grammar", "bad_format").Inc()
		return nil, apperror.NewUpstreamFormat("Could not parse the grammar analysis returned by the language model", completion)
	}
	return points, nil
}

func (s *TutorService) complete(ctx context.Context, operation, prompt string) (string, error) {
	out, err := s.LLM.Complete(ctx, prompt)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(operation, string(apperror.From(err).Code)).Inc()
		return "", err
	}
	metrics.LLMRequests.WithLabelValues(operation, "ok").Inc()
	return out, nil
}
