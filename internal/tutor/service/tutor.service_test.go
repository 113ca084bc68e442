package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"englishbuddy/internal/tutor/model"
	"englishbuddy/mocks"
	"englishbuddy/pkg/apperror"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceWithMocks(t *testing.T) (*TutorService, *mocks.MockCompleter) {
	t.Helper()
	ctrl := gomock.NewController(t)
	llm := mocks.NewMockCompleter(ctrl)
	return NewTutorService(llm, nil, ""), llm
}

func TestSuggestTopics(t *testing.T) {
	svc := NewTutorService(nil, nil, "")

	for i := 0; i < 50; i++ {
		topics := svc.SuggestTopics()
		require.Len(t, topics, TopicSampleSize)

		seen := map[string]bool{}
		for _, topic := range topics {
			assert.Contains(t, DefaultTopics, topic)
			assert.False(t, seen[topic], "duplicate topic %q", topic)
			seen[topic] = true
		}
	}
}

func TestLoadTopics(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "topics.yaml")
	require.NoError(t, os.WriteFile(good, []byte("topics:\n  - Ocean\n  - Cooking\n  - Sport\n  - Sport\n  - ''\n  - Film\n  - Games\n"), 0o600))
	topics, err := LoadTopics(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ocean", "Cooking", "Sport", "Film", "Games"}, topics)

	short := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(short, []byte("topics: [A, B, C]\n"), 0o600))
	_, err = LoadTopics(short)
	require.Error(t, err)

	_, err = LoadTopics(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestCleanTranslation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Translation: kot\nextra", "kot"},
		{"kot", "kot"},
		{"  pies  ", "pies"},
		{"TRANSLATION: dom", "dom"},
		{"Polish: jabłko", "jabłko"},
		{"translation: polish: szkoła", "szkoła"},
		{"dzień dobry. (good morning)", "dzień dobry"},
		{"samochód\n\nA car is a vehicle.", "samochód"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanTranslation(tt.in, "Polish"))
		})
	}
}

func TestCleanTranslationOtherTarget(t *testing.T) {
	assert.Equal(t, "Katze", cleanTranslation("German: Katze.", "German"))
	assert.Equal(t, "Polish: kot", cleanTranslation("Polish: kot", "German"))
}

func TestTranslate(t *testing.T) {
	svc, llm := newServiceWithMocks(t)

	llm.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "'cat'")
		assert.Contains(t, prompt, "into Polish")
		return "Translation: kot\nextra", nil
	})

	got, err := svc.Translate(context.Background(), "cat")
	require.NoError(t, err)
	assert.Equal(t, "kot", got)
}

func TestTranslateErrors(t *testing.T) {
	svc, llm := newServiceWithMocks(t)

	_, err := svc.Translate(context.Background(), " ")
	assert.True(t, apperror.Is(err, apperror.CodeValidation))

	llm.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", apperror.NewUpstreamUnavailable("down", errors.New("refused")))
	_, err = svc.Translate(context.Background(), "cat")
	assert.True(t, apperror.Is(err, apperror.CodeUpstreamUnavailable))
}

func TestGenerateForwardsPromptVerbatim(t *testing.T) {
	svc, llm := newServiceWithMocks(t)
	prompt := "Write a short story about Space for B1 learners."

	llm.EXPECT().Complete(gomock.Any(), prompt).Return("Once upon a time...", nil)

	got, err := svc.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time...", got)

	_, err = svc.Generate(context.Background(), "")
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

const threePoints = `[
  {"title": "Past Simple", "example_sentence": "The ship sailed at dawn.", "explanation": "Czynność zakończona w przeszłości."},
  {"title": "Passive Voice", "example_sentence": "The letter was written [by hand].", "explanation": "Strona bierna."},
  {"title": "Present Perfect", "example_sentence": "She has seen it.", "explanation": "Doświadczenie do teraz."}
]`

func asGrammarPoints(t *testing.T, raw []json.RawMessage) []model.GrammarPoint {
	t.Helper()
	points := make([]model.GrammarPoint, 0, len(raw))
	for _, r := range raw {
		var p model.GrammarPoint
		require.NoError(t, json.Unmarshal(r, &p))
		points = append(points, p)
	}
	return points
}

func TestExtractGrammarPoints(t *testing.T) {
	want := []model.GrammarPoint{
		{Title: "Past Simple", ExampleSentence: "The ship sailed at dawn.", Explanation: "Czynność zakończona w przeszłości."},
		{Title: "Passive Voice", ExampleSentence: "The letter was written [by hand].", Explanation: "Strona bierna."},
		{Title: "Present Perfect", ExampleSentence: "She has seen it.", Explanation: "Doświadczenie do teraz."},
	}

	tests := []struct {
		name    string
		content string
	}{
		{"bare array", threePoints},
		{"prose around", "Sure! Here is the analysis:\n" + threePoints + "\nHope this helps [really]."},
		{"markdown fence", "```json\n" + threePoints + "\n```"},
		{"bracketed note first", "Note [1]: three items below.\n" + threePoints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractGrammarPoints(tt.content)
			require.True(t, ok)
			assert.Equal(t, want, asGrammarPoints(t, got))
		})
	}
}

func TestExtractGrammarPointsFailures(t *testing.T) {
	for _, content := range []string{
		"I could not analyze this text.",
		`{"title": "Past Simple"}`,
		"[ not json ]",
		`[{"title": "unterminated"`,
		`["just", "strings"]`,
		`[{"title": "Past Simple"}, 5]`,
		`[null]`,
		`[{"title": 7}]`,
	} {
		_, ok := extractGrammarPoints(content)
		assert.False(t, ok, content)
	}
}

func TestExtractGrammarPointsKeepsExtraKeys(t *testing.T) {
	content := `[{"title": "Past Simple", "example_sentence": "She walked.", "explanation": "Przeszłość.", "level": "A2"}]`

	got, ok := extractGrammarPoints(content)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"title": "Past Simple", "example_sentence": "She walked.", "explanation": "Przeszłość.", "level": "A2"}`, string(got[0]))
}

func TestMatchingBracket(t *testing.T) {
	s := `[1, "]", [2, 3], "\"]"] tail`
	end := matchingBracket(s, 0)
	assert.Equal(t, strings.Index(s, " tail")-1, end)
	assert.Equal(t, -1, matchingBracket("[[1]", 0))
}

func TestAnalyzeGrammar(t *testing.T) {
	svc, llm := newServiceWithMocks(t)

	llm.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "The ship sailed at dawn.")
		assert.Contains(t, prompt, "exactly 3")
		return "Here you go:\n" + threePoints, nil
	})

	got, err := svc.AnalyzeGrammar(context.Background(), "The ship sailed at dawn.")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "Past Simple", asGrammarPoints(t, got)[0].Title)
}

func TestAnalyzeGrammarUnparsable(t *testing.T) {
	svc, llm := newServiceWithMocks(t)

	llm.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("No brackets at all", nil)

	_, err := svc.AnalyzeGrammar(context.Background(), "Some text.")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeUpstreamFormat))
	assert.Equal(t, "No brackets at all", apperror.From(err).Details["raw_content"])
}

func TestAnalyzeGrammarValidation(t *testing.T) {
	svc, _ := newServiceWithMocks(t)

	_, err := svc.AnalyzeGrammar(context.Background(), "")
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}
