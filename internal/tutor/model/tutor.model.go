package model

type TranslateRequest struct {
	Text string `json:"text"`
}

type TranslateResponse struct {
	Translation string `json:"translation"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GeneratedText is one element of the generate response list.
type GeneratedText struct {
	GeneratedText string `json:"generated_text"`
}

type GrammarRequest struct {
	Text string `json:"text"`
}

// GrammarPoint is one grammatical structure found in a passage.
type GrammarPoint struct {
	Title           string `json:"title"`
	ExampleSentence string `json:"example_sentence"`
	Explanation     string `json:"explanation"`
}
