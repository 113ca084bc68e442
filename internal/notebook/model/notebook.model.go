package model

// NotebookEntry is one saved word with its translation.
type NotebookEntry struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

type SendNotebookRequest struct {
	RecipientEmail string          `json:"recipient_email"`
	NotebookWords  []NotebookEntry `json:"notebook_words"`
}

type SendNotebookResponse struct {
	Message string `json:"message"`
}
