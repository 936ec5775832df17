package kommo

// NoteRequest is one element of the v4 note-creation body.
type NoteRequest struct {
	NoteType string     `json:"note_type"`
	Params   NoteParams `json:"params"`
}

// NoteParams carries the note text.
type NoteParams struct {
	Text string `json:"text"`
}

// ChatMessage is one message from a lead's chat feed.
type ChatMessage struct {
	Direction string `json:"direction"`
	Text      string `json:"text"`
}

// ChatMessagesResponse mirrors the v4 chat feed envelope.
type ChatMessagesResponse struct {
	Embedded struct {
		Messages []ChatMessage `json:"messages"`
	} `json:"_embedded"`
}
