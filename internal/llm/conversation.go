package llm

import "slices"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ImagePlaceholder stands in for the image in the serialisable history.
const ImagePlaceholder = "[IMAGE_DATA]"

// Turn is one message of the conversation. Parts are text; the image is
// represented by ImagePlaceholder.
type Turn struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

func (t Turn) clone() Turn {
	return Turn{Role: t.Role, Parts: slices.Clone(t.Parts)}
}

// HasImage reports whether the turn carries the image placeholder.
func (t Turn) HasImage() bool {
	return slices.Contains(t.Parts, ImagePlaceholder)
}

// Conversation is the replayable state of one image analysis. It is a value
// type: every redo returns a new Conversation whose history extends the old
// one, and the old value is never modified.
//
// The image bytes are kept outside the serialisable fields. After a round
// trip through JSON they must be re-attached with WithImage before a redo.
type Conversation struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	MIMEType     string `json:"mime_type"`
	History      []Turn `json:"conversation_history"`
	FeedbackUsed string `json:"feedback_used,omitempty"`
	Failed       bool   `json:"failed,omitempty"`

	image []byte
}

func newConversation(model, systemPrompt, mimeType string, image []byte) Conversation {
	return Conversation{
		Model:        model,
		SystemPrompt: systemPrompt,
		MIMEType:     mimeType,
		History: []Turn{{
			Role:  RoleUser,
			Parts: []string{ImagePlaceholder, userPrompt},
		}},
		image: image,
	}
}

// Image returns the raw image bytes, or nil if they were not re-attached.
func (c Conversation) Image() []byte {
	return c.image
}

// WithImage returns a copy of the conversation carrying the image bytes.
func (c Conversation) WithImage(image []byte) Conversation {
	c.History = cloneHistory(c.History)
	c.image = image
	return c
}

// Serializable returns a copy without the image bytes.
func (c Conversation) Serializable() Conversation {
	c.History = cloneHistory(c.History)
	c.image = nil
	return c
}

// Len is the number of turns in the history.
func (c Conversation) Len() int {
	return len(c.History)
}

// extend returns a new conversation with turns appended. The receiver's
// history is copied, never shared.
func (c Conversation) extend(turns ...Turn) Conversation {
	history := make([]Turn, 0, len(c.History)+len(turns))
	history = append(history, cloneHistory(c.History)...)
	for _, t := range turns {
		history = append(history, t.clone())
	}
	c.History = history
	return c
}

func cloneHistory(history []Turn) []Turn {
	if history == nil {
		return nil
	}
	out := make([]Turn, len(history))
	for i, t := range history {
		out[i] = t.clone()
	}
	return out
}

func textTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []string{text}}
}
