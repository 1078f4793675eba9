package ai

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/norahq/nora/internal/dbcontext"
	"github.com/norahq/nora/internal/memory"
	"github.com/norahq/nora/internal/store"
)

// maxHistoryTurns is a hard cap on prior turns included in the prompt,
// oldest dropped first. It is a turn count, not a token budget.
const maxHistoryTurns = 10

// Attachment is one file sent with the current turn. Images travel as
// inline binary; anything else is treated as text and prefixed with the
// file name.
type Attachment struct {
	FileName string
	MIMEType string
	Data     []byte
}

func (a Attachment) isImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

// PromptContext is the fully assembled, ordered content for one turn. It is
// owned by the current call and never persisted.
type PromptContext struct {
	Contents    []*genai.Content
	UserMessage string
}

// AssemblerInput collects everything one turn's prompt is built from. A nil
// Snapshot or empty memory context means the collaborator was unavailable;
// assembly still succeeds with placeholder blocks.
type AssemblerInput struct {
	Snapshot    *dbcontext.Snapshot
	Analysis    MessageAnalysis
	Relevant    memory.RelevantContext
	History     []store.ConversationTurn
	Message     string
	Attachments []Attachment
}

// BuildPromptContext assembles the prompt in its fixed order: the context
// block, then at most maxHistoryTurns of history oldest-first, then the
// current turn (text part first, then attachments in input order). Pure
// function of its input.
func BuildPromptContext(in AssemblerInput) PromptContext {
	contents := []*genai.Content{
		genai.NewContentFromText(buildContextBlock(in.Snapshot, in.Analysis, in.Relevant), genai.RoleUser),
	}

	history := in.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	parts := []*genai.Part{{Text: in.Message}}
	for _, att := range in.Attachments {
		if att.isImage() {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: att.MIMEType, Data: att.Data},
			})
			continue
		}
		parts = append(parts, &genai.Part{
			Text: fmt.Sprintf("[Archivo adjunto: %s]\n%s", att.FileName, att.Data),
		})
	}
	contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: parts})

	return PromptContext{Contents: contents, UserMessage: in.Message}
}
