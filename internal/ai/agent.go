package ai

import (
	"context"
	"log"
	"time"

	"github.com/norahq/nora/internal/dbcontext"
	"github.com/norahq/nora/internal/keypool"
	"github.com/norahq/nora/internal/memory"
	"github.com/norahq/nora/internal/store"
)

const memorySummaryLimit = 140

// ContextProvider supplies the workspace snapshot for the prompt.
type ContextProvider interface {
	GetSnapshot(ctx context.Context) (*dbcontext.Snapshot, error)
}

// Memory is the cross-session memory consumed and fed by each turn.
type Memory interface {
	GetRelevantContext(message string) memory.RelevantContext
	Save(conversationID, summary string, topics, preferences []string) error
}

// CommandRunner post-processes the raw answer; it may only append text.
type CommandRunner interface {
	Run(ctx context.Context, userMessage, answer string) string
}

// HistoryStore persists conversation turns across sessions.
type HistoryStore interface {
	GetHistory(conversationID string) ([]store.ConversationTurn, error)
	SaveHistory(conversationID string, turns []store.ConversationTurn) error
}

// Reply is what one completed turn hands back to the transport layer.
type Reply struct {
	Text string
	Pool keypool.PoolState
}

// Agent is the top-level orchestrator for one chat turn: assemble prompt,
// dispatch with key failover, run the command pipeline, persist state,
// return the final text plus pool telemetry.
type Agent struct {
	dispatcher *Dispatcher
	pool       *keypool.Manager
	dbctx      ContextProvider
	mem        Memory
	history    HistoryStore
	pipeline   CommandRunner
	now        func() time.Time
}

func NewAgent(dispatcher *Dispatcher, pool *keypool.Manager, dbctx ContextProvider, mem Memory, history HistoryStore, pipeline CommandRunner) *Agent {
	return &Agent{
		dispatcher: dispatcher,
		pool:       pool,
		dbctx:      dbctx,
		mem:        mem,
		history:    history,
		pipeline:   pipeline,
		now:        time.Now,
	}
}

// SendMessage processes one user turn end to end. Collaborator context is
// best-effort: a failing snapshot or memory lookup degrades the prompt but
// never fails the turn. Dispatch errors propagate to the caller.
func (a *Agent) SendMessage(ctx context.Context, conversationID, text string, attachments []Attachment) (*Reply, error) {
	history, err := a.history.GetHistory(conversationID)
	if err != nil {
		log.Printf("agent: failed to load history for %s: %v", conversationID, err)
	}

	snapshot, err := a.dbctx.GetSnapshot(ctx)
	if err != nil {
		log.Printf("agent: context snapshot unavailable: %v", err)
		snapshot = nil
	}

	analysis := Analyze(text)
	relevant := a.mem.GetRelevantContext(text)

	pc := BuildPromptContext(AssemblerInput{
		Snapshot:    snapshot,
		Analysis:    analysis,
		Relevant:    relevant,
		History:     history,
		Message:     text,
		Attachments: attachments,
	})

	answer, err := a.dispatcher.Dispatch(ctx, pc)
	if err != nil {
		return nil, err
	}

	final := a.pipeline.Run(ctx, text, answer)

	now := a.now()
	turns := append(history,
		store.ConversationTurn{Role: "user", Text: text, At: now},
		store.ConversationTurn{Role: "model", Text: final, At: now},
	)
	if err := a.history.SaveHistory(conversationID, turns); err != nil {
		log.Printf("agent: failed to save history for %s: %v", conversationID, err)
	}

	if err := a.mem.Save(conversationID, summarize(text), analysis.Topics, analysis.Preferences); err != nil {
		log.Printf("agent: failed to save memory for %s: %v", conversationID, err)
	}

	return &Reply{Text: final, Pool: a.pool.Snapshot()}, nil
}

func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= memorySummaryLimit {
		return text
	}
	return string(runes[:memorySummaryLimit]) + "…"
}
