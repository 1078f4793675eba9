// Package memory retrieves and persists cross-session conversation memory:
// summaries of past conversations, knowledge-base entries, and the user
// profile. Retrieval is keyword-overlap scoring, not semantic search.
package memory

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/norahq/nora/internal/store"
)

const (
	maxRelevantMemories  = 3
	maxRelevantKnowledge = 3
)

// RelevantContext is what the prompt assembler receives for one message.
type RelevantContext struct {
	Memories  []store.MemoryRecord
	Knowledge []store.KnowledgeEntry
}

// ProfileUpdate is a partial user-profile change; zero fields are ignored.
type ProfileUpdate struct {
	Name        string
	Role        string
	Preferences map[string]string
}

type MemoryStore struct {
	store store.Store
}

func New(s store.Store) *MemoryStore {
	return &MemoryStore{store: s}
}

// GetRelevantContext scores every stored memory and knowledge entry against
// the message and returns the top matches. A storage failure returns an
// empty context, never an error: prompt assembly must not fail because
// memory is unavailable.
func (m *MemoryStore) GetRelevantContext(message string) RelevantContext {
	words := tokenize(message)

	var ctx RelevantContext

	mems, err := m.store.ListMemories()
	if err != nil {
		log.Printf("memory: failed to list memories: %v", err)
	} else {
		ctx.Memories = topMemories(mems, words, maxRelevantMemories)
	}

	entries, err := m.store.ListKnowledge()
	if err != nil {
		log.Printf("memory: failed to list knowledge: %v", err)
	} else {
		ctx.Knowledge = topKnowledge(entries, words, maxRelevantKnowledge)
	}

	return ctx
}

// Save persists a summary of the just-finished turn for future retrieval.
func (m *MemoryStore) Save(conversationID, summary string, topics, preferences []string) error {
	rec := store.MemoryRecord{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Summary:        summary,
		Topics:         topics,
		Preferences:    preferences,
		CreatedAt:      time.Now(),
	}
	if err := m.store.SaveMemory(rec); err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}
	return nil
}

// UpdateProfile merges a partial update into the stored user profile.
func (m *MemoryStore) UpdateProfile(upd ProfileUpdate) error {
	p, err := m.store.GetProfile()
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if p == nil {
		p = &store.UserProfile{}
	}
	if upd.Name != "" {
		p.Name = upd.Name
	}
	if upd.Role != "" {
		p.Role = upd.Role
	}
	if len(upd.Preferences) > 0 {
		if p.Preferences == nil {
			p.Preferences = make(map[string]string)
		}
		for k, v := range upd.Preferences {
			p.Preferences[k] = v
		}
	}
	p.UpdatedAt = time.Now()
	return m.store.SaveProfile(*p)
}

type scored[T any] struct {
	item  T
	score int
}

func topMemories(mems []store.MemoryRecord, words map[string]struct{}, limit int) []store.MemoryRecord {
	var ranked []scored[store.MemoryRecord]
	for _, rec := range mems {
		s := overlap(words, rec.Summary)
		for _, t := range rec.Topics {
			s += overlap(words, t) * 2
		}
		if s > 0 {
			ranked = append(ranked, scored[store.MemoryRecord]{rec, s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]store.MemoryRecord, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

func topKnowledge(entries []store.KnowledgeEntry, words map[string]struct{}, limit int) []store.KnowledgeEntry {
	var ranked []scored[store.KnowledgeEntry]
	for _, e := range entries {
		s := overlap(words, e.Title)*2 + overlap(words, e.Content)
		for _, t := range e.Tags {
			s += overlap(words, t) * 2
		}
		if s > 0 {
			ranked = append(ranked, scored[store.KnowledgeEntry]{e, s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]store.KnowledgeEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

func overlap(words map[string]struct{}, text string) int {
	n := 0
	for w := range tokenize(text) {
		if _, ok := words[w]; ok {
			n++
		}
	}
	return n
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:¿?¡!\"'()")
		// Short words are mostly articles and prepositions.
		if len([]rune(w)) < 4 {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}
