package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/norahq/nora/internal/keypool"
)

var (
	poolBucket          = []byte("keypool")
	conversationsBucket = []byte("conversations")
	memoriesBucket      = []byte("memories")
	knowledgeBucket     = []byte("knowledge")
	profileBucket       = []byte("profile")
)

var poolStateKey = []byte("state")

const maxConversationTurns = 50

// ConversationTurn is one message in a conversation (user or model).
type ConversationTurn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// MemoryRecord is a persisted summary of one past conversation.
type MemoryRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Summary        string    `json:"summary"`
	Topics         []string  `json:"topics,omitempty"`
	Preferences    []string  `json:"preferences,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// KnowledgeEntry is one knowledge-base article available for prompt context.
type KnowledgeEntry struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// UserProfile holds the accumulated profile of the assistant's user.
type UserProfile struct {
	Name        string            `json:"name,omitempty"`
	Role        string            `json:"role,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type Store interface {
	keypool.StateStore

	GetHistory(conversationID string) ([]ConversationTurn, error)
	SaveHistory(conversationID string, turns []ConversationTurn) error
	ClearHistory(conversationID string) error

	SaveMemory(m MemoryRecord) error
	ListMemories() ([]MemoryRecord, error)

	SaveKnowledgeEntry(e KnowledgeEntry) error
	ListKnowledge() ([]KnowledgeEntry, error)

	GetProfile() (*UserProfile, error)
	SaveProfile(p UserProfile) error

	Close() error
}

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{poolBucket, conversationsBucket, memoriesBucket, knowledgeBucket, profileBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// LoadPoolState implements keypool.StateStore.
func (s *BoltStore) LoadPoolState() (*keypool.PoolState, error) {
	var state *keypool.PoolState
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(poolBucket).Get(poolStateKey)
		if v == nil {
			return nil
		}
		state = &keypool.PoolState{}
		return json.Unmarshal(v, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SavePoolState implements keypool.StateStore.
func (s *BoltStore) SavePoolState(state *keypool.PoolState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return tx.Bucket(poolBucket).Put(poolStateKey, data)
	})
}

func (s *BoltStore) GetHistory(conversationID string) ([]ConversationTurn, error) {
	var turns []ConversationTurn
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(conversationsBucket).Get([]byte(conversationID))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &turns)
	})
	return turns, err
}

func (s *BoltStore) SaveHistory(conversationID string, turns []ConversationTurn) error {
	if len(turns) > maxConversationTurns {
		turns = turns[len(turns)-maxConversationTurns:]
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(turns)
		if err != nil {
			return err
		}
		return tx.Bucket(conversationsBucket).Put([]byte(conversationID), data)
	})
}

func (s *BoltStore) ClearHistory(conversationID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Delete([]byte(conversationID))
	})
}

func (s *BoltStore) SaveMemory(m MemoryRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(memoriesBucket).Put([]byte(m.ID), data)
	})
}

func (s *BoltStore) ListMemories() ([]MemoryRecord, error) {
	var out []MemoryRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(memoriesBucket).ForEach(func(_, v []byte) error {
			var m MemoryRecord
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) SaveKnowledgeEntry(e KnowledgeEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Bucket(knowledgeBucket).Put([]byte(e.ID), data)
	})
}

func (s *BoltStore) ListKnowledge() ([]KnowledgeEntry, error) {
	var out []KnowledgeEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(knowledgeBucket).ForEach(func(_, v []byte) error {
			var e KnowledgeEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) GetProfile() (*UserProfile, error) {
	var p UserProfile
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(profileBucket).Get([]byte("user"))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *BoltStore) SaveProfile(p UserProfile) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(profileBucket).Put([]byte("user"), data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
