// Package server exposes the chat orchestrator and pool telemetry over
// HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/norahq/nora/internal/ai"
	"github.com/norahq/nora/internal/keypool"
	"github.com/norahq/nora/internal/session"
)

type chatRequest struct {
	ConversationID string           `json:"conversation_id"`
	Message        string           `json:"message"`
	Attachments    []chatAttachment `json:"attachments,omitempty"`
}

type chatAttachment struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"` // base64 on the wire
}

type chatResponse struct {
	ConversationID string            `json:"conversation_id"`
	Reply          string            `json:"reply"`
	Pool           keypool.PoolState `json:"pool"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type Handler struct {
	agent    *ai.Agent
	pool     *keypool.Manager
	sessions *session.Manager
}

func NewHandler(agent *ai.Agent, pool *keypool.Manager, sessions *session.Manager) *Handler {
	return &Handler{agent: agent, pool: pool, sessions: sessions}
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad-json", "cuerpo de la petición inválido")
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	attachments := make([]ai.Attachment, len(req.Attachments))
	for i, a := range req.Attachments {
		attachments[i] = ai.Attachment{FileName: a.FileName, MIMEType: a.MIMEType, Data: a.Data}
	}

	var reply *ai.Reply
	err := h.sessions.WithLock(req.ConversationID, func() error {
		var sendErr error
		reply, sendErr = h.agent.SendMessage(r.Context(), req.ConversationID, req.Message, attachments)
		return sendErr
	})
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Reply:          reply.Text,
		Pool:           reply.Pool,
	})
}

// writeSendError maps orchestrator failures onto distinct HTTP shapes:
// exhaustion gets its own retry-later code, validation and configuration
// failures are explicit, everything else is a generic provider failure.
func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty-message", "el mensaje está vacío")
	case errors.Is(err, keypool.ErrNoKeys):
		writeError(w, http.StatusInternalServerError, "no-keys", "no hay claves de API configuradas")
	case errors.Is(err, keypool.ErrExhausted):
		writeError(w, http.StatusServiceUnavailable, "keys-exhausted",
			"todas las claves de API están limitadas; inténtalo de nuevo más tarde")
	default:
		log.Printf("server: chat failed: %v", err)
		writeError(w, http.StatusBadGateway, "provider-error", "no se pudo obtener respuesta del modelo")
	}
}

func (h *Handler) HandlePoolStatus(w http.ResponseWriter, r *http.Request) {
	state := h.pool.Snapshot()
	// Never expose key material over the telemetry endpoint.
	for i := range state.Credentials {
		state.Credentials[i].Key = redactKey(state.Credentials[i].Key)
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) HandlePoolReset(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.ResetAll(); err != nil {
		log.Printf("server: pool reset failed: %v", err)
		writeError(w, http.StatusInternalServerError, "reset-failed", "no se pudo reiniciar el pool")
		return
	}
	h.HandlePoolStatus(w, r)
}

func redactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}
