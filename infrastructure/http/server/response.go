package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"traceforge/domain"
	"traceforge/errors"

	"github.com/samber/lo"
)

const maxBodySize = 1 << 20

type MessageResponse struct {
	Seq       uint64    `json:"seq"`
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		Seq:       m.Seq,
		ID:        m.ID.String(),
		Author:    m.Author,
		Body:      m.Body,
		Private:   m.IsPrivate(),
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(item domain.Message, _ int) MessageResponse {
		return toMessageResponse(item)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.Message(err)})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errors.ErrInvalidInput, err)
	}
	return nil
}
