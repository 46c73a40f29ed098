package server

import (
	"net/http"

	"traceforge/auth"
	"traceforge/errors"
)

type PostMessageRequest struct {
	Body string `json:"body"`
}

// GetMessages returns the recent history visible to the token holder.
func (s *Server) GetMessages(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		s.writeError(w, r, errors.ErrNotAuthenticated)
		return
	}
	messages, err := s.deps.ChatService.History(username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: toMessagesResponse(messages)})
}

// PostMessage answers 204 when the body was blank and nothing was stored.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		s.writeError(w, r, errors.ErrNotAuthenticated)
		return
	}
	var req PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	message, sent, err := s.deps.ChatService.Send(r.Context(), username, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !sent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.messageSent()
	writeJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (s *Server) SearchMessages(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		s.writeError(w, r, errors.ErrNotAuthenticated)
		return
	}
	messages, err := s.deps.ChatService.Search(r.Context(), username, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: toMessagesResponse(messages)})
}
