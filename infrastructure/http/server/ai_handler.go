package server

import (
	"fmt"
	"io"
	"net/http"

	"traceforge/ai"
	"traceforge/errors"
)

type TranscriptionResponse struct {
	Text string `json:"text"`
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.aiLimiter != nil && !s.aiLimiter.Allow() {
			s.writeError(w, r, errors.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Globalize(w http.ResponseWriter, r *http.Request) {
	var req ai.LocalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Globalizer.Localize(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req ai.CodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Globalizer.GenerateCode(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Transcribe expects a multipart form with the recording in "file".
func (s *Server) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ai.MaxAudioSize+maxBodySize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: missing file: %v", errors.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: read upload: %v", errors.ErrInvalidInput, err))
		return
	}
	text, err := s.deps.Transcriber.Transcribe(r.Context(), header.Filename, audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptionResponse{Text: text})
}
