package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"traceforge/ai"
	"traceforge/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *ai.Client {
	return ai.NewClient(ai.ClientConfig{
		BaseURL:            url + "/",
		APIKey:             "sk-test",
		Model:              "gpt-4",
		TranscriptionModel: "whisper-1",
		Timeout:            2 * time.Second,
	}, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestClient_Generate(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/completions", r.URL.Path)
		req.Equal("Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		req.Equal("gpt-4", body.Model)
		req.InDelta(0.5, body.Temperature, 1e-9)
		req.Len(body.Messages, 2)
		req.Equal("system", body.Messages[0].Role)
		req.Equal("be brief", body.Messages[0].Content)
		req.Equal("hello", body.Messages[1].Content)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  hi there \n"}}]}`)
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Generate(context.Background(),
		ai.Prompt{Instruction: "be brief", Input: "hello", Temperature: 0.5})
	req.NoError(err)
	req.Equal("hi there", out)
}

func TestClient_Generate_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "provider error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Generate(context.Background(), ai.Prompt{Input: "x"})
			require.ErrorIs(t, err, errors.ErrUpstream)
		})
	}
}

func TestClient_Transcribe(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/audio/transcriptions", r.URL.Path)
		req.NoError(r.ParseMultipartForm(1 << 20))
		req.Equal("whisper-1", r.FormValue("model"))
		file, header, err := r.FormFile("file")
		req.NoError(err)
		defer file.Close()
		req.Equal("note.wav", header.Filename)
		data, err := io.ReadAll(file)
		req.NoError(err)
		req.Equal([]byte("audio-bytes"), data)

		_, _ = io.WriteString(w, `{"text":"namaste"}`)
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Transcribe(context.Background(), "note.wav", []byte("audio-bytes"))
	req.NoError(err)
	req.Equal("namaste", text)
}
