package ai

import (
	"context"
	"fmt"
	"strings"

	"traceforge/errors"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAudioSize is the upload limit of the transcription endpoint.
const MaxAudioSize = 25 << 20

// AudioGuard rejects payloads that are not audio before they reach the provider.
type AudioGuard struct {
	next Transcriber
}

func NewAudioGuard(next Transcriber) *AudioGuard {
	return &AudioGuard{next: next}
}

func (g *AudioGuard) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty upload", errors.ErrInvalidInput)
	}
	if len(audio) > MaxAudioSize {
		return "", fmt.Errorf("%w: upload exceeds %d bytes", errors.ErrInvalidInput, MaxAudioSize)
	}
	mtype := mimetype.Detect(audio)
	if !IsAudio(mtype) {
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedMedia, mtype.String())
	}
	if filename == "" {
		filename = "upload" + mtype.Extension()
	}
	return g.next.Transcribe(ctx, filename, audio)
}

// IsAudio accepts audio/* and the video containers browsers record voice into.
func IsAudio(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || m.Is("video/webm") || m.Is("video/mp4") {
			return true
		}
	}
	return false
}
