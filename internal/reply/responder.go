package reply

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ekisa-team/voicescribe/internal/backend/whisper"
	"github.com/ekisa-team/voicescribe/internal/config"
	"github.com/ekisa-team/voicescribe/internal/transport"
	"github.com/ekisa-team/voicescribe/internal/xfs"
)

// InlineLimit is the longest transcript, in characters, sent as a plain
// message. Longer ones go out as a text document.
const InlineLimit = 3500

// Mode tells how a reply was delivered.
type Mode string

const (
	ModeInline   Mode = "inline"
	ModeDocument Mode = "document"
	ModeNotice   Mode = "notice"
)

// Responder turns a transcription result into a chat reply.
type Responder struct {
	replier  transport.Replier
	messages config.Messages
}

// NewResponder creates a responder.
func NewResponder(replier transport.Replier, messages config.Messages) *Responder {
	return &Responder{replier: replier, messages: messages}
}

// Respond sends res back to the author of msg. Long transcripts are written
// to a temp file registered in temps and removed right after the send.
func (r *Responder) Respond(ctx context.Context, msg *transport.Message, res whisper.Result, temps *xfs.TempSet) (Mode, error) {
	switch {
	case res.Status == whisper.StatusTimedOut:
		return ModeNotice, r.replier.ReplyText(ctx, msg, r.messages.Timeout)
	case res.Status == whisper.StatusFailed:
		return ModeNotice, r.replier.ReplyText(ctx, msg, r.messages.ExecFailed)
	case res.Empty():
		return ModeNotice, r.replier.ReplyText(ctx, msg, r.messages.NoText)
	}

	if utf8.RuneCountInString(res.Text) <= InlineLimit {
		return ModeInline, r.replier.ReplyText(ctx, msg, res.Text)
	}

	path := temps.New("txt")
	if err := os.WriteFile(path, []byte(res.Text), 0o600); err != nil {
		return ModeDocument, fmt.Errorf("reply: write transcript: %w", err)
	}
	defer temps.Remove(path)

	return ModeDocument, r.replier.ReplyDocument(ctx, msg, path)
}

// Notice sends one of the fixed user-facing messages.
func (r *Responder) Notice(ctx context.Context, msg *transport.Message, text string) error {
	return r.replier.ReplyText(ctx, msg, strings.TrimSpace(text))
}
