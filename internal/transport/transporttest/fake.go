// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ekisa-team/voicescribe/internal/transport"
)

// Reply is a recorded outbound reply.
type Reply struct {
	ChatID   int64
	ReplyTo  int
	Text     string
	Document string
	// DocumentBody is the content of the document at send time.
	DocumentBody string
}

// Fake implements transport.Downloader and transport.Replier in memory.
type Fake struct {
	// Files maps file IDs to the bytes a download produces.
	Files map[string][]byte
	// DownloadErr is returned by every Download when set.
	DownloadErr error
	// SendErr is returned by every reply when set.
	SendErr error

	mu        sync.Mutex
	replies   []Reply
	downloads []string
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{Files: map[string][]byte{}}
}

// Download writes the registered bytes for fileID to dst.
func (f *Fake) Download(_ context.Context, fileID, dst string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, dst)
	f.mu.Unlock()

	if f.DownloadErr != nil {
		return f.DownloadErr
	}

	data, ok := f.Files[fileID]
	if !ok {
		return errors.New("file not found")
	}

	return os.WriteFile(dst, data, 0o600)
}

// ReplyText records a text reply.
func (f *Fake) ReplyText(_ context.Context, msg *transport.Message, text string) error {
	f.record(Reply{ChatID: msg.ChatID, ReplyTo: msg.MessageID, Text: text})
	return f.SendErr
}

// ReplyDocument records a document reply along with its current content.
func (f *Fake) ReplyDocument(_ context.Context, msg *transport.Message, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f.record(Reply{ChatID: msg.ChatID, ReplyTo: msg.MessageID, Document: path, DocumentBody: string(body)})
	return f.SendErr
}

// Replies returns recorded replies in send order.
func (f *Fake) Replies() []Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Reply(nil), f.replies...)
}

// Downloads returns every destination path a download was attempted to.
func (f *Fake) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.downloads...)
}

func (f *Fake) record(r Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.replies = append(f.replies, r)
}
