// Package transport defines the messaging-platform boundary: the inbound
// message shape and the calls the core makes back into the platform.
package transport

import "context"

// Attachment references a file hosted by the messaging platform.
type Attachment struct {
	FileID   string
	FileName string
	MIMEType string
	FileSize int64
}

// Message is an inbound chat message. At most one of Voice, Audio and
// Document is normally set.
type Message struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	Username  string
	Text      string

	Voice    *Attachment
	Audio    *Attachment
	Document *Attachment
}

// Downloader fetches attachment bytes by file reference.
type Downloader interface {
	Download(ctx context.Context, fileID, dst string) error
}

// Replier sends replies to the chat a message came from.
type Replier interface {
	ReplyText(ctx context.Context, msg *Message, text string) error
	ReplyDocument(ctx context.Context, msg *Message, path string) error
}

// Handler processes one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}
