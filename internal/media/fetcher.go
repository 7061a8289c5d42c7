package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ekisa-team/voicescribe/internal/transport"
	"github.com/ekisa-team/voicescribe/internal/xfs"
)

// Kind classifies an inbound message.
type Kind string

const (
	KindUnsupported Kind = "unsupported"
	KindVoice       Kind = "voice"
	KindAudio       Kind = "audio"
	KindDocument    Kind = "document"
)

const (
	// VoiceExt is the extension used for voice notes, which are always Opus in OGG.
	VoiceExt = "ogg"

	// DefaultName stands in for a missing filename.
	DefaultName = "audio"

	// DefaultDownloadTimeout bounds a single download.
	DefaultDownloadTimeout = 60 * time.Second
)

// ErrUnsupported is returned by Fetch for messages that carry no audio.
var ErrUnsupported = errors.New("media: message carries no audio")

// ErrDownload wraps download failures.
var ErrDownload = errors.New("media: download failed")

// Classify picks the audio attachment of msg and the extension to store it
// under. Documents count only when their MIME type is audio/*.
func Classify(msg *transport.Message) (Kind, *transport.Attachment, string) {
	switch {
	case msg == nil:
		return KindUnsupported, nil, ""
	case msg.Voice != nil:
		return KindVoice, msg.Voice, VoiceExt
	case msg.Audio != nil:
		return KindAudio, msg.Audio, Ext(msg.Audio.FileName)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MIMEType, "audio"):
		return KindDocument, msg.Document, Ext(msg.Document.FileName)
	default:
		return KindUnsupported, nil, ""
	}
}

// Ext derives a file extension from a filename: the text after the last dot,
// or the whole name when there is none. Only ASCII letters and digits are
// kept so the result is safe to put in a path.
func Ext(fileName string) string {
	if fileName == "" {
		fileName = DefaultName
	}

	ext := fileName
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		ext = fileName[i+1:]
	}

	ext = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, ext)

	if ext == "" {
		return DefaultName
	}

	return ext
}

// Fetched describes a downloaded attachment.
type Fetched struct {
	Kind Kind
	Path string
	Ext  string
}

// Fetcher downloads audio attachments into per-request temp files.
type Fetcher struct {
	downloader transport.Downloader
	timeout    time.Duration
}

// NewFetcher creates a fetcher. A zero timeout uses DefaultDownloadTimeout.
func NewFetcher(downloader transport.Downloader, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	return &Fetcher{downloader: downloader, timeout: timeout}
}

// Fetch classifies msg and downloads its audio into a path registered in
// temps. Unsupported messages return ErrUnsupported without touching temps.
func (f *Fetcher) Fetch(ctx context.Context, msg *transport.Message, temps *xfs.TempSet) (*Fetched, error) {
	kind, att, ext := Classify(msg)
	if kind == KindUnsupported {
		return nil, ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	path := temps.New(ext)
	if err := f.downloader.Download(ctx, att.FileID, path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, kind, err)
	}

	return &Fetched{Kind: kind, Path: path, Ext: ext}, nil
}
