package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicescribe/internal/transport"
	"github.com/ekisa-team/voicescribe/internal/transport/transporttest"
	"github.com/ekisa-team/voicescribe/internal/xfs"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  *transport.Message
		kind Kind
		ext  string
	}{
		{"nil", nil, KindUnsupported, ""},
		{"text only", &transport.Message{Text: "hi"}, KindUnsupported, ""},
		{"voice", &transport.Message{Voice: &transport.Attachment{FileID: "v", MIMEType: "audio/ogg"}}, KindVoice, "ogg"},
		{"voice ignores mime", &transport.Message{Voice: &transport.Attachment{FileID: "v", MIMEType: "audio/mpeg"}}, KindVoice, "ogg"},
		{"audio with name", &transport.Message{Audio: &transport.Attachment{FileID: "a", FileName: "song.flac"}}, KindAudio, "flac"},
		{"audio without name", &transport.Message{Audio: &transport.Attachment{FileID: "a"}}, KindAudio, "audio"},
		{"audio document", &transport.Message{Document: &transport.Attachment{FileID: "d", FileName: "clip.mp3", MIMEType: "audio/mpeg"}}, KindDocument, "mp3"},
		{"audio document without name", &transport.Message{Document: &transport.Attachment{FileID: "d", MIMEType: "audio/x-wav"}}, KindDocument, "audio"},
		{"pdf document", &transport.Message{Document: &transport.Attachment{FileID: "d", FileName: "a.pdf", MIMEType: "application/pdf"}}, KindUnsupported, ""},
		{"document without mime", &transport.Message{Document: &transport.Attachment{FileID: "d", FileName: "a.mp3"}}, KindUnsupported, ""},
		{"voice wins over document", &transport.Message{
			Voice:    &transport.Attachment{FileID: "v"},
			Document: &transport.Attachment{FileID: "d", MIMEType: "audio/ogg"},
		}, KindVoice, "ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, att, ext := Classify(tt.msg)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.ext, ext)
			if tt.kind == KindUnsupported {
				assert.Nil(t, att)
			} else {
				assert.NotNil(t, att)
			}
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, "mp3", Ext("clip.mp3"))
	assert.Equal(t, "gz", Ext("archive.tar.gz"))
	assert.Equal(t, "recording", Ext("recording"))
	assert.Equal(t, "audio", Ext(""))
	assert.Equal(t, "audio", Ext("trailing."))
	assert.Equal(t, "etc", Ext("x.mp3/../../etc"))
	assert.Equal(t, "m4a", Ext("voice memo.m4a"))
	assert.Equal(t, "audio", Ext("صدا.صوت"))
}

func TestFetcher_FetchVoice(t *testing.T) {
	dir := t.TempDir()
	fake := transporttest.NewFake()
	fake.Files["file-1"] = []byte("OggS")
	temps := xfs.NewTempSet(dir, nil)

	msg := &transport.Message{ChatID: 1, Voice: &transport.Attachment{FileID: "file-1"}}
	got, err := NewFetcher(fake, 0).Fetch(context.Background(), msg, temps)

	require.NoError(t, err)
	assert.Equal(t, KindVoice, got.Kind)
	assert.Equal(t, dir, filepath.Dir(got.Path))
	assert.True(t, strings.HasSuffix(got.Path, ".ogg"))
	assert.Equal(t, []string{got.Path}, temps.Paths())

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(data))
}

func TestFetcher_Unsupported(t *testing.T) {
	fake := transporttest.NewFake()
	temps := xfs.NewTempSet(t.TempDir(), nil)

	_, err := NewFetcher(fake, 0).Fetch(context.Background(), &transport.Message{Text: "hello"}, temps)

	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Empty(t, temps.Paths())
	assert.Empty(t, fake.Downloads())
}

func TestFetcher_DownloadFailureKeepsPathRegistered(t *testing.T) {
	fake := transporttest.NewFake()
	fake.DownloadErr = errors.New("connection reset")
	temps := xfs.NewTempSet(t.TempDir(), nil)

	msg := &transport.Message{Audio: &transport.Attachment{FileID: "x", FileName: "a.wav"}}
	_, err := NewFetcher(fake, 0).Fetch(context.Background(), msg, temps)

	assert.ErrorIs(t, err, ErrDownload)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, fake.Downloads(), temps.Paths())
}

func TestFetcher_DownloadHasDeadline(t *testing.T) {
	temps := xfs.NewTempSet(t.TempDir(), nil)
	var sawDeadline bool
	d := downloaderFunc(func(ctx context.Context, _, _ string) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	})

	msg := &transport.Message{Voice: &transport.Attachment{FileID: "v"}}
	_, err := NewFetcher(d, 0).Fetch(context.Background(), msg, temps)

	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

type downloaderFunc func(ctx context.Context, fileID, dst string) error

func (f downloaderFunc) Download(ctx context.Context, fileID, dst string) error {
	return f(ctx, fileID, dst)
}
