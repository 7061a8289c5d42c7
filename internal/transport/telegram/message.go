package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ekisa-team/voicescribe/internal/transport"
)

// toMessage converts a Bot API message. Messages without a chat or without a
// voice, audio or document attachment are dropped.
func toMessage(m *tgbotapi.Message) *transport.Message {
	if m == nil || m.Chat == nil {
		return nil
	}
	if m.Voice == nil && m.Audio == nil && m.Document == nil {
		return nil
	}

	msg := &transport.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
	}

	if m.From != nil {
		msg.SenderID = m.From.ID
		msg.Username = m.From.UserName
	}

	if v := m.Voice; v != nil {
		msg.Voice = &transport.Attachment{
			FileID:   v.FileID,
			MIMEType: v.MimeType,
			FileSize: int64(v.FileSize),
		}
	}

	if a := m.Audio; a != nil {
		msg.Audio = &transport.Attachment{
			FileID:   a.FileID,
			FileName: a.FileName,
			MIMEType: a.MimeType,
			FileSize: int64(a.FileSize),
		}
	}

	if d := m.Document; d != nil {
		msg.Document = &transport.Attachment{
			FileID:   d.FileID,
			FileName: d.FileName,
			MIMEType: d.MimeType,
			FileSize: int64(d.FileSize),
		}
	}

	return msg
}
