package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/tonikukoc07/yt-video-alerts/internal/notify"
	logx "github.com/tonikukoc07/yt-video-alerts/pkg/logx"
)

// Adapter is the Telegram implementation of notify.Sink.
//
// It never polls for updates; this bot only pushes. All Bot API calls share
// one rate limiter because Telegram throttles per bot+chat, and a cycle can
// emit several calls back to back (post, unpin, pin).
type Adapter struct {
	bot      *tele.Bot
	chatID   int64
	threadID int
	limiter  *rate.Limiter
	log      logx.Logger
}

type Config struct {
	Token      string
	ChatID     int64
	ThreadID   int
	RatePerSec int
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, err
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Adapter{
		bot:      b,
		chatID:   cfg.ChatID,
		threadID: cfg.ThreadID,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
		log:      log,
	}, nil
}

func (a *Adapter) Post(ctx context.Context, msg notify.Message) (notify.Ref, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return notify.Ref{}, err
	}

	chat := &tele.Chat{ID: a.chatID}
	opts := &tele.SendOptions{
		DisableWebPagePreview: msg.DisablePreview,
		ThreadID:              a.threadID,
	}

	var sent *tele.Message
	var err error
	if msg.Thumbnail != "" {
		photo := &tele.Photo{File: tele.FromURL(msg.Thumbnail), Caption: msg.Text}
		sent, err = a.bot.Send(chat, photo, opts)
		if err != nil {
			// Telegram rejects some thumbnail URLs (size, redirects); the
			// notification matters more than the picture.
			a.log.Debug("photo send failed; falling back to text", logx.Err(err))
			sent, err = a.bot.Send(chat, msg.Text, opts)
		}
	} else {
		sent, err = a.bot.Send(chat, msg.Text, opts)
	}
	if err != nil {
		return notify.Ref{}, err
	}
	return notify.Ref{ChatID: sent.Chat.ID, MessageID: sent.ID}, nil
}

func (a *Adapter) Edit(ctx context.Context, ref notify.Ref, msg notify.Message) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	ed := editable(ref)
	opts := &tele.SendOptions{DisableWebPagePreview: msg.DisablePreview}

	// Photo posts carry the text as caption; plain posts as text. The stored
	// ref does not remember which, so try the caption surface first and fall
	// back to text once.
	_, err := a.bot.EditCaption(ed, msg.Text, opts)
	if err != nil {
		_, err = a.bot.Edit(ed, msg.Text, opts)
	}
	if err == nil {
		return nil
	}
	if isCannotEdit(err) {
		return notify.ErrCannotEdit
	}
	return err
}

func (a *Adapter) Pin(ctx context.Context, ref notify.Ref) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return a.bot.Pin(editable(ref), tele.Silent)
}

func (a *Adapter) Unpin(ctx context.Context, ref notify.Ref) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return a.bot.Unpin(&tele.Chat{ID: ref.ChatID}, ref.MessageID)
}

func (a *Adapter) Delete(ctx context.Context, ref notify.Ref) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return a.bot.Delete(editable(ref))
}

func editable(ref notify.Ref) tele.Editable {
	return &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
}

// isCannotEdit matches the Bot API descriptions for in-place-edit refusals.
// String matching is deliberate: the API error set is not stable enough to
// enumerate, and anything else should surface as a real error.
func isCannotEdit(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "message can't be edited") ||
		strings.Contains(s, "there is no caption in the message") ||
		strings.Contains(s, "there is no text in the message")
}
