package twitch

import (
	"Xtion/internal/app/runner"
	"Xtion/internal/service/keys"
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username   string
	OAuth      string // может быть с/без префикса oauth:
	Channel    string // без #, регистр не важен
	BufferSize int
}

// Submitter принимает события для движка.
type Submitter interface {
	Submit(ev runner.Event) bool
}

// Run запускает клиент Twitch IRC и «печатает» отфильтрованные сообщения чата в движок.
// Базовые реконнекты обеспечиваются клиентом; функция завершается по отмене ctx.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, sub Submitter) error {
	if sub == nil {
		return nil
	}
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if username == "" || token == "" || channel == "" {
		logger.Warnw("Twitch chat not configured: missing env", "username", username != "", "token", token != "", "channel", channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	f := newFilter()
	t := newTypist(cfg.BufferSize, sub)

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel)
		client.Join(channel)
	})

	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		text, ok := f.accept(msg.User.Name, msg.Message, time.Now())
		if !ok {
			return
		}
		if n := t.typeText(text); n > 0 {
			logger.Debugw("Chat message typed", "user", msg.User.Name, "dropped", n)
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Canceled
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

const spamWindow = 5 * time.Second

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// filter вырезает URL и дропает одинаковые сообщения пользователя в течение окна.
type filter struct {
	mu         sync.Mutex
	lastByUser map[string]lastMsg
}

type lastMsg struct {
	text string
	at   time.Time
}

func newFilter() *filter { return &filter{lastByUser: map[string]lastMsg{}} }

func (f *filter) accept(user, text string, now time.Time) (string, bool) {
	user = strings.TrimSpace(user)
	text = strings.TrimSpace(urlRe.ReplaceAllString(strings.TrimSpace(text), ""))
	if text == "" || user == "" {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if lm, ok := f.lastByUser[user]; ok && lm.text == text && now.Sub(lm.at) <= spamWindow {
		return "", false
	}
	f.lastByUser[user] = lastMsg{text: text, at: now}
	return text, true
}

// typist набирает сообщение по символу, как с клавиатуры.
type typist struct {
	mu  sync.Mutex
	buf *keys.Buffer
	sub Submitter
}

func newTypist(size int, sub Submitter) *typist {
	return &typist{buf: keys.NewBuffer(size), sub: sub}
}

// typeText отправляет состояние буфера после каждого символа и возвращает число отброшенных событий.
// Сообщения разделяются пробелом, чтобы слова соседних сообщений не склеивались.
func (t *typist) typeText(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for _, r := range text + " " {
		if !t.sub.Submit(runner.BufferUpdated{Text: t.buf.Push(r)}) {
			dropped++
		}
	}
	return dropped
}
