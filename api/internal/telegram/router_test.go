package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surihub/handmath/api/internal/history"
	"github.com/Surihub/handmath/api/internal/shell"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []string
	fileURL string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) {
	if b.fileURL == "" {
		return "", errors.New("no file")
	}
	return b.fileURL, nil
}

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return ""
	}
	return b.sent[len(b.sent)-1]
}

type fakeTutor struct {
	gotImage string
}

func (f *fakeTutor) EvaluateSolution(_ context.Context, _, img string) (string, error) {
	f.gotImage = img
	return "정답입니다!", nil
}

func (f *fakeTutor) GetHint(context.Context, string) (string, error) {
	return "두 근의 합과 곱을 먼저 구해 보세요.", nil
}

func (f *fakeTutor) RecognizeFormula(_ context.Context, img string) (string, error) {
	f.gotImage = img
	return "$$x^2$$", nil
}

func newRouter(t *testing.T) (*Router, *fakeBot, *fakeTutor) {
	t.Helper()
	bot := &fakeBot{}
	tut := &fakeTutor{}
	return NewRouter(bot, shell.NewManager(tut, history.NewMemorySlot())), bot, tut
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func photo(chatID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 5; x < 35; x++ {
		img.Set(x, 15, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommands(t *testing.T) {
	r, bot, _ := newRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(1, "/start"))
	assert.Contains(t, bot.last(), "/practice")

	r.HandleUpdate(ctx, command(1, "/problem"))
	assert.Contains(t, bot.last(), "x^2 - 5x + 6 = 0")

	r.HandleUpdate(ctx, command(1, "/hint"))
	assert.Contains(t, bot.last(), "두 근의 합과 곱")

	r.HandleUpdate(ctx, command(1, "/recognize"))
	assert.Equal(t, msgRecognitionMode, bot.last())
	r.HandleUpdate(ctx, command(1, "/hint"))
	assert.Equal(t, msgNoProblem, bot.last())

	r.HandleUpdate(ctx, command(1, "/bogus"))
	assert.Equal(t, msgUnknownCommand, bot.last())

	r.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hello"}})
	assert.Equal(t, msgSendPhoto, bot.last())
}

func TestPhoto_SubmitsAndRecordsHistory(t *testing.T) {
	r, bot, tut := newRouter(t)
	bot.fileURL = pngServer(t).URL
	ctx := context.Background()

	r.HandleUpdate(ctx, photo(7))
	assert.Contains(t, bot.last(), "정답입니다!")
	assert.NotEmpty(t, tut.gotImage)

	r.HandleUpdate(ctx, command(7, "/history"))
	assert.Contains(t, bot.last(), "1. ")
	assert.Contains(t, bot.last(), "정답입니다!")

	app, err := r.Sessions.Get(ctx, Owner(7))
	require.NoError(t, err)
	require.Len(t, app.Snapshot().History, 1)

	// other chats are isolated
	other, err := r.Sessions.Get(ctx, Owner(8))
	require.NoError(t, err)
	assert.Empty(t, other.Snapshot().History)

	r.HandleUpdate(ctx, command(7, "/delete 3"))
	assert.Contains(t, bot.last(), "사용법")
	r.HandleUpdate(ctx, command(7, "/delete 1"))
	assert.Contains(t, bot.last(), "1번 기록을 삭제했습니다.")
	assert.Empty(t, app.Snapshot().History)
}

func TestPhoto_RecognitionMode(t *testing.T) {
	r, bot, _ := newRouter(t)
	bot.fileURL = pngServer(t).URL
	ctx := context.Background()

	r.HandleUpdate(ctx, command(3, "/recognize"))
	r.HandleUpdate(ctx, photo(3))
	assert.Contains(t, bot.last(), "$$x^2$$")

	r.HandleUpdate(ctx, command(3, "/history"))
	assert.Equal(t, msgHistoryEmpty, bot.last())
}

func TestPhoto_Undecodable(t *testing.T) {
	r, bot, _ := newRouter(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()
	bot.fileURL = srv.URL

	r.HandleUpdate(context.Background(), photo(5))
	assert.Equal(t, shell.MsgUndecodable, bot.last())
}

func TestPhoto_DownloadFails(t *testing.T) {
	r, bot, _ := newRouter(t)
	r.HandleUpdate(context.Background(), photo(5))
	assert.Equal(t, msgPhotoFailed, bot.last())
}

func TestClearHistoryCommand(t *testing.T) {
	r, bot, _ := newRouter(t)
	bot.fileURL = pngServer(t).URL
	ctx := context.Background()
	r.HandleUpdate(ctx, photo(9))
	r.HandleUpdate(ctx, photo(9))
	r.HandleUpdate(ctx, command(9, "/clear_history"))
	assert.Equal(t, msgHistoryCleared, bot.last())
	r.HandleUpdate(ctx, command(9, "/history"))
	assert.Equal(t, msgHistoryEmpty, bot.last())
}

func TestTruncate(t *testing.T) {
	s := strings.Repeat("가", 10) // 3 bytes each
	assert.Equal(t, strings.Repeat("가", 3), truncate(s, 10))
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "가나…", excerpt("가나다", 2))
}
