package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Surihub/handmath/api/internal/history"
	"github.com/Surihub/handmath/api/internal/shell"
)

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      Bot
	Sessions *shell.Manager
	Log      *slog.Logger
}

func NewRouter(bot Bot, sessions *shell.Manager) *Router {
	return &Router{Bot: bot, Sessions: sessions, Log: slog.Default()}
}

// Owner is the session key of a chat.
func Owner(chatID int64) string { return "chat:" + strconv.FormatInt(chatID, 10) }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	app, err := r.Sessions.Get(ctx, Owner(cid))
	if err != nil {
		r.Log.Error("telegram: open session", "chat", cid, "error", err)
		r.send(cid, msgSessionFailed)
		return
	}

	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, app, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, app, *msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptDocument(ctx, app, *msg)
	default:
		r.send(cid, msgSendPhoto)
	}
}

func (r *Router) HandleCommand(ctx context.Context, app *shell.App, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, msgWelcome)
	case "practice":
		app.SwitchMode(shell.ModePractice)
		r.sendProblem(cid, app)
	case "recognize":
		app.SwitchMode(shell.ModeRecognition)
		r.send(cid, msgRecognitionMode)
	case "problem":
		r.sendProblem(cid, app)
	case "new":
		app.NewProblem()
		r.sendProblem(cid, app)
	case "hint":
		r.hint(ctx, cid, app)
	case "history":
		r.send(cid, formatHistory(app.Snapshot().History))
	case "clear_history":
		if err := app.ClearHistory(ctx); err != nil {
			r.SendError(cid, err)
			return
		}
		r.send(cid, msgHistoryCleared)
	case "delete":
		r.deleteEntry(ctx, cid, app, msg.CommandArguments())
	default:
		r.send(cid, msgUnknownCommand)
	}
}

func (r *Router) hint(ctx context.Context, cid int64, app *shell.App) {
	err := app.GetHint(ctx)
	switch {
	case errors.Is(err, shell.ErrNoProblem):
		r.send(cid, msgNoProblem)
	case errors.Is(err, shell.ErrStale):
	case err != nil:
		r.SendError(cid, err)
	default:
		r.send(cid, "💡 힌트\n\n"+app.Snapshot().Hint)
	}
}

func (r *Router) deleteEntry(ctx context.Context, cid int64, app *shell.App, arg string) {
	entries := app.Snapshot().History
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(entries) {
		r.send(cid, fmt.Sprintf("사용법: /delete <번호> (1~%d)", len(entries)))
		return
	}
	if err := app.DeleteEntry(ctx, entries[n-1].ID); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			r.send(cid, msgEntryGone)
			return
		}
		r.SendError(cid, err)
		return
	}
	r.send(cid, fmt.Sprintf("%d번 기록을 삭제했습니다.", n))
}

func (r *Router) sendProblem(cid int64, app *shell.App) {
	s := app.Snapshot()
	if s.Problem == nil {
		r.send(cid, msgNoProblem)
		return
	}
	r.send(cid, "📘 문제\n\n"+s.Problem.Problem+"\n\n"+msgSolveOnPaper)
}

func (r *Router) send(chatID int64, text string) {
	if len(text) > maxMessage {
		text = truncate(text, maxMessage) + "…"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram: send", "chat", chatID, "error", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, "⚠️ "+err.Error())
}
