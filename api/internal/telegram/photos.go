package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Surihub/handmath/api/internal/shell"
)

const maxPhotoBytes = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, app *shell.App, msg tgbotapi.Message) {
	ph := msg.Photo[len(msg.Photo)-1]
	r.processImage(ctx, app, msg.Chat.ID, ph.FileID)
}

func (r *Router) acceptDocument(ctx context.Context, app *shell.App, msg tgbotapi.Message) {
	r.processImage(ctx, app, msg.Chat.ID, msg.Document.FileID)
}

// processImage puts the photo on the chat's surface and runs the mode's action.
func (r *Router) processImage(ctx context.Context, app *shell.App, cid int64, fileID string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.Log.Warn("telegram: file url", "chat", cid, "error", err)
		r.send(cid, msgPhotoFailed)
		return
	}
	raw, err := download(ctx, url)
	if err != nil {
		r.Log.Warn("telegram: download", "chat", cid, "error", err)
		r.send(cid, msgPhotoFailed)
		return
	}
	img, err := decodeImage(raw)
	if err != nil {
		r.Log.Warn("telegram: decode", "chat", cid, "bytes", len(raw), "error", err)
		r.send(cid, shell.MsgUndecodable)
		return
	}

	app.ClearCanvas()
	app.Surface().Paste(img)

	if app.Snapshot().Mode == shell.ModeRecognition {
		r.recognize(ctx, cid, app)
		return
	}
	r.submit(ctx, cid, app)
}

func (r *Router) submit(ctx context.Context, cid int64, app *shell.App) {
	err := app.SubmitSolution(ctx)
	switch {
	case errors.Is(err, shell.ErrNoProblem):
		r.send(cid, msgNoProblem)
	case errors.Is(err, shell.ErrStale):
	case err != nil:
		r.SendError(cid, err)
	default:
		r.send(cid, "📝 피드백\n\n"+app.Snapshot().Feedback)
	}
}

func (r *Router) recognize(ctx context.Context, cid int64, app *shell.App) {
	err := app.Recognize(ctx)
	switch {
	case errors.Is(err, shell.ErrStale):
	case err != nil:
		r.SendError(cid, err)
	default:
		r.send(cid, "🔎 인식 결과\n\n"+app.Snapshot().Recognized)
	}
}

func decodeImage(b []byte) (image.Image, error) {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return jpeg.Decode(bytes.NewReader(b))
	}
	if len(b) >= 8 && bytes.Equal(b[:8], []byte("\x89PNG\r\n\x1a\n")) {
		return png.Decode(bytes.NewReader(b))
	}
	return nil, errors.New("unsupported image format")
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
