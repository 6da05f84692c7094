package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	neturl "net/url"
	"strings"
)

// DefaultAPIURL is the Telegram Bot API base URL.
const DefaultAPIURL = "https://api.telegram.org"

// MaxAlbumSize is the largest media group Telegram accepts.
const MaxAlbumSize = 10

// ErrEmptyAlbum is returned when there is nothing to send.
var ErrEmptyAlbum = errors.New("sender: no photos to send")

// Photo is one image of an album.
type Photo struct {
	Data    []byte
	Name    string
	Caption string
}

// Options configures a TelegramSender.
type Options struct {
	// BotToken authenticates the bot.
	BotToken string

	// APIURL overrides DefaultAPIURL, for tests and local Bot API servers.
	APIURL string

	// DisableNotification delivers the album silently.
	DisableNotification bool
}

// APIError is an unsuccessful Bot API answer.
type APIError struct {
	StatusCode  int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram: %d %s (retry after %ds)", e.StatusCode, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram: %d %s", e.StatusCode, e.Description)
}

// TelegramSender uploads albums through the Bot API.
type TelegramSender struct {
	client HTTPClient
	opts   Options
}

// NewTelegramSender creates a sender.
func NewTelegramSender(client HTTPClient, opts Options) *TelegramSender {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	return &TelegramSender{client: client, opts: opts}
}

type inputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendPhotos uploads photos to chatID in a single request.
func (s *TelegramSender) SendPhotos(ctx context.Context, chatID string, photos []Photo) error {
	switch {
	case len(photos) == 0:
		return ErrEmptyAlbum
	case len(photos) > MaxAlbumSize:
		return fmt.Errorf("sender: album of %d photos exceeds %d", len(photos), MaxAlbumSize)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	if s.opts.DisableNotification {
		if err := writer.WriteField("disable_notification", "true"); err != nil {
			return fmt.Errorf("write disable_notification: %w", err)
		}
	}

	method := "sendMediaGroup"
	if len(photos) == 1 {
		method = "sendPhoto"
		if photos[0].Caption != "" {
			if err := writer.WriteField("caption", photos[0].Caption); err != nil {
				return fmt.Errorf("write caption: %w", err)
			}
		}
		if err := writePhoto(writer, "photo", photos[0]); err != nil {
			return err
		}
	} else {
		media := make([]inputMedia, len(photos))
		for i, p := range photos {
			media[i] = inputMedia{Type: "photo", Media: "attach://" + attachName(i), Caption: p.Caption}
		}
		mediaJSON, err := json.Marshal(media)
		if err != nil {
			return fmt.Errorf("marshal media: %w", err)
		}
		if err := writer.WriteField("media", string(mediaJSON)); err != nil {
			return fmt.Errorf("write media: %w", err)
		}
		for i, p := range photos {
			if err := writePhoto(writer, attachName(i), p); err != nil {
				return err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", s.opts.APIURL, s.opts.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of the error.
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var parsed apiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode/100 != 2 || !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Description: desc, RetryAfter: parsed.Parameters.RetryAfter}
	}
	return nil
}

func writePhoto(w *multipart.Writer, field string, p Photo) error {
	name := p.Name
	if name == "" {
		name = field + ".png"
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("create %s field: %w", field, err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}

func attachName(i int) string {
	return fmt.Sprintf("photo%d", i)
}
