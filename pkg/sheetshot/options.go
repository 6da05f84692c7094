package sheetshot

import (
	"context"
	"net/http"

	"github.com/bft-labs/sheetshot/internal/app"
	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
	"github.com/bft-labs/sheetshot/pkg/log"
	"github.com/bft-labs/sheetshot/pkg/sender"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// Converter turns a single-page document into an image.
type Converter = ports.Converter

// Staging stores intermediate files of a run.
type Staging = ports.Staging

// Album is the outbound album of one run.
type Album = domain.Album

// AlbumSender uploads a whole album in one call.
type AlbumSender = ports.AlbumSender

// ArtifactSink receives the rendered images of a dry run.
type ArtifactSink = app.ArtifactSink

// Option configures optional behavior of Sheetshot.
type Option func(*options)

// options holds the optional configuration for a Sheetshot instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	converter    ports.Converter
	staging      ports.Staging
	albumSender  ports.AlbumSender
	artifactSink app.ArtifactSink
	sweep        *SweepConfig
	refresh      RefreshFunc
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets the HTTP client used for export and delivery calls.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for sheetshot events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Start is called.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// RefreshFunc rebuilds the configuration before a scheduled run from the
// one currently in use.
type RefreshFunc func(ctx context.Context, current Config) (Config, error)

// WithRefresh calls fn before every scheduled run and uses its result for
// that run and the ones after it. Use it to follow a sheet that grows
// between runs. A failing fn fails that run only; the previous
// configuration is kept.
func WithRefresh(fn RefreshFunc) Option {
	return func(o *options) {
		o.refresh = fn
	}
}

// WithConverter replaces the converter selected by Config.Converter.
func WithConverter(c Converter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// WithStaging replaces the bucket opened from Config.StagingURL.
// The caller keeps ownership; Close does not close it.
func WithStaging(s Staging) Option {
	return func(o *options) {
		o.staging = s
	}
}

// WithAlbumSender replaces the Telegram sender.
func WithAlbumSender(s AlbumSender) Option {
	return func(o *options) {
		o.albumSender = s
	}
}

// WithOutput replaces the dry-run output directory with sink.
func WithOutput(sink ArtifactSink) Option {
	return func(o *options) {
		o.artifactSink = sink
	}
}

// telegramAlbumSender adapts pkg/sender to the album port.
type telegramAlbumSender struct {
	tg *sender.TelegramSender
}

func (s telegramAlbumSender) SendAlbum(ctx context.Context, album domain.Album) error {
	photos := make([]sender.Photo, len(album.Items))
	for i, item := range album.Items {
		photos[i] = sender.Photo{Data: item.Image, Name: item.Name, Caption: item.Caption}
	}
	return s.tg.SendPhotos(ctx, album.ChatID, photos)
}
