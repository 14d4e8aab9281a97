package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full ytalerts configuration.
//
// It can come from a YAML or JSON file, from environment variables, or both
// (environment wins for the secrets; see ApplyEnv). All durations are Go
// duration strings (e.g. "500ms", "10s", "2m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	YouTube  YouTubeConfig  `json:"youtube"`
	State    StateConfig    `json:"state"`
	Logging  LoggingConfig  `json:"logging"`

	// Poll is only used in daemon mode (-daemon); one-shot runs ignore it.
	Poll PollConfig `json:"poll,omitempty"`

	Notify NotifyConfig `json:"notify,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"` // forum topic thread (0 if none)

	// RatePerSec caps outgoing Bot API calls. Default 1 (Telegram is strict
	// about per-chat rates and a cycle sends at most a handful of messages).
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type YouTubeConfig struct {
	ChannelID string `json:"channel_id"`

	// FeedURL overrides the default uploads feed URL
	// (https://www.youtube.com/feeds/videos.xml?channel_id=<id>).
	FeedURL string `json:"feed_url,omitempty"`

	// WindowLimit bounds how many recent entries a cycle considers.
	// The uploads feed itself carries at most 15. Default 15.
	WindowLimit int `json:"window_limit,omitempty"`

	FetchTimeout string `json:"fetch_timeout,omitempty"` // feed fetch, default "15s"
	ProbeTimeout string `json:"probe_timeout,omitempty"` // per watch-page probe, default "8s"

	// ProbeWorkers bounds concurrent live-status probes. Default 3.
	ProbeWorkers int `json:"probe_workers,omitempty"`
}

// StateConfig controls the persistence layer.
//
// Driver values:
//   - "file" (default): one human-diffable JSON document, written atomically
//   - "sqlite": SQLite database file (optional build tag)
type StateConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"` // default "./ytalerts.state.json"
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"` // default true
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// PollConfig configures the daemon loop.
//
// Schedule accepts the same forms the rest of this repo's tooling uses:
// a cron expression ("*/5 * * * *", "@hourly"), a Go duration ("2m"), or a
// prefixed form ("cron:...", "interval:90s"). Default "2m".
type PollConfig struct {
	Schedule string `json:"schedule,omitempty"`
}

type NotifyConfig struct {
	// Templates take the item title and link as {{title}} / {{link}}
	// placeholders. Defaults match the historical bot texts.
	VideoTemplate string `json:"video_template,omitempty"`
	LiveTemplate  string `json:"live_template,omitempty"`

	DisablePreview bool `json:"disable_preview,omitempty"`

	// AttachThumbnail sends the item thumbnail as a photo with the text as
	// caption. Default true (captions are what makes live→video edits cheap).
	AttachThumbnail *bool `json:"attach_thumbnail,omitempty"`
}

// ErrMissingRequired marks the one error class that must abort a cycle:
// without identity and destination no decision can be made.
var ErrMissingRequired = errors.New("missing required configuration")

// Validate checks the required identity/destination fields.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "telegram.token")
	}
	if c.Telegram.ChatID == 0 {
		missing = append(missing, "telegram.chat_id")
	}
	if strings.TrimSpace(c.YouTube.ChannelID) == "" && strings.TrimSpace(c.YouTube.FeedURL) == "" {
		missing = append(missing, "youtube.channel_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// FeedURL returns the effective uploads feed URL.
func (c *YouTubeConfig) EffectiveFeedURL() string {
	if strings.TrimSpace(c.FeedURL) != "" {
		return c.FeedURL
	}
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + c.ChannelID
}
