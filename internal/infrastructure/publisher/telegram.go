package publisher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// Telegram sends article announcements to a chat via the bot API.
type Telegram struct {
	client  *resty.Client
	apiURL  string
	chatID  string
	channel string
	siteURL string
}

var _ ports.Publisher = (*Telegram)(nil)

// NewTelegram registers the chat identifier. The bot token travels as the platform token.
func NewTelegram(client *resty.Client, cfg config.TelegramConfig, siteURL string) *Telegram {
	return &Telegram{
		client:  newClient(client),
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		chatID:  cfg.ChatID,
		channel: strings.TrimPrefix(cfg.ChannelName, "@"),
		siteURL: siteURL,
	}
}

func (t *Telegram) Platform() domain.Platform { return domain.PlatformTelegram }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			Username string `json:"username"`
		} `json:"chat"`
	} `json:"result"`
}

// Publish posts the feed message with link preview enabled.
func (t *Telegram) Publish(ctx context.Context, token domain.Token, content domain.Content) (domain.PostResult, error) {
	if token.Empty() || t.chatID == "" {
		return domain.PostResult{}, domain.ConfigurationError("telegram publisher misconfigured")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":                  t.chatID,
			"text":                     FeedMessage(t.siteURL, content),
			"disable_web_page_preview": "false",
		}).
		Post(t.endpoint(token, "sendMessage"))
	if err := checkResponse("telegram sendMessage", resp, err); err != nil {
		return domain.PostResult{}, err
	}

	var payload telegramResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return domain.PostResult{}, domain.ParseError("telegram response: %v", err)
	}
	if !payload.OK || payload.Result.MessageID == 0 {
		return domain.PostResult{}, domain.ParseError("telegram response not ok: %s", payload.Description)
	}

	id := strconv.FormatInt(payload.Result.MessageID, 10)
	channel := t.channel
	if channel == "" {
		channel = payload.Result.Chat.Username
	}
	result := domain.PostResult{PostID: id}
	if channel != "" {
		result.URL = fmt.Sprintf("https://t.me/%s/%s", channel, id)
	}
	return result, nil
}

// ValidateToken calls getMe.
func (t *Telegram) ValidateToken(ctx context.Context, token domain.Token) error {
	if token.Empty() {
		return fmt.Errorf("telegram: %w: empty bot token", domain.ErrUnauthorized)
	}
	resp, err := t.client.R().SetContext(ctx).Get(t.endpoint(token, "getMe"))
	return checkResponse("telegram getMe", resp, err)
}

// RefreshToken is unsupported: bot tokens are issued by BotFather only.
func (t *Telegram) RefreshToken(context.Context, domain.Token) (domain.Token, error) {
	return domain.Token{}, domain.ConfigurationError("telegram bot tokens cannot be refreshed")
}

func (t *Telegram) endpoint(token domain.Token, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiURL, token.AccessToken, method)
}
