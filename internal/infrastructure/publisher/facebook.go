package publisher

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// Graph error code for an expired or revoked access token.
const graphCodeInvalidToken = 190

// Facebook posts to a page feed through the Graph API.
type Facebook struct {
	client    *resty.Client
	graphURL  string
	pageID    string
	appID     string
	appSecret string
	siteURL   string
}

var _ ports.Publisher = (*Facebook)(nil)

func NewFacebook(client *resty.Client, cfg config.FacebookConfig, siteURL string) *Facebook {
	return &Facebook{
		client:    newClient(client),
		graphURL:  strings.TrimRight(cfg.GraphURL, "/"),
		pageID:    cfg.PageID,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		siteURL:   siteURL,
	}
}

func (f *Facebook) Platform() domain.Platform { return domain.PlatformFacebook }

type graphResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
	Error  *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type graphTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Publish posts the feed message. A thumbnail (image or video) is uploaded
// unpublished first and the returned media id is attached to the feed post.
// A failed upload is returned without attempting the feed post.
func (f *Facebook) Publish(ctx context.Context, token domain.Token, content domain.Content) (domain.PostResult, error) {
	message := FeedMessage(f.siteURL, content)
	link := ContentURL(f.siteURL, content)

	if content.Thumbnail != "" {
		op, endpoint, form := "facebook photo upload", "/"+f.pageID+"/photos", map[string]string{
			"url":     content.Thumbnail,
			"caption": message,
		}
		if isVideo(content.Thumbnail) {
			op, endpoint, form = "facebook video upload", "/"+f.pageID+"/videos", map[string]string{
				"file_url":    content.Thumbnail,
				"title":       content.Title,
				"description": message,
			}
		}
		form["published"] = "false"
		form["access_token"] = token.AccessToken

		mediaID, err := f.call(ctx, op, endpoint, form)
		if err != nil {
			return domain.PostResult{}, err
		}
		attached, _ := json.Marshal(map[string]string{"media_fbid": mediaID})
		id, err := f.call(ctx, "facebook feed post", "/"+f.pageID+"/feed", map[string]string{
			"message":           message,
			"attached_media[0]": string(attached),
			"access_token":      token.AccessToken,
		})
		if err != nil {
			return domain.PostResult{}, err
		}
		return postResult(id), nil
	}

	id, err := f.call(ctx, "facebook feed post", "/"+f.pageID+"/feed", map[string]string{
		"message":      message,
		"link":         link,
		"access_token": token.AccessToken,
	})
	if err != nil {
		return domain.PostResult{}, err
	}
	return postResult(id), nil
}

// ValidateToken asks the Graph API who owns the token.
func (f *Facebook) ValidateToken(ctx context.Context, token domain.Token) error {
	if token.Empty() {
		return fmt.Errorf("facebook: %w: empty access token", domain.ErrUnauthorized)
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"fields": "id", "access_token": token.AccessToken}).
		Get(f.graphURL + "/me")
	return f.graphError("facebook token probe", resp, err)
}

// RefreshToken exchanges the current token for a long-lived one.
func (f *Facebook) RefreshToken(ctx context.Context, token domain.Token) (domain.Token, error) {
	if f.appID == "" || f.appSecret == "" {
		return domain.Token{}, domain.ConfigurationError("facebook app credentials are missing")
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         f.appID,
			"client_secret":     f.appSecret,
			"fb_exchange_token": token.AccessToken,
		}).
		Get(f.graphURL + "/oauth/access_token")
	if err := f.graphError("facebook token exchange", resp, err); err != nil {
		return domain.Token{}, err
	}

	var payload graphTokenResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return domain.Token{}, domain.ParseError("facebook token response: %v", err)
	}
	if payload.AccessToken == "" {
		return domain.Token{}, domain.ParseError("facebook token response without access_token")
	}
	fresh := domain.Token{Platform: domain.PlatformFacebook, AccessToken: payload.AccessToken}
	if payload.ExpiresIn > 0 {
		fresh.Expiry = time.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return fresh, nil
}

func (f *Facebook) call(ctx context.Context, op, endpoint string, form map[string]string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(f.graphURL + endpoint)
	if err := f.graphError(op, resp, err); err != nil {
		return "", err
	}

	var payload graphResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", domain.ParseError("%s response: %v", op, err)
	}
	id := payload.PostID
	if id == "" {
		id = payload.ID
	}
	if id == "" {
		return "", domain.ParseError("%s response without id", op)
	}
	return id, nil
}

// graphError treats Graph code 190 as a credential failure regardless of HTTP status.
func (f *Facebook) graphError(op string, resp *resty.Response, err error) error {
	if err == nil && resp != nil && !resp.IsSuccess() {
		var payload graphResponse
		if json.Unmarshal(resp.Body(), &payload) == nil && payload.Error != nil && payload.Error.Code == graphCodeInvalidToken {
			return fmt.Errorf("%s: %w: %s", op, domain.ErrUnauthorized, payload.Error.Message)
		}
	}
	return checkResponse(op, resp, err)
}

func postResult(id string) domain.PostResult {
	return domain.PostResult{PostID: id, URL: "https://facebook.com/" + id}
}

func isVideo(mediaURL string) bool {
	ext := strings.ToLower(path.Ext(strings.SplitN(mediaURL, "?", 2)[0]))
	switch ext {
	case ".mp4", ".mov", ".m4v", ".webm":
		return true
	}
	return false
}
