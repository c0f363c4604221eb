package publisher

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// NaverBlog posts articles through the Naver blog open API.
type NaverBlog struct {
	client     *resty.Client
	apiURL     string
	siteURL    string
	categories map[string]int
	oauth      *oauth2.Config
}

var _ ports.Publisher = (*NaverBlog)(nil)

// NewNaverBlog wires the write API and the OAuth client used for refresh and code exchange.
func NewNaverBlog(client *resty.Client, cfg config.NaverBlogConfig, siteURL string) *NaverBlog {
	return &NaverBlog{
		client:     newClient(client),
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		siteURL:    siteURL,
		categories: cfg.Categories,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

func (n *NaverBlog) Platform() domain.Platform { return domain.PlatformNaverBlog }

// flexString accepts both "123" and 123.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

type naverWriteResponse struct {
	Message struct {
		Result struct {
			BlogID flexString `json:"blogId"`
			LogNo  flexString `json:"logNo"`
			URL    string     `json:"url"`
		} `json:"result"`
	} `json:"message"`
}

// Publish writes content as a public post in the category mapped from its language.
func (n *NaverBlog) Publish(ctx context.Context, token domain.Token, content domain.Content) (domain.PostResult, error) {
	body, err := BlogHTML(n.siteURL, content)
	if err != nil {
		return domain.PostResult{}, err
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetFormData(map[string]string{
			"title":      content.Title,
			"contents":   body,
			"categoryNo": strconv.Itoa(n.category(content.Language)),
			"visibility": "PUBLIC",
		}).
		Post(n.apiURL + "/writePost.json")
	if err := checkResponse("naver blog write", resp, err); err != nil {
		return domain.PostResult{}, err
	}

	var payload naverWriteResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return domain.PostResult{}, domain.ParseError("naver blog write response: %v", err)
	}
	result := payload.Message.Result
	if result.LogNo == "" {
		return domain.PostResult{}, domain.ParseError("naver blog write response without logNo")
	}

	url := result.URL
	if url == "" && result.BlogID != "" {
		url = fmt.Sprintf("https://blog.naver.com/%s/%s", result.BlogID, result.LogNo)
	}
	return domain.PostResult{PostID: string(result.LogNo), URL: url}, nil
}

// ValidateToken probes the blog info endpoint.
func (n *NaverBlog) ValidateToken(ctx context.Context, token domain.Token) error {
	if token.Empty() {
		return fmt.Errorf("naver blog: %w: empty access token", domain.ErrUnauthorized)
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		Get(n.apiURL + "/getInfo.json")
	return checkResponse("naver blog token probe", resp, err)
}

// RefreshToken trades the refresh token for a new access token.
func (n *NaverBlog) RefreshToken(ctx context.Context, token domain.Token) (domain.Token, error) {
	if token.RefreshToken == "" {
		return domain.Token{}, domain.ConfigurationError("naver blog refresh token is missing")
	}
	if n.oauth.ClientID == "" || n.oauth.ClientSecret == "" {
		return domain.Token{}, domain.ConfigurationError("naver blog client credentials are missing")
	}

	source := n.oauth.TokenSource(n.oauthContext(ctx), &oauth2.Token{
		RefreshToken: token.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	fresh, err := source.Token()
	if err != nil {
		return domain.Token{}, domain.TransientError("naver blog token refresh", err)
	}
	return fromOAuth(domain.PlatformNaverBlog, fresh), nil
}

// AuthorizationURL is where an operator grants blog access.
func (n *NaverBlog) AuthorizationURL(state string) string {
	return n.oauth.AuthCodeURL(state)
}

// ExchangeCode completes the authorization-code grant.
func (n *NaverBlog) ExchangeCode(ctx context.Context, code string) (domain.Token, error) {
	if strings.TrimSpace(code) == "" {
		return domain.Token{}, domain.ConfigurationError("naver blog authorization code is empty")
	}
	fresh, err := n.oauth.Exchange(n.oauthContext(ctx), code)
	if err != nil {
		return domain.Token{}, domain.TransientError("naver blog code exchange", err)
	}
	return fromOAuth(domain.PlatformNaverBlog, fresh), nil
}

func (n *NaverBlog) category(language string) int {
	if no, ok := n.categories[language]; ok {
		return no
	}
	return 1
}

func (n *NaverBlog) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, n.client.GetClient())
}

func fromOAuth(platform domain.Platform, t *oauth2.Token) domain.Token {
	return domain.Token{
		Platform:     platform,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry.UTC(),
	}
}
