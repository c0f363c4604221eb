package publisher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
)

func sampleContent() domain.Content {
	return domain.Content{
		ID:       7,
		Title:    "오늘의 화제",
		Slug:     "today-topic",
		Body:     "# 제목\n\n본문 **강조**\n<script>alert(1)</script>",
		Excerpt:  "짧은 요약",
		Language: domain.LanguageKorean,
		Category: "게임",
		Keyword:  "신작 게임",
	}
}

func TestRenderHTMLSanitizes(t *testing.T) {
	t.Parallel()

	out, err := RenderHTML("# Title\n\nHello **world**\nnext line\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<strong>world</strong>")
	assert.Contains(t, out, "<br")
	assert.NotContains(t, out, "script")
}

func TestFeedMessage(t *testing.T) {
	t.Parallel()

	c := sampleContent()
	msg := FeedMessage("https://site.example/", c)
	assert.True(t, strings.HasPrefix(msg, "🔥 오늘의 화제\n\n짧은 요약"))
	assert.Contains(t, msg, "#게임 #신작게임")
	assert.True(t, strings.HasSuffix(msg, "👉 더 보기: https://site.example/ko/content/today-topic"))

	c.Language = domain.LanguageJapanese
	c.Excerpt = strings.Repeat("あ", 150)
	c.Slug = ""
	msg = FeedMessage("https://site.example", c)
	assert.Contains(t, msg, strings.Repeat("あ", 97)+"...")
	assert.NotContains(t, msg, strings.Repeat("あ", 98))
	assert.True(t, strings.HasSuffix(msg, "続きを読む: https://site.example/ja/content/7"))

	c.Language = "de"
	assert.Contains(t, FeedMessage("https://site.example", c), "Read more")
}

func TestBlogHTMLAddsThumbnailAndLink(t *testing.T) {
	t.Parallel()

	c := sampleContent()
	c.Thumbnail = "https://img.example/a.png"
	out, err := BlogHTML("https://site.example", c)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<p><img src="https://img.example/a.png"`))
	assert.Contains(t, out, `<a href="https://site.example/ko/content/today-topic">원문 보기</a>`)
}

func naverConfig(url string) config.NaverBlogConfig {
	return config.NaverBlogConfig{
		Enabled:      true,
		APIURL:       url + "/blog",
		AuthURL:      url + "/oauth2.0/authorize",
		TokenURL:     url + "/oauth2.0/token",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://site.example/callback",
		Categories:   map[string]int{"ko": 1, "en": 2, "ja": 3},
	}
}

func TestNaverBlogPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blog/writePost.json", r.URL.Path)
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "오늘의 화제", r.PostForm.Get("title"))
		assert.Equal(t, "3", r.PostForm.Get("categoryNo"))
		assert.Equal(t, "PUBLIC", r.PostForm.Get("visibility"))
		assert.Contains(t, r.PostForm.Get("contents"), "<strong>강조</strong>")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"result":{"blogId":"myblog","logNo":223344}}}`))
	}))
	defer srv.Close()

	blog := NewNaverBlog(nil, naverConfig(srv.URL), "https://site.example")
	c := sampleContent()
	c.Language = domain.LanguageJapanese

	res, err := blog.Publish(context.Background(), domain.Token{AccessToken: "access"}, c)
	require.NoError(t, err)
	assert.Equal(t, "223344", res.PostID)
	assert.Equal(t, "https://blog.naver.com/myblog/223344", res.URL)
}

func TestNaverBlogUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessage":"Authentication failed"}`))
	}))
	defer srv.Close()

	blog := NewNaverBlog(nil, naverConfig(srv.URL), "https://site.example")
	_, err := blog.Publish(context.Background(), domain.Token{AccessToken: "old"}, sampleContent())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, blog.ValidateToken(context.Background(), domain.Token{AccessToken: "old"}), domain.ErrUnauthorized)
}

func TestNaverBlogRefreshAndExchange(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "refresh_token":
			assert.Equal(t, "refresh", r.Form.Get("refresh_token"))
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","expires_in":3600}`))
		case "authorization_code":
			assert.Equal(t, "code-1", r.Form.Get("code"))
			_, _ = w.Write([]byte(`{"access_token":"granted","refresh_token":"r2","token_type":"bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	blog := NewNaverBlog(nil, naverConfig(srv.URL), "https://site.example")

	fresh, err := blog.RefreshToken(context.Background(), domain.Token{AccessToken: "old", RefreshToken: "refresh"})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformNaverBlog, fresh.Platform)
	assert.Equal(t, "fresh", fresh.AccessToken)
	assert.False(t, fresh.Expiry.IsZero())

	granted, err := blog.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "granted", granted.AccessToken)
	assert.Equal(t, "r2", granted.RefreshToken)

	authURL := blog.AuthorizationURL("state-9")
	assert.Contains(t, authURL, "response_type=code")
	assert.Contains(t, authURL, "client_id=client")
	assert.Contains(t, authURL, "state=state-9")

	_, err = blog.RefreshToken(context.Background(), domain.Token{AccessToken: "old"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestFacebookPublishWithPhoto(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		calls = append(calls, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "page-token", r.PostForm.Get("access_token"))
		switch r.URL.Path {
		case "/page/photos":
			assert.Equal(t, "false", r.PostForm.Get("published"))
			assert.Equal(t, "https://img.example/a.png", r.PostForm.Get("url"))
			_, _ = w.Write([]byte(`{"id":"photo-1"}`))
		case "/page/feed":
			assert.JSONEq(t, `{"media_fbid":"photo-1"}`, r.PostForm.Get("attached_media[0]"))
			assert.Contains(t, r.PostForm.Get("message"), "🔥 오늘의 화제")
			_, _ = w.Write([]byte(`{"id":"page_99"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fb := NewFacebook(nil, config.FacebookConfig{GraphURL: srv.URL, PageID: "page"}, "https://site.example")
	c := sampleContent()
	c.Thumbnail = "https://img.example/a.png"

	res, err := fb.Publish(context.Background(), domain.Token{AccessToken: "page-token"}, c)
	require.NoError(t, err)
	assert.Equal(t, "page_99", res.PostID)
	assert.Equal(t, "https://facebook.com/page_99", res.URL)
	assert.Equal(t, []string{"/page/photos", "/page/feed"}, calls)
}

func TestFacebookPublishTextAndVideo(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		calls = append(calls, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/page/feed":
			if attached := r.PostForm.Get("attached_media[0]"); attached != "" {
				assert.JSONEq(t, `{"media_fbid":"video_2"}`, attached)
				assert.Empty(t, r.PostForm.Get("link"))
				_, _ = w.Write([]byte(`{"id":"page_3"}`))
				return
			}
			assert.Equal(t, "https://site.example/ko/content/today-topic", r.PostForm.Get("link"))
			_, _ = w.Write([]byte(`{"id":"page_1"}`))
		case "/page/videos":
			assert.Equal(t, "https://cdn.example/clip.mp4?sig=1", r.PostForm.Get("file_url"))
			assert.Equal(t, "false", r.PostForm.Get("published"))
			_, _ = w.Write([]byte(`{"id":"video_2"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fb := NewFacebook(nil, config.FacebookConfig{GraphURL: srv.URL, PageID: "page"}, "https://site.example")

	res, err := fb.Publish(context.Background(), domain.Token{AccessToken: "t"}, sampleContent())
	require.NoError(t, err)
	assert.Equal(t, "page_1", res.PostID)

	c := sampleContent()
	c.Thumbnail = "https://cdn.example/clip.mp4?sig=1"
	res, err = fb.Publish(context.Background(), domain.Token{AccessToken: "t"}, c)
	require.NoError(t, err)
	assert.Equal(t, "page_3", res.PostID)
	assert.Equal(t, []string{"/page/feed", "/page/videos", "/page/feed"}, calls)
}

func TestFacebookUploadFailureSkipsFeed(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		feedCalls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page/feed":
			mu.Lock()
			feedCalls++
			mu.Unlock()
			_, _ = w.Write([]byte(`{"id":"page_1"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upload failed","code":1}}`))
		}
	}))
	defer srv.Close()

	fb := NewFacebook(nil, config.FacebookConfig{GraphURL: srv.URL, PageID: "page"}, "https://site.example")

	for _, thumb := range []string{"https://cdn.example/clip.mp4", "https://img.example/a.png"} {
		c := sampleContent()
		c.Thumbnail = thumb
		_, err := fb.Publish(context.Background(), domain.Token{AccessToken: "t"}, c)
		require.Error(t, err, thumb)
		assert.ErrorIs(t, err, domain.ErrTransientExternal)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, feedCalls)
}

func TestFacebookExpiredTokenAndRefresh(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			q := r.URL.Query()
			assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
			assert.Equal(t, "expired", q.Get("fb_exchange_token"))
			_, _ = w.Write([]byte(`{"access_token":"long-lived","expires_in":5184000}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Session has expired","code":190}}`))
		}
	}))
	defer srv.Close()

	fb := NewFacebook(nil, config.FacebookConfig{GraphURL: srv.URL, PageID: "page", AppID: "app", AppSecret: "s"}, "https://site.example")

	_, err := fb.Publish(context.Background(), domain.Token{AccessToken: "expired"}, sampleContent())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	fresh, err := fb.RefreshToken(context.Background(), domain.Token{AccessToken: "expired"})
	require.NoError(t, err)
	assert.Equal(t, "long-lived", fresh.AccessToken)
	assert.Equal(t, domain.PlatformFacebook, fresh.Platform)

	noApp := NewFacebook(nil, config.FacebookConfig{GraphURL: srv.URL, PageID: "page"}, "https://site.example")
	_, err = noApp.RefreshToken(context.Background(), domain.Token{AccessToken: "expired"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestTelegramPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botbot-token/sendMessage":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "@news", r.PostForm.Get("chat_id"))
			assert.Contains(t, r.PostForm.Get("text"), "오늘의 화제")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"chat":{"username":"news"}}}`))
		case "/botbot-token/getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
		}
	}))
	defer srv.Close()

	tg := NewTelegram(nil, config.TelegramConfig{APIURL: srv.URL, ChatID: "@news"}, "https://site.example")
	token := domain.Token{AccessToken: "bot-token"}

	res, err := tg.Publish(context.Background(), token, sampleContent())
	require.NoError(t, err)
	assert.Equal(t, "42", res.PostID)
	assert.Equal(t, "https://t.me/news/42", res.URL)
	require.NoError(t, tg.ValidateToken(context.Background(), token))

	err = tg.ValidateToken(context.Background(), domain.Token{AccessToken: "wrong"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = tg.RefreshToken(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
