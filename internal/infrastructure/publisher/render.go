package publisher

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"ContentPipeline/internal/domain"
)

const summaryRunes = 100

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type languageCopy struct {
	readMore   string
	sourceLink string
}

var copies = map[string]languageCopy{
	domain.LanguageKorean:   {readMore: "👉 더 보기", sourceLink: "원문 보기"},
	domain.LanguageEnglish:  {readMore: "👉 Read more", sourceLink: "Read the full article"},
	domain.LanguageJapanese: {readMore: "👉 続きを読む", sourceLink: "記事を読む"},
}

func copyFor(language string) languageCopy {
	if c, ok := copies[language]; ok {
		return c
	}
	return copies[domain.LanguageEnglish]
}

// RenderHTML converts a markdown body to sanitized HTML. Headings, emphasis,
// links and line breaks survive; scripts and unknown attributes do not.
func RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// ContentURL is the canonical site address of an article.
func ContentURL(siteURL string, c domain.Content) string {
	key := c.Slug
	if key == "" {
		key = strconv.FormatInt(c.ID, 10)
	}
	lang := c.Language
	if lang == "" {
		lang = domain.LanguageKorean
	}
	return fmt.Sprintf("%s/%s/content/%s", strings.TrimRight(siteURL, "/"), lang, key)
}

// BlogHTML wraps the rendered body with the thumbnail and a link back to the site.
func BlogHTML(siteURL string, c domain.Content) (string, error) {
	body, err := RenderHTML(c.Body)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if c.Thumbnail != "" {
		fmt.Fprintf(&b, `<p><img src="%s" alt="%s"/></p>`, html.EscapeString(c.Thumbnail), html.EscapeString(c.Title))
		b.WriteString("\n")
	}
	b.WriteString(body)
	fmt.Fprintf(&b, "\n<p><a href=\"%s\">%s</a></p>", html.EscapeString(ContentURL(siteURL, c)), copyFor(c.Language).sourceLink)
	return b.String(), nil
}

// FeedMessage is the short text used by feed-style platforms.
func FeedMessage(siteURL string, c domain.Content) string {
	summary := c.Excerpt
	if summary == "" {
		summary = c.Body
	}
	summary = strings.Join(strings.Fields(summary), " ")
	if runes := []rune(summary); len(runes) > summaryRunes {
		summary = string(runes[:summaryRunes-3]) + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔥 %s\n\n", c.Title)
	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	if tags := hashtags(c); tags != "" {
		b.WriteString(tags)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s: %s", copyFor(c.Language).readMore, ContentURL(siteURL, c))
	return b.String()
}

func hashtags(c domain.Content) string {
	var tags []string
	seen := map[string]struct{}{}
	for _, raw := range []string{c.Category, c.Keyword} {
		tag := strings.Join(strings.Fields(raw), "")
		if tag == "" || tag == domain.CategoryGeneral {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, "#"+tag)
	}
	return strings.Join(tags, " ")
}
