package usecase

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"ContentPipeline/internal/domain"
)

// generated is the parsed shape of a provider answer.
type generated struct {
	Title   string
	Excerpt string
	Body    string
}

var labelLine = regexp.MustCompile(`(?i)^\s*(?:[#*]+\s*)?(title|제목|タイトル|excerpt|summary|요약|要約|body|content|본문|本文)\s*(?:\*\*)?\s*[:：]\s*(.*)$`)

type labelKind int

const (
	labelNone labelKind = iota
	labelTitle
	labelExcerpt
	labelBody
)

func classifyLabel(name string) labelKind {
	switch strings.ToLower(name) {
	case "title", "제목", "タイトル":
		return labelTitle
	case "excerpt", "summary", "요약", "要約":
		return labelExcerpt
	case "body", "content", "본문", "本文":
		return labelBody
	}
	return labelNone
}

// parseGenerated reads a provider answer as JSON, as a labeled block, or as
// prose whose first line is the title, in that order.
func parseGenerated(raw string) (generated, error) {
	text := stripFences(raw)
	if text == "" {
		return generated{}, domain.ParseError("provider returned no text")
	}

	g, ok := parseJSON(text)
	if !ok {
		g, ok = parseLabeled(text)
	}
	if !ok {
		g = parseProse(text)
	}

	g.Title = cleanTitle(g.Title)
	g.Excerpt = strings.TrimSpace(g.Excerpt)
	g.Body = strings.TrimSpace(g.Body)
	if g.Title == "" {
		return generated{}, domain.ParseError("provider answer has no title")
	}
	if g.Body == "" {
		return generated{}, domain.ParseError("provider answer has no body")
	}
	return g, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func parseJSON(text string) (generated, bool) {
	if !strings.HasPrefix(text, "{") {
		return generated{}, false
	}
	var payload struct {
		Title   string `json:"title"`
		Excerpt string `json:"excerpt"`
		Body    string `json:"body"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return generated{}, false
	}
	body := payload.Body
	if body == "" {
		body = payload.Content
	}
	if strings.TrimSpace(payload.Title) == "" {
		return generated{}, false
	}
	return generated{Title: payload.Title, Excerpt: payload.Excerpt, Body: body}, true
}

func parseLabeled(text string) (generated, bool) {
	var (
		g        generated
		current  = labelNone
		titled   bool
		body     []string
		excerpts []string
	)
	for _, line := range strings.Split(text, "\n") {
		if m := labelLine.FindStringSubmatch(line); m != nil && current != labelBody {
			current = classifyLabel(m[1])
			rest := strings.TrimSpace(m[2])
			switch current {
			case labelTitle:
				g.Title, titled = rest, true
			case labelExcerpt:
				if rest != "" {
					excerpts = append(excerpts, rest)
				}
			case labelBody:
				if rest != "" {
					body = append(body, rest)
				}
			}
			continue
		}
		switch current {
		case labelExcerpt:
			if s := strings.TrimSpace(line); s != "" {
				excerpts = append(excerpts, s)
			}
		case labelBody:
			body = append(body, line)
		}
	}
	if !titled {
		return generated{}, false
	}
	g.Excerpt = strings.Join(excerpts, " ")
	g.Body = strings.Join(body, "\n")
	return g, true
}

func parseProse(text string) generated {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return generated{Title: line, Body: strings.Join(lines[i+1:], "\n")}
	}
	return generated{}
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimLeft(title, "#")
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "*")
	title = strings.Trim(title, `"`)
	return strings.TrimSpace(title)
}
