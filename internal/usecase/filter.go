package usecase

import (
	"log/slog"
	"strings"

	"ContentPipeline/internal/domain"
)

// FilterForbidden drops posts whose title or body contains any forbidden
// keyword, ignoring case. Each drop is logged.
func FilterForbidden(posts []domain.CrawledPost, forbidden []string, logger *slog.Logger) []domain.CrawledPost {
	needles := make([]string, 0, len(forbidden))
	for _, word := range forbidden {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			needles = append(needles, word)
		}
	}
	if len(needles) == 0 {
		return posts
	}

	kept := posts[:0:0]
	for _, post := range posts {
		if word, hit := containsAny(post, needles); hit {
			if logger != nil {
				logger.Info("post dropped by forbidden keyword", "source", post.SourceName, "url", post.URL, "keyword", word)
			}
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

func containsAny(post domain.CrawledPost, needles []string) (string, bool) {
	title := strings.ToLower(post.Title)
	body := strings.ToLower(post.Body)
	for _, needle := range needles {
		if strings.Contains(title, needle) || strings.Contains(body, needle) {
			return needle, true
		}
	}
	return "", false
}
