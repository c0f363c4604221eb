package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// KeywordCooldown is the minimum gap between two generations for one keyword.
	KeywordCooldown = 7 * 24 * time.Hour

	MinKeywordPriority     = 1
	MaxKeywordPriority     = 10
	defaultKeywordPriority = 5

	CategoryGeneral = "general"

	// OriginManual tags keywords added by an operator instead of a collector.
	OriginManual = "manual-addition"
)

// Keyword is a search term tracked per language. Term and Language together are unique.
type Keyword struct {
	ID              int64
	Term            string
	Language        string
	Category        string
	Source          string
	Priority        int
	Active          bool
	LastGeneratedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// KeywordSource is an append-only provenance record for a keyword.
type KeywordSource struct {
	ID          int64
	KeywordID   int64
	SourceName  string
	CollectedAt time.Time
	Details     string
}

// DueForGeneration reports whether the keyword may be selected at now.
func (k Keyword) DueForGeneration(now time.Time) bool {
	if !k.Active {
		return false
	}
	return k.LastGeneratedAt == nil || k.LastGeneratedAt.Before(now.Add(-KeywordCooldown))
}

var priorityTriggers = []string{
	"신규", "출시", "화제", "인기", "논란", "이슈",
	"new", "launch", "trending", "breaking",
	"話題", "新作",
}

// KeywordPriority scores a freshly discovered term in [1,10].
func KeywordPriority(term string) int {
	priority := defaultKeywordPriority
	length := utf8.RuneCountInString(strings.TrimSpace(term))
	if length < 3 {
		priority -= 2
	} else if length > 10 {
		priority++
	}

	lower := strings.ToLower(term)
	for _, trigger := range priorityTriggers {
		if strings.Contains(lower, trigger) {
			priority++
			break
		}
	}

	return ClampPriority(priority)
}

// ClampPriority bounds a priority into [MinKeywordPriority, MaxKeywordPriority].
func ClampPriority(p int) int {
	switch {
	case p < MinKeywordPriority:
		return MinKeywordPriority
	case p > MaxKeywordPriority:
		return MaxKeywordPriority
	default:
		return p
	}
}

type categoryRule struct {
	category string
	needles  []string
}

// Order matters: the first matching rule wins.
var categoryRules = []categoryRule{
	{category: "health", needles: []string{"코로나", "백신", "건강", "vaccine", "health"}},
	{category: "finance", needles: []string{"주식", "비트코인", "투자", "stock", "bitcoin", "invest"}},
	{category: "entertainment", needles: []string{"영화", "드라마", "배우", "movie", "drama", "actor"}},
	{category: "game", needles: []string{"게임", "출시", "game"}},
}

// KeywordCategory infers a category by substring match, defaulting to general.
func KeywordCategory(term string) string {
	lower := strings.ToLower(term)
	for _, rule := range categoryRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// NewKeyword builds an active keyword with computed priority and category.
func NewKeyword(term, language, origin string, now time.Time) Keyword {
	term = strings.TrimSpace(term)
	return Keyword{
		Term:      term,
		Language:  language,
		Category:  KeywordCategory(term),
		Source:    origin,
		Priority:  KeywordPriority(term),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
