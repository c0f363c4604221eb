package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RevenuePlatform names an ad or affiliate network.
type RevenuePlatform string

const (
	RevenueAdSense RevenuePlatform = "ADSENSE"
	RevenueCoupang RevenuePlatform = "COUPANG"
)

// DailyRevenue is one (date, platform) figure. The pair is unique and rewrites replace it.
type DailyRevenue struct {
	ID          int64
	Date        time.Time
	Platform    RevenuePlatform
	Amount      decimal.Decimal
	Impressions int64
	Clicks      int64
	Currency    string
	ExtraData   map[string]float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevenueRow is a raw per-day row returned by a reporter.
type RevenueRow struct {
	Date        time.Time
	Amount      decimal.Decimal
	Impressions int64
	Clicks      int64
	Orders      int64
	Currency    string
}

// LanguageRevenue is a raw row from a language-dimensioned report.
type LanguageRevenue struct {
	Language string
	Amount   decimal.Decimal
}

// Language buckets used for attribution.
const (
	LanguageKorean   = "ko"
	LanguageEnglish  = "en"
	LanguageJapanese = "ja"
	LanguageOther    = "other"
)

// SupportedLanguages lists the languages content is generated for.
var SupportedLanguages = []string{LanguageKorean, LanguageEnglish, LanguageJapanese}

// NormalizeLanguage maps a reporting language tag onto a bucket.
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case strings.HasPrefix(tag, "ko"), tag == "kr":
		return LanguageKorean
	case strings.HasPrefix(tag, "en"):
		return LanguageEnglish
	case strings.HasPrefix(tag, "ja"), tag == "jp":
		return LanguageJapanese
	default:
		return LanguageOther
	}
}

// SafeRatio returns num/den, or 0 when den is zero.
func SafeRatio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// CalendarDay keeps the calendar date of t in its own location and returns it
// as UTC midnight, which is how report dates are stored.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
