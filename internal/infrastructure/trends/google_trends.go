package trends

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// xssiPrefix guards the Trends JSON against script inclusion and must be stripped.
const xssiPrefix = ")]}',"

// GoogleTrends collects daily trending searches and their related queries.
type GoogleTrends struct {
	client   *resty.Client
	endpoint string
	geo      string
	language string
}

var _ ports.KeywordCollector = (*GoogleTrends)(nil)

type dailyTrends struct {
	Default struct {
		TrendingSearchesDays []struct {
			TrendingSearches []struct {
				Title struct {
					Query string `json:"query"`
				} `json:"title"`
				RelatedQueries []struct {
					Query string `json:"query"`
				} `json:"relatedQueries"`
			} `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

// NewGoogleTrends targets endpoint for the given geo and interface language.
func NewGoogleTrends(client *resty.Client, endpoint, geo, language string) *GoogleTrends {
	if client == nil {
		client = resty.New().SetTimeout(20 * time.Second)
	}
	return &GoogleTrends{client: client, endpoint: endpoint, geo: geo, language: language}
}

func (g *GoogleTrends) Name() string     { return "google-trends" }
func (g *GoogleTrends) Language() string { return g.language }

// Collect returns the trending queries followed by their related queries.
func (g *GoogleTrends) Collect(ctx context.Context) ([]string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hl":  g.language,
			"geo": g.geo,
			"tz":  "-540",
			"cat": "all",
			"ns":  "15",
		}).
		Get(g.endpoint)
	if err != nil {
		return nil, domain.TransientError("google trends request", err)
	}
	if resp.IsError() {
		return nil, domain.TransientError(fmt.Sprintf("google trends returned %s", resp.Status()), nil)
	}

	return parseDailyTrends(resp.Body())
}

func parseDailyTrends(raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	raw = bytes.TrimPrefix(raw, []byte(xssiPrefix))

	var payload dailyTrends
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.ParseError("decode google trends: %v", err)
	}

	var terms []string
	for _, day := range payload.Default.TrendingSearchesDays {
		for _, search := range day.TrendingSearches {
			if q := strings.TrimSpace(search.Title.Query); q != "" {
				terms = append(terms, q)
			}
			for _, related := range search.RelatedQueries {
				if q := strings.TrimSpace(related.Query); q != "" {
					terms = append(terms, q)
				}
			}
		}
	}
	return terms, nil
}
