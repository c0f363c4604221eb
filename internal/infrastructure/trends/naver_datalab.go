package trends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

const dataLabWindow = 30 * 24 * time.Hour

// NaverDataLab asks the search-trend API about configured keyword groups and
// returns the keywords of groups whose latest ratio reaches the threshold.
type NaverDataLab struct {
	client       *resty.Client
	endpoint     string
	clientID     string
	clientSecret string
	groups       []config.KeywordGroup
	minRatio     float64
	now          func() time.Time
}

var _ ports.KeywordCollector = (*NaverDataLab)(nil)

type dataLabGroup struct {
	GroupName string   `json:"groupName"`
	Keywords  []string `json:"keywords"`
}

type dataLabRequest struct {
	StartDate     string         `json:"startDate"`
	EndDate       string         `json:"endDate"`
	TimeUnit      string         `json:"timeUnit"`
	KeywordGroups []dataLabGroup `json:"keywordGroups"`
}

type dataLabResponse struct {
	Results []struct {
		Title    string   `json:"title"`
		Keywords []string `json:"keywords"`
		Data     []struct {
			Period string  `json:"period"`
			Ratio  float64 `json:"ratio"`
		} `json:"data"`
	} `json:"results"`
}

// NewNaverDataLab wires the client credentials and keyword groups.
func NewNaverDataLab(client *resty.Client, cfg config.NaverDataLabConfig) *NaverDataLab {
	if client == nil {
		client = resty.New().SetTimeout(20 * time.Second)
	}
	return &NaverDataLab{
		client:       client,
		endpoint:     cfg.URL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		groups:       cfg.Groups,
		minRatio:     cfg.MinRatio,
		now:          time.Now,
	}
}

func (n *NaverDataLab) Name() string     { return "naver-datalab" }
func (n *NaverDataLab) Language() string { return domain.LanguageKorean }

// Collect queries the last 30 days of every group.
func (n *NaverDataLab) Collect(ctx context.Context) ([]string, error) {
	if n.clientID == "" || n.clientSecret == "" {
		return nil, domain.ConfigurationError("naver datalab credentials are missing")
	}
	if len(n.groups) == 0 {
		return nil, nil
	}

	end := n.now()
	req := dataLabRequest{
		StartDate: end.Add(-dataLabWindow).Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		TimeUnit:  "date",
	}
	for _, g := range n.groups {
		req.KeywordGroups = append(req.KeywordGroups, dataLabGroup{GroupName: g.Name, Keywords: g.Keywords})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal datalab request: %w", err)
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("X-Naver-Client-Id", n.clientID).
		SetHeader("X-Naver-Client-Secret", n.clientSecret).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(n.endpoint)
	if err != nil {
		return nil, domain.TransientError("naver datalab request", err)
	}
	if resp.IsError() {
		return nil, domain.TransientError(fmt.Sprintf("naver datalab returned %s", resp.Status()), nil)
	}

	var parsed dataLabResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, domain.ParseError("decode datalab: %v", err)
	}

	var terms []string
	for _, result := range parsed.Results {
		if len(result.Data) == 0 {
			continue
		}
		latest := result.Data[len(result.Data)-1]
		if latest.Ratio < n.minRatio {
			continue
		}
		for _, kw := range result.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				terms = append(terms, kw)
			}
		}
	}
	return terms, nil
}
