package revenue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
	"ContentPipeline/internal/tokens"
)

// tokenSkew refreshes a little before the recorded expiry.
const tokenSkew = time.Minute

// AdSense reads earnings reports from the AdSense Management API. The access
// token lives in the shared token store and is refreshed on expiry or a 401.
type AdSense struct {
	client       *resty.Client
	apiURL       string
	account      string
	currency     string
	refreshToken string
	oauth        *oauth2.Config
	tokens       *tokens.Manager
	now          func() time.Time
}

var (
	_ ports.RevenueReporter  = (*AdSense)(nil)
	_ ports.LanguageReporter = (*AdSense)(nil)
)

type adsenseReport struct {
	Rows []struct {
		Cells []struct {
			Value string `json:"value"`
		} `json:"cells"`
	} `json:"rows"`
}

func NewAdSense(client *resty.Client, cfg config.AdSenseConfig, manager *tokens.Manager) *AdSense {
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	return &AdSense{
		client:       client,
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		account:      strings.TrimPrefix(cfg.AccountID, "accounts/"),
		currency:     cfg.Currency,
		refreshToken: cfg.RefreshToken,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		tokens: manager,
		now:    time.Now,
	}
}

func (a *AdSense) Platform() domain.RevenuePlatform { return domain.RevenueAdSense }

// Daily returns earnings, page views and clicks per day.
func (a *AdSense) Daily(ctx context.Context, from, to time.Time) ([]domain.RevenueRow, error) {
	params := a.rangeParams(from, to)
	params["metrics"] = []string{"ESTIMATED_EARNINGS", "PAGE_VIEWS", "CLICKS"}
	params.Set("dimensions", "DATE")

	report, err := a.report(ctx, params)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.RevenueRow, 0, len(report.Rows))
	for i, row := range report.Rows {
		if len(row.Cells) < 4 {
			return nil, domain.ParseError("adsense row %d has %d cells", i, len(row.Cells))
		}
		day, err := dateparse.ParseIn(row.Cells[0].Value, time.UTC)
		if err != nil {
			return nil, domain.ParseError("adsense row %d date %q: %v", i, row.Cells[0].Value, err)
		}
		amount, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return nil, domain.ParseError("adsense row %d earnings %q: %v", i, row.Cells[1].Value, err)
		}
		rows = append(rows, domain.RevenueRow{
			Date:        domain.CalendarDay(day),
			Amount:      amount,
			Impressions: parseCount(row.Cells[2].Value),
			Clicks:      parseCount(row.Cells[3].Value),
			Currency:    a.currency,
		})
	}
	return rows, nil
}

// ByLanguage returns earnings per reported language tag.
func (a *AdSense) ByLanguage(ctx context.Context, from, to time.Time) ([]domain.LanguageRevenue, error) {
	params := a.rangeParams(from, to)
	params.Set("metrics", "ESTIMATED_EARNINGS")
	params.Set("dimensions", "LANGUAGE")

	report, err := a.report(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LanguageRevenue, 0, len(report.Rows))
	for i, row := range report.Rows {
		if len(row.Cells) < 2 {
			return nil, domain.ParseError("adsense language row %d has %d cells", i, len(row.Cells))
		}
		amount, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return nil, domain.ParseError("adsense language row %d earnings %q: %v", i, row.Cells[1].Value, err)
		}
		out = append(out, domain.LanguageRevenue{Language: row.Cells[0].Value, Amount: amount})
	}
	return out, nil
}

func (a *AdSense) rangeParams(from, to time.Time) url.Values {
	params := url.Values{}
	params.Set("dateRange", "CUSTOM")
	setDate(params, "startDate", from)
	setDate(params, "endDate", to)
	return params
}

func setDate(params url.Values, prefix string, t time.Time) {
	params.Set(prefix+".year", strconv.Itoa(t.Year()))
	params.Set(prefix+".month", strconv.Itoa(int(t.Month())))
	params.Set(prefix+".day", strconv.Itoa(t.Day()))
}

func (a *AdSense) report(ctx context.Context, params url.Values) (adsenseReport, error) {
	if a.account == "" {
		return adsenseReport{}, domain.ConfigurationError("adsense account id is missing")
	}
	token, err := a.token(ctx)
	if err != nil {
		return adsenseReport{}, err
	}

	body, err := a.fetch(ctx, token, params)
	if errors.Is(err, domain.ErrUnauthorized) {
		if token, err = a.tokens.Refresh(ctx, token, a.refresh); err != nil {
			return adsenseReport{}, err
		}
		body, err = a.fetch(ctx, token, params)
	}
	if err != nil {
		return adsenseReport{}, err
	}

	var report adsenseReport
	if err := json.Unmarshal(body, &report); err != nil {
		return adsenseReport{}, domain.ParseError("adsense report: %v", err)
	}
	return report, nil
}

func (a *AdSense) fetch(ctx context.Context, token domain.Token, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/reports:generate", a.apiURL, a.account)
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetQueryParamsFromValues(params).
		Get(endpoint)
	if err := checkResponse("adsense report", resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// token returns a usable access token, refreshing when none is stored or it is about to expire.
func (a *AdSense) token(ctx context.Context) (domain.Token, error) {
	if a.tokens == nil {
		return domain.Token{}, domain.ConfigurationError("adsense token manager is not configured")
	}
	current, err := a.tokens.Current(ctx, domain.PlatformAdSense)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		current = domain.Token{Platform: domain.PlatformAdSense, RefreshToken: a.refreshToken}
	case err != nil:
		return domain.Token{}, err
	case !current.Expiry.IsZero() && a.now().Add(tokenSkew).Before(current.Expiry):
		return current, nil
	case current.Expiry.IsZero() && !current.Empty():
		return current, nil
	}
	return a.tokens.Refresh(ctx, current, a.refresh)
}

func (a *AdSense) refresh(ctx context.Context, stale domain.Token) (domain.Token, error) {
	refreshToken := stale.RefreshToken
	if refreshToken == "" {
		refreshToken = a.refreshToken
	}
	if refreshToken == "" || a.oauth.ClientID == "" {
		return domain.Token{}, domain.ConfigurationError("adsense oauth credentials are missing")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client.GetClient())
	fresh, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}).Token()
	if err != nil {
		return domain.Token{}, domain.TransientError("adsense token refresh", err)
	}
	return domain.Token{
		Platform:     domain.PlatformAdSense,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		Expiry:       fresh.Expiry.UTC(),
	}, nil
}

func parseCount(raw string) int64 {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d.IntPart()
	}
	return 0
}
