package revenue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

const coupangSignedDateLayout = "060102T150405Z"

// Coupang reads the Partners daily commission report.
type Coupang struct {
	client    *resty.Client
	apiURL    string
	accessKey string
	secretKey string
	currency  string
	now       func() time.Time
}

var _ ports.RevenueReporter = (*Coupang)(nil)

type coupangReport struct {
	Data []struct {
		Date       string          `json:"date"`
		Commission decimal.Decimal `json:"commission"`
		OrderCount int64           `json:"orderCount"`
		ClickCount int64           `json:"clickCount"`
	} `json:"data"`
}

func NewCoupang(client *resty.Client, cfg config.CoupangConfig) *Coupang {
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "KRW"
	}
	return &Coupang{
		client:    client,
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		currency:  currency,
		now:       time.Now,
	}
}

func (c *Coupang) Platform() domain.RevenuePlatform { return domain.RevenueCoupang }

// Daily returns commission, clicks and orders per day.
func (c *Coupang) Daily(ctx context.Context, from, to time.Time) ([]domain.RevenueRow, error) {
	if c.accessKey == "" || c.secretKey == "" {
		return nil, domain.ConfigurationError("coupang partners keys are missing")
	}

	endpoint, err := url.Parse(c.apiURL + "/reports/daily")
	if err != nil {
		return nil, domain.ConfigurationError("coupang api url: %v", err)
	}
	query := url.Values{}
	query.Set("startDate", from.Format(time.DateOnly))
	query.Set("endDate", to.Format(time.DateOnly))
	endpoint.RawQuery = query.Encode()

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", c.authorization(http.MethodGet, endpoint.Path, endpoint.RawQuery)).
		Get(endpoint.String())
	if err := checkResponse("coupang daily report", resp, err); err != nil {
		return nil, err
	}

	var report coupangReport
	if err := json.Unmarshal(resp.Body(), &report); err != nil {
		return nil, domain.ParseError("coupang daily report: %v", err)
	}

	rows := make([]domain.RevenueRow, 0, len(report.Data))
	for i, day := range report.Data {
		date, err := dateparse.ParseIn(day.Date, time.UTC)
		if err != nil {
			return nil, domain.ParseError("coupang row %d date %q: %v", i, day.Date, err)
		}
		rows = append(rows, domain.RevenueRow{
			Date:     domain.CalendarDay(date),
			Amount:   day.Commission,
			Clicks:   day.ClickCount,
			Orders:   day.OrderCount,
			Currency: c.currency,
		})
	}
	return rows, nil
}

// authorization builds the CEA header: HMAC-SHA256 over signed-date, method, path and query.
func (c *Coupang) authorization(method, path, query string) string {
	signedDate := c.now().UTC().Format(coupangSignedDateLayout)
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(signedDate + method + path + query))
	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		c.accessKey, signedDate, hex.EncodeToString(mac.Sum(nil)))
}
