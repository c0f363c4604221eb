package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ContentPipeline/internal/domain"
)

const (
	defaultTimezone = "Asia/Seoul"
	configPathEnv   = "CONTENT_PIPELINE_CONFIG"
	dotenvPathEnv   = "CONTENT_PIPELINE_DOTENV"

	databaseDriverEnv      = "DATABASE_DRIVER"
	databaseDSNEnv         = "DATABASE_DSN"
	redisAddrEnv           = "REDIS_ADDR"
	redisPasswordEnv       = "REDIS_PASSWORD"
	logLevelEnv            = "LOG_LEVEL"
	openAIAPIKeyEnv        = "OPENAI_API_KEY"
	openAIModelEnv         = "OPENAI_MODEL"
	naverClientIDEnv       = "NAVER_CLIENT_ID"
	naverClientSecretEnv   = "NAVER_CLIENT_SECRET"
	naverAccessTokenEnv    = "NAVER_BLOG_ACCESS_TOKEN"
	naverRefreshTokenEnv   = "NAVER_BLOG_REFRESH_TOKEN"
	facebookPageIDEnv      = "FACEBOOK_PAGE_ID"
	facebookAppIDEnv       = "FACEBOOK_APP_ID"
	facebookAppSecretEnv   = "FACEBOOK_APP_SECRET"
	facebookAccessTokenEnv = "FACEBOOK_ACCESS_TOKEN"
	telegramTokenEnv       = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv      = "TELEGRAM_CHAT_ID"
	adsenseAccountEnv      = "ADSENSE_ACCOUNT_ID"
	adsenseClientIDEnv     = "ADSENSE_CLIENT_ID"
	adsenseClientSecretEnv = "ADSENSE_CLIENT_SECRET"
	adsenseRefreshEnv      = "ADSENSE_REFRESH_TOKEN"
	coupangAccessKeyEnv    = "COUPANG_ACCESS_KEY"
	coupangSecretKeyEnv    = "COUPANG_SECRET_KEY"
	forbiddenKeywordsEnv   = "FORBIDDEN_KEYWORDS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Quota      QuotaConfig      `yaml:"quota"`
	Keywords   KeywordConfig    `yaml:"keywords"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Sources    []SourceConfig   `yaml:"sources" validate:"dive"`
	Generation GenerationConfig `yaml:"generation"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Publishing PublishingConfig `yaml:"publishing"`
	Revenue    RevenueConfig    `yaml:"revenue"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"oneof=postgres sqlite3"`
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"maxOpenConns" validate:"gte=0"`
}

// RedisConfig enables the Redis token store when Addr is set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// SchedulerConfig holds one cron expression (with seconds) per cadence.
type SchedulerConfig struct {
	Timezone          string         `yaml:"timezone"`
	QuotaReset        string         `yaml:"quotaReset" validate:"required"`
	KeywordCollection string         `yaml:"keywordCollection" validate:"required"`
	Crawl             string         `yaml:"crawl" validate:"required"`
	PostGeneration    string         `yaml:"postGeneration" validate:"required"`
	KeywordGeneration string         `yaml:"keywordGeneration" validate:"required"`
	Publish           string         `yaml:"publish" validate:"required"`
	Revenue           string         `yaml:"revenue" validate:"required"`
	ItemTimeout       time.Duration  `yaml:"itemTimeout" validate:"gt=0"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// QuotaConfig sets the daily limits of the quota counters.
type QuotaConfig struct {
	CrawlDaily      int `yaml:"crawlDaily" validate:"gte=0"`
	GenerationDaily int `yaml:"generationDaily" validate:"gte=0"`
}

// KeywordConfig covers keyword collection and keyword-driven generation.
type KeywordConfig struct {
	GenerationLimit int                `yaml:"generationLimit" validate:"gt=0"`
	Languages       []string           `yaml:"languages" validate:"min=1,dive,oneof=ko en ja"`
	GoogleTrends    GoogleTrendsConfig `yaml:"googleTrends"`
	NaverDataLab    NaverDataLabConfig `yaml:"naverDataLab"`
}

// GoogleTrendsConfig targets the daily trends JSON and RSS endpoints.
type GoogleTrendsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url" validate:"required_if=Enabled true"`
	RSSEnabled bool   `yaml:"rssEnabled"`
	RSSURL     string `yaml:"rssUrl" validate:"required_if=RSSEnabled true"`
	Geo        string `yaml:"geo"`
	Language   string `yaml:"language"`
}

// NaverDataLabConfig describes the search-trend groups to watch.
type NaverDataLabConfig struct {
	Enabled      bool           `yaml:"enabled"`
	URL          string         `yaml:"url" validate:"required_if=Enabled true"`
	ClientID     string         `yaml:"clientId" validate:"required_if=Enabled true"`
	ClientSecret string         `yaml:"clientSecret" validate:"required_if=Enabled true"`
	Groups       []KeywordGroup `yaml:"groups"`
	MinRatio     float64        `yaml:"minRatio"`
}

// KeywordGroup is one DataLab keyword group.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CrawlConfig tunes the community crawler.
type CrawlConfig struct {
	UserAgent          string        `yaml:"userAgent"`
	AcceptLanguage     string        `yaml:"acceptLanguage"`
	Timeout            time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxSourcesPerCrawl int           `yaml:"maxSourcesPerCrawl" validate:"gt=0"`
	QueueCapacity      int           `yaml:"queueCapacity" validate:"gt=0"`
	ForbiddenKeywords  []string      `yaml:"forbiddenKeywords"`
}

// SourceConfig describes a single community site with its selectors.
type SourceConfig struct {
	Name             string   `yaml:"name" validate:"required"`
	DisplayName      string   `yaml:"displayName"`
	URL              string   `yaml:"url" validate:"required,url"`
	Language         string   `yaml:"language" validate:"oneof=ko en ja"`
	ItemSelector     string   `yaml:"itemSelector" validate:"required"`
	TitleSelector    string   `yaml:"titleSelector" validate:"required"`
	CategorySelector string   `yaml:"categorySelector"`
	AuthorSelector   string   `yaml:"authorSelector"`
	DateSelector     string   `yaml:"dateSelector"`
	ContentSelectors []string `yaml:"contentSelectors"`
	BaseURL          string   `yaml:"baseUrl" validate:"omitempty,url"`
	MaxPosts         int      `yaml:"maxPosts" validate:"gte=0"`
	IntervalMinutes  int      `yaml:"intervalMinutes" validate:"gte=0"`
	Priority         int      `yaml:"priority"`
	Disabled         bool     `yaml:"disabled"`
}

// GenerationConfig tunes article synthesis.
type GenerationConfig struct {
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	AutoPublish      bool          `yaml:"autoPublish"`
	Author           string        `yaml:"author"`
	MaxConcurrent    int           `yaml:"maxConcurrent" validate:"gt=0"`
	SourceMaxTokens  int           `yaml:"sourceMaxTokens" validate:"gt=0"`
	KeywordMaxTokens int           `yaml:"keywordMaxTokens" validate:"gt=0"`
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	Endpoint    string        `yaml:"endpoint" validate:"required,url"`
	Model       string        `yaml:"model" validate:"required"`
	APIKey      string        `yaml:"apiKey" validate:"required"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// PublishingConfig groups the outbound platforms.
type PublishingConfig struct {
	SiteURL   string          `yaml:"siteUrl" validate:"required,url"`
	BatchSize int             `yaml:"batchSize" validate:"gt=0"`
	NaverBlog NaverBlogConfig `yaml:"naverBlog"`
	Facebook  FacebookConfig  `yaml:"facebook"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

// NaverBlogConfig wires the blog write API and its OAuth client.
type NaverBlogConfig struct {
	Enabled      bool           `yaml:"enabled"`
	APIURL       string         `yaml:"apiUrl" validate:"required_if=Enabled true"`
	AuthURL      string         `yaml:"authUrl" validate:"required_if=Enabled true"`
	TokenURL     string         `yaml:"tokenUrl" validate:"required_if=Enabled true"`
	ClientID     string         `yaml:"clientId" validate:"required_if=Enabled true"`
	ClientSecret string         `yaml:"clientSecret" validate:"required_if=Enabled true"`
	RedirectURL  string         `yaml:"redirectUrl"`
	AccessToken  string         `yaml:"accessToken"`
	RefreshToken string         `yaml:"refreshToken"`
	Categories   map[string]int `yaml:"categories"`
}

// FacebookConfig wires the Graph API page feed.
type FacebookConfig struct {
	Enabled     bool   `yaml:"enabled"`
	GraphURL    string `yaml:"graphUrl" validate:"required_if=Enabled true"`
	PageID      string `yaml:"pageId" validate:"required_if=Enabled true"`
	AppID       string `yaml:"appId"`
	AppSecret   string `yaml:"appSecret"`
	AccessToken string `yaml:"accessToken" validate:"required_if=Enabled true"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	APIURL      string `yaml:"apiUrl" validate:"required_if=Enabled true"`
	BotToken    string `yaml:"botToken" validate:"required_if=Enabled true"`
	ChatID      string `yaml:"chatId" validate:"required_if=Enabled true"`
	ChannelName string `yaml:"channelName"`
}

// RevenueConfig groups the reporting networks.
type RevenueConfig struct {
	AdSense AdSenseConfig `yaml:"adsense"`
	Coupang CoupangConfig `yaml:"coupang"`
}

// AdSenseConfig wires the AdSense Management API.
type AdSenseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	APIURL       string `yaml:"apiUrl" validate:"required_if=Enabled true"`
	TokenURL     string `yaml:"tokenUrl" validate:"required_if=Enabled true"`
	AccountID    string `yaml:"accountId" validate:"required_if=Enabled true"`
	ClientID     string `yaml:"clientId" validate:"required_if=Enabled true"`
	ClientSecret string `yaml:"clientSecret" validate:"required_if=Enabled true"`
	RefreshToken string `yaml:"refreshToken" validate:"required_if=Enabled true"`
	Currency     string `yaml:"currency"`
}

// CoupangConfig wires the Coupang Partners report API.
type CoupangConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIURL    string `yaml:"apiUrl" validate:"required_if=Enabled true"`
	AccessKey string `yaml:"accessKey" validate:"required_if=Enabled true"`
	SecretKey string `yaml:"secretKey" validate:"required_if=Enabled true"`
	Currency  string `yaml:"currency"`
}

// Load reads .env and the YAML file named by CONTENT_PIPELINE_CONFIG (both
// optional), applies environment overrides and validates the result.
func Load() (Config, error) {
	dotenvPath := os.Getenv(dotenvPathEnv)
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", dotenvPath, err)
	}
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load without the .env step; an empty path means defaults only.
func LoadFrom(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.ConfigurationError("read %s: %v", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, domain.ConfigurationError("parse %s: %v", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints and returns a configuration error listing the violations.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problems := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return domain.ConfigurationError("invalid settings: %s", strings.Join(problems, ", "))
		}
		return domain.ConfigurationError("validate: %v", err)
	}

	seen := map[string]struct{}{}
	for _, src := range c.Sources {
		if _, dup := seen[src.Name]; dup {
			return domain.ConfigurationError("duplicate source %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Redis.Addr, redisAddrEnv)
	setString(&c.Redis.Password, redisPasswordEnv)
	setString(&c.Logging.Level, logLevelEnv)

	setString(&c.OpenAI.APIKey, openAIAPIKeyEnv)
	setString(&c.OpenAI.Model, openAIModelEnv)

	setString(&c.Keywords.NaverDataLab.ClientID, naverClientIDEnv)
	setString(&c.Keywords.NaverDataLab.ClientSecret, naverClientSecretEnv)
	setString(&c.Publishing.NaverBlog.ClientID, naverClientIDEnv)
	setString(&c.Publishing.NaverBlog.ClientSecret, naverClientSecretEnv)
	setString(&c.Publishing.NaverBlog.AccessToken, naverAccessTokenEnv)
	setString(&c.Publishing.NaverBlog.RefreshToken, naverRefreshTokenEnv)

	setString(&c.Publishing.Facebook.PageID, facebookPageIDEnv)
	setString(&c.Publishing.Facebook.AppID, facebookAppIDEnv)
	setString(&c.Publishing.Facebook.AppSecret, facebookAppSecretEnv)
	setString(&c.Publishing.Facebook.AccessToken, facebookAccessTokenEnv)

	setString(&c.Publishing.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Publishing.Telegram.ChatID, telegramChatIDEnv)

	setString(&c.Revenue.AdSense.AccountID, adsenseAccountEnv)
	setString(&c.Revenue.AdSense.ClientID, adsenseClientIDEnv)
	setString(&c.Revenue.AdSense.ClientSecret, adsenseClientSecretEnv)
	setString(&c.Revenue.AdSense.RefreshToken, adsenseRefreshEnv)
	setString(&c.Revenue.Coupang.AccessKey, coupangAccessKeyEnv)
	setString(&c.Revenue.Coupang.SecretKey, coupangSecretKeyEnv)

	if v := os.Getenv(forbiddenKeywordsEnv); v != "" {
		c.Crawl.ForbiddenKeywords = splitList(v)
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
