package scanner

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"ContentPipeline/internal/domain"
)

// Config describes how to extract posts from one community listing page.
type Config struct {
	Name             string   `json:"-"`
	DisplayName      string   `json:"displayName,omitempty"`
	ListingURL       string   `json:"-"`
	Language         string   `json:"-"`
	ItemSelector     string   `json:"itemSelector"`
	TitleSelector    string   `json:"titleSelector"`
	CategorySelector string   `json:"categorySelector,omitempty"`
	AuthorSelector   string   `json:"authorSelector,omitempty"`
	DateSelector     string   `json:"dateSelector,omitempty"`
	ContentSelectors []string `json:"contentSelectors,omitempty"`
	BaseURL          string   `json:"baseUrl,omitempty"`
	MaxPosts         int      `json:"-"`
}

// Validate reports the first missing mandatory field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return domain.ConfigurationError("crawl config without name")
	case strings.TrimSpace(c.ListingURL) == "":
		return domain.ConfigurationError("crawl config %s: listing url is empty", c.Name)
	case strings.TrimSpace(c.ItemSelector) == "":
		return domain.ConfigurationError("crawl config %s: item selector is empty", c.Name)
	case strings.TrimSpace(c.TitleSelector) == "":
		return domain.ConfigurationError("crawl config %s: title selector is empty", c.Name)
	}
	return nil
}

// SelectorJSON encodes the selector part of c for storage alongside the source row.
func (c Config) SelectorJSON() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// FromSource rebuilds a Config from a stored community source.
func FromSource(src domain.CommunitySource) (Config, error) {
	var cfg Config
	if raw := strings.TrimSpace(src.SelectorConfig); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return Config{}, domain.ConfigurationError("source %s selector config: %v", src.Name, err)
		}
	}
	cfg.Name = src.Name
	cfg.ListingURL = src.URL
	cfg.Language = src.Language
	cfg.MaxPosts = src.MaxPostsPerCrawl
	return cfg, cfg.Validate()
}

// Scanner executes one crawl against a resolved Config.
type Scanner interface {
	Scan(ctx context.Context, cfg Config) ([]domain.CrawledPost, error)
}

// Registry keeps a mapping from source names to their crawl configs.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: map[string]Config{}}
}

// Register adds or replaces a config after validating it.
func (r *Registry) Register(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = domain.DefaultMaxPostsPerCrawl
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configs == nil {
		r.configs = map[string]Config{}
	}
	r.configs[cfg.Name] = cfg
	return nil
}

// Resolve returns a config by name or a configuration error if it is absent.
func (r *Registry) Resolve(name string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.configs[name]; ok {
		return cfg, nil
	}
	return Config{}, domain.ConfigurationError("source %s is not registered", name)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[name]
	return ok
}

// Names lists registered sources in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
