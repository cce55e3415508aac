package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/hpungsan/tabsort/internal/host"
)

// Neighbor scopes for color assignment.
const (
	NeighborScopeWindow = "window"
	NeighborScopeAll    = "all"
)

// DefaultFallbackCategory is used when no resolution strategy produces a category.
const DefaultFallbackCategory = "Other"

// DefaultCleanupGrace is the grace period when auto_cleanup_grace_ms is unset.
const DefaultCleanupGrace = 10 * time.Second

// Settings is the per-request configuration snapshot consumed by the engine.
type Settings struct {
	// AICategoryDetection enables keyword scoring against CategoryKeywords.
	AICategoryDetection bool `json:"ai_category_detection,omitempty"`

	// CategoryKeywords maps category -> keywords. Order is the order in the config
	// file; keyword-score ties resolve to the category listed first.
	CategoryKeywords *orderedmap.OrderedMap[string, []string] `json:"category_keywords,omitempty"`

	// ChannelCategoryMap maps an exact channel name to a category.
	ChannelCategoryMap map[string]string `json:"channel_category_map,omitempty"`

	// EnabledColors toggles palette colors. Colors missing from the map are disabled
	// unless the map is empty, in which case the full palette is used.
	EnabledColors map[host.Color]bool `json:"enabled_colors,omitempty"`

	// AutoCleanupEnabled toggles the empty-group sweep. nil means enabled.
	AutoCleanupEnabled *bool `json:"auto_cleanup_enabled,omitempty"`

	// AutoCleanupGraceMs is how long a group must stay empty before removal.
	// nil means DefaultCleanupGrace; 0 removes on the first sweep that sees it empty.
	AutoCleanupGraceMs *int64 `json:"auto_cleanup_grace_ms,omitempty"`

	// FallbackCategory is the last-resort category. Defaults to "Other".
	FallbackCategory string `json:"fallback_category,omitempty"`
}

// CleanupEnabled reports whether the empty-group sweep should run.
func (s Settings) CleanupEnabled() bool {
	return s.AutoCleanupEnabled == nil || *s.AutoCleanupEnabled
}

// Grace returns the cleanup grace period.
func (s Settings) Grace() time.Duration {
	if s.AutoCleanupGraceMs == nil {
		return DefaultCleanupGrace
	}
	return time.Duration(*s.AutoCleanupGraceMs) * time.Millisecond
}

// Fallback returns the fallback category, defaulting to "Other".
func (s Settings) Fallback() string {
	if f := strings.TrimSpace(s.FallbackCategory); f != "" {
		return f
	}
	return DefaultFallbackCategory
}

// Config holds application configuration.
type Config struct {
	// Settings are the grouping settings handed to every request.
	Settings Settings `json:"settings"`

	// NeighborScope selects which groups count as neighbors during color
	// assignment: "window" (default) or "all".
	NeighborScope string `json:"neighbor_scope,omitempty"`

	// SweepIntervalMs is the period of the background cleanup sweep.
	SweepIntervalMs int64 `json:"sweep_interval_ms,omitempty"`

	// EligibleURLPrefixes limits batch grouping to tabs whose URL starts with one of
	// these prefixes. Empty means every ungrouped tab is eligible.
	EligibleURLPrefixes []string `json:"eligible_url_prefixes,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	enabled := make(map[host.Color]bool, len(host.Palette))
	for _, c := range host.Palette {
		enabled[c] = true
	}
	return &Config{
		Settings: Settings{
			CategoryKeywords:   orderedmap.New[string, []string](),
			ChannelCategoryMap: map[string]string{},
			EnabledColors:      enabled,
			AutoCleanupGraceMs: host.Int64Ptr(DefaultCleanupGrace.Milliseconds()),
			FallbackCategory:   DefaultFallbackCategory,
		},
		NeighborScope:   NeighborScopeWindow,
		SweepIntervalMs: 30_000,
	}
}

// SweepInterval returns the background sweep period.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tabsort.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.tabsort) and repo (.tabsort) directories.
// Repo config is found by walking upward from startDir to find the nearest .tabsort/config.json.
// Repo config takes precedence for scalar values; arrays and maps are merged.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .tabsort/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".tabsort", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Validate rejects values the engine cannot act on.
func (c *Config) Validate() error {
	switch c.NeighborScope {
	case "", NeighborScopeWindow, NeighborScopeAll:
	default:
		return errors.New("neighbor_scope must be one of: window, all")
	}
	for color := range c.Settings.EnabledColors {
		if _, ok := host.ParseColor(string(color)); !ok {
			return errors.New("enabled_colors contains unknown color " + string(color))
		}
	}
	if g := c.Settings.AutoCleanupGraceMs; g != nil && *g < 0 {
		return errors.New("auto_cleanup_grace_ms must be non-negative")
	}
	if c.SweepIntervalMs < 0 {
		return errors.New("sweep_interval_ms must be non-negative")
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated;
// maps are merged key by key with overlay entries winning.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Settings = mergeSettings(base.Settings, overlay.Settings)

	result.NeighborScope = overlay.NeighborScope
	if result.NeighborScope == "" {
		result.NeighborScope = base.NeighborScope
	}

	result.SweepIntervalMs = overlay.SweepIntervalMs
	if result.SweepIntervalMs == 0 {
		result.SweepIntervalMs = base.SweepIntervalMs
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.EligibleURLPrefixes = mergeStringSlice(base.EligibleURLPrefixes, overlay.EligibleURLPrefixes)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func mergeSettings(base, overlay Settings) Settings {
	result := Settings{}

	// Booleans: overlay wins if true, else base
	result.AICategoryDetection = base.AICategoryDetection || overlay.AICategoryDetection

	// Tri-state: overlay wins if set
	result.AutoCleanupEnabled = overlay.AutoCleanupEnabled
	if result.AutoCleanupEnabled == nil {
		result.AutoCleanupEnabled = base.AutoCleanupEnabled
	}

	result.AutoCleanupGraceMs = overlay.AutoCleanupGraceMs
	if result.AutoCleanupGraceMs == nil {
		result.AutoCleanupGraceMs = base.AutoCleanupGraceMs
	}

	result.FallbackCategory = strings.TrimSpace(overlay.FallbackCategory)
	if result.FallbackCategory == "" {
		result.FallbackCategory = base.FallbackCategory
	}

	result.CategoryKeywords = orderedmap.New[string, []string]()
	for _, src := range []*orderedmap.OrderedMap[string, []string]{base.CategoryKeywords, overlay.CategoryKeywords} {
		if src == nil {
			continue
		}
		for pair := src.Oldest(); pair != nil; pair = pair.Next() {
			category := strings.TrimSpace(pair.Key)
			if category == "" {
				continue
			}
			result.CategoryKeywords.Set(category, mergeStringSlice(nil, pair.Value))
		}
	}

	result.ChannelCategoryMap = make(map[string]string, len(base.ChannelCategoryMap)+len(overlay.ChannelCategoryMap))
	for k, v := range base.ChannelCategoryMap {
		result.ChannelCategoryMap[k] = v
	}
	for k, v := range overlay.ChannelCategoryMap {
		result.ChannelCategoryMap[k] = v
	}

	result.EnabledColors = make(map[host.Color]bool, len(host.Palette))
	for k, v := range base.EnabledColors {
		result.EnabledColors[normalizeColor(k)] = v
	}
	for k, v := range overlay.EnabledColors {
		result.EnabledColors[normalizeColor(k)] = v
	}

	return result
}

func normalizeColor(c host.Color) host.Color {
	if parsed, ok := host.ParseColor(string(c)); ok {
		return parsed
	}
	return c
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
