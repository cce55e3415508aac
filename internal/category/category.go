// Package category decides which category a tab belongs to.
//
// Resolution is pure: it reads page metadata and a settings snapshot and returns
// a category string. Strategies are tried in a fixed order and the first one
// that produces a non-empty category wins:
//
//  1. explicit override supplied by the caller
//  2. channel mapping (exact match)
//  3. keyword scoring, when AI category detection is enabled
//  4. platform category label mapping
//  5. fallback category
package category

import (
	"regexp"
	"strings"
	"sync"

	"github.com/hpungsan/tabsort/internal/config"
)

// Metadata is best-effort page metadata. Every field is optional.
type Metadata struct {
	Title            string   `json:"title,omitempty"`
	Channel          string   `json:"channel,omitempty"`
	Description      string   `json:"description,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	ExternalCategory string   `json:"external_category,omitempty"`
}

// Source names the strategy that produced a category.
type Source string

const (
	SourceOverride Source = "override"
	SourceChannel  Source = "channel"
	SourceKeywords Source = "keywords"
	SourceExternal Source = "external"
	SourceFallback Source = "fallback"
)

// Resolution is a resolved category and the strategy that produced it.
type Resolution struct {
	Category string `json:"category"`
	Source   Source `json:"source"`
	// Score is the winning keyword score when Source is SourceKeywords.
	Score int `json:"score,omitempty"`
}

// externalCategories maps platform category labels (lower-cased) to canonical
// categories. Unlisted labels fall through to the fallback.
var externalCategories = map[string]string{
	"gaming":                "Gaming",
	"music":                 "Music",
	"science & technology":  "Tech",
	"education":             "Education",
	"news & politics":       "News",
	"entertainment":         "Entertainment",
	"comedy":                "Entertainment",
	"film & animation":      "Entertainment",
	"shows":                 "Entertainment",
	"sports":                "Sports",
	"howto & style":         "Lifestyle",
	"people & blogs":        "Lifestyle",
	"travel & events":       "Travel",
	"autos & vehicles":      "Autos",
	"pets & animals":        "Pets",
	"nonprofits & activism": "Activism",
}

// Resolve returns the category for a tab.
func Resolve(meta Metadata, settings config.Settings, requested string) string {
	return Explain(meta, settings, requested).Category
}

// Explain resolves the category and reports which strategy produced it.
func Explain(meta Metadata, settings config.Settings, requested string) Resolution {
	if override := strings.TrimSpace(requested); override != "" {
		return Resolution{Category: override, Source: SourceOverride}
	}

	if meta.Channel != "" {
		if mapped := strings.TrimSpace(settings.ChannelCategoryMap[meta.Channel]); mapped != "" {
			return Resolution{Category: mapped, Source: SourceChannel}
		}
	}

	if settings.AICategoryDetection {
		if best, score := bestKeywordCategory(meta, settings); best != "" {
			return Resolution{Category: best, Source: SourceKeywords, Score: score}
		}
	}

	if mapped := MapExternal(meta.ExternalCategory); mapped != "" {
		return Resolution{Category: mapped, Source: SourceExternal}
	}

	return Resolution{Category: settings.Fallback(), Source: SourceFallback}
}

// MapExternal translates a platform category label. Returns "" for unknown labels.
func MapExternal(label string) string {
	return externalCategories[strings.ToLower(strings.TrimSpace(label))]
}

// Scores returns the keyword score of every configured category, in configured
// order. Zero scores are included.
func Scores(meta Metadata, settings config.Settings) []CategoryScore {
	if settings.CategoryKeywords == nil {
		return nil
	}
	text := searchText(meta)
	out := make([]CategoryScore, 0, settings.CategoryKeywords.Len())
	for pair := settings.CategoryKeywords.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, CategoryScore{Category: pair.Key, Score: scoreKeywords(text, pair.Value)})
	}
	return out
}

// CategoryScore is the keyword score of one category.
type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// bestKeywordCategory returns the category with the strictly highest score.
// Ties keep the category configured first; zero scores never win.
func bestKeywordCategory(meta Metadata, settings config.Settings) (string, int) {
	best, bestScore := "", 0
	for _, s := range Scores(meta, settings) {
		if s.Score > bestScore && strings.TrimSpace(s.Category) != "" {
			best, bestScore = s.Category, s.Score
		}
	}
	return best, bestScore
}

func searchText(meta Metadata) string {
	parts := make([]string, 0, 2+len(meta.Keywords))
	parts = append(parts, meta.Title, meta.Description)
	parts = append(parts, meta.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

// scoreKeywords counts whole-word occurrences of every keyword in text.
func scoreKeywords(text string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		total += len(keywordPattern(kw).FindAllStringIndex(text, -1))
	}
	return total
}

// patterns caches compiled whole-word patterns by lower-cased keyword.
var patterns sync.Map

func keywordPattern(kw string) *regexp.Regexp {
	if re, ok := patterns.Load(kw); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := patterns.LoadOrStore(kw, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	return re.(*regexp.Regexp)
}
