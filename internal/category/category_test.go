package category

import (
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/hpungsan/tabsort/internal/config"
)

func keywords(pairs ...any) *orderedmap.OrderedMap[string, []string] {
	om := orderedmap.New[string, []string]()
	for i := 0; i+1 < len(pairs); i += 2 {
		om.Set(pairs[i].(string), pairs[i+1].([]string))
	}
	return om
}

func baseSettings() config.Settings {
	return config.Settings{
		AICategoryDetection: true,
		CategoryKeywords: keywords(
			"Gaming", []string{"fortnite", "minecraft"},
			"Music", []string{"song", "album"},
		),
		ChannelCategoryMap: map[string]string{"Lofi Girl": "Study"},
	}
}

func TestResolve_OverrideWins(t *testing.T) {
	meta := Metadata{Title: "Fortnite song", Channel: "Lofi Girl", ExternalCategory: "Music"}

	res := Explain(meta, baseSettings(), "  Chill  ")
	if res.Category != "Chill" || res.Source != SourceOverride {
		t.Errorf("Explain() = %+v, want Chill/override", res)
	}
}

func TestResolve_BlankOverrideIgnored(t *testing.T) {
	meta := Metadata{Channel: "Lofi Girl"}

	if got := Resolve(meta, baseSettings(), "   "); got != "Study" {
		t.Errorf("Resolve() = %q, want Study", got)
	}
}

func TestResolve_ChannelBeatsKeywords(t *testing.T) {
	meta := Metadata{Title: "Fortnite Fortnite Fortnite", Channel: "Lofi Girl"}

	res := Explain(meta, baseSettings(), "")
	if res.Category != "Study" || res.Source != SourceChannel {
		t.Errorf("Explain() = %+v, want Study/channel", res)
	}
}

func TestResolve_ChannelMatchIsExact(t *testing.T) {
	meta := Metadata{Channel: "lofi girl"}
	settings := baseSettings()
	settings.AICategoryDetection = false

	if got := Resolve(meta, settings, ""); got != "Other" {
		t.Errorf("Resolve() = %q, want Other (channel match is case-sensitive)", got)
	}
}

func TestResolve_KeywordScoring(t *testing.T) {
	meta := Metadata{
		Title:       "Epic Fortnite Wins",
		Description: "best song of the match",
		Keywords:    []string{"Minecraft"},
	}

	res := Explain(meta, baseSettings(), "")
	if res.Category != "Gaming" || res.Source != SourceKeywords {
		t.Fatalf("Explain() = %+v, want Gaming/keywords", res)
	}
	if res.Score != 2 {
		t.Errorf("Score = %d, want 2", res.Score)
	}
}

func TestResolve_KeywordsRequireWholeWords(t *testing.T) {
	meta := Metadata{Title: "songbird albums"}
	settings := baseSettings()

	if got := Resolve(meta, settings, ""); got != "Other" {
		t.Errorf("Resolve() = %q, want Other (no whole-word match)", got)
	}
}

func TestResolve_KeywordTieKeepsFirstConfigured(t *testing.T) {
	meta := Metadata{Title: "minecraft album"}

	if got := Resolve(meta, baseSettings(), ""); got != "Gaming" {
		t.Errorf("Resolve() = %q, want Gaming (first configured on tie)", got)
	}

	settings := baseSettings()
	settings.CategoryKeywords = keywords(
		"Music", []string{"song", "album"},
		"Gaming", []string{"fortnite", "minecraft"},
	)
	if got := Resolve(meta, settings, ""); got != "Music" {
		t.Errorf("Resolve() = %q, want Music (first configured on tie)", got)
	}
}

func TestResolve_KeywordsDisabled(t *testing.T) {
	meta := Metadata{Title: "fortnite", ExternalCategory: "Music"}
	settings := baseSettings()
	settings.AICategoryDetection = false

	res := Explain(meta, settings, "")
	if res.Category != "Music" || res.Source != SourceExternal {
		t.Errorf("Explain() = %+v, want Music/external", res)
	}
}

func TestResolve_KeywordSpecialCharacters(t *testing.T) {
	meta := Metadata{Title: "learning node.js today"}
	settings := config.Settings{
		AICategoryDetection: true,
		CategoryKeywords:    keywords("Tech", []string{"node.js"}),
	}

	if got := Resolve(meta, settings, ""); got != "Tech" {
		t.Errorf("Resolve() = %q, want Tech", got)
	}

	meta.Title = "learning nodexjs today"
	if got := Resolve(meta, settings, ""); got != "Other" {
		t.Errorf("Resolve() = %q, want Other (dot must be literal)", got)
	}
}

func TestResolve_ExternalMapping(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Science & Technology", "Tech"},
		{"news & politics", "News"},
		{" Gaming ", "Gaming"},
		{"Comedy", "Entertainment"},
		{"Unknown Label", "Other"},
		{"", "Other"},
	}
	settings := config.Settings{}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := Resolve(Metadata{ExternalCategory: tt.label}, settings, ""); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_ConfiguredFallback(t *testing.T) {
	settings := config.Settings{FallbackCategory: "Misc"}

	res := Explain(Metadata{}, settings, "")
	if res.Category != "Misc" || res.Source != SourceFallback {
		t.Errorf("Explain() = %+v, want Misc/fallback", res)
	}
}

func TestResolve_NilKeywordMap(t *testing.T) {
	settings := config.Settings{AICategoryDetection: true}

	if got := Resolve(Metadata{Title: "anything"}, settings, ""); got != "Other" {
		t.Errorf("Resolve() = %q, want Other", got)
	}
}

func TestScores(t *testing.T) {
	meta := Metadata{Title: "Song song SONG", Keywords: []string{"fortnite"}}

	scores := Scores(meta, baseSettings())
	if len(scores) != 2 {
		t.Fatalf("len(scores) = %d, want 2", len(scores))
	}
	if scores[0].Category != "Gaming" || scores[0].Score != 1 {
		t.Errorf("scores[0] = %+v, want Gaming/1", scores[0])
	}
	if scores[1].Category != "Music" || scores[1].Score != 3 {
		t.Errorf("scores[1] = %+v, want Music/3", scores[1])
	}
}

func TestResolve_EndToEndExample(t *testing.T) {
	settings := config.Settings{
		AICategoryDetection: true,
		CategoryKeywords:    keywords("Gaming", []string{"fortnite"}),
	}
	meta := Metadata{Title: "Epic Fortnite Wins", Channel: ""}

	if got := Resolve(meta, settings, ""); got != "Gaming" {
		t.Errorf("Resolve() = %q, want Gaming", got)
	}
}

func TestKeywordPattern_CompiledOnce(t *testing.T) {
	first := keywordPattern("speedrun")
	if second := keywordPattern("speedrun"); first != second {
		t.Error("keywordPattern compiled the same keyword twice")
	}
	if keywordPattern("speedrun") == keywordPattern("boss") {
		t.Error("different keywords share a pattern")
	}

	meta := Metadata{Title: "Speedrun any% speedrun"}
	settings := config.Settings{
		AICategoryDetection: true,
		CategoryKeywords:    keywords("Gaming", []string{"speedrun"}),
	}
	for i := 0; i < 3; i++ {
		if got := Explain(meta, settings, ""); got.Category != "Gaming" || got.Score != 2 {
			t.Errorf("Explain() = %+v, want Gaming with score 2", got)
		}
	}
}
