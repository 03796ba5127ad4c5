package suggest

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/types"
)

// DefaultLimit caps the emoji suggestion list.
const DefaultLimit = 8

// CatalogEmoji is one entry of the built-in emoji dataset.
type CatalogEmoji struct {
	Label   string   `json:"label"`
	Unicode string   `json:"unicode"`
	Tags    []string `json:"tags,omitempty"`
}

//go:embed emojis.json
var defaultCatalogJSON []byte

var (
	catalogOnce sync.Once
	catalog     []CatalogEmoji
)

// DefaultCatalog returns the embedded emoji dataset.
func DefaultCatalog() []CatalogEmoji {
	catalogOnce.Do(func() {
		if err := json.Unmarshal(defaultCatalogJSON, &catalog); err != nil {
			panic("suggest: bad embedded emoji catalog: " + err.Error())
		}
	})
	return catalog
}

type MatchType string

const (
	MatchPersonal MatchType = "personal"
	MatchDefault  MatchType = "default"
)

// Match is a scored emoji candidate. Emoji is either a types.Emoji
// (personal) or a CatalogEmoji (default).
type Match struct {
	Emoji any
	Score int
	Type  MatchType
}

// EmojiSearch matches a query against the user's custom emojis and
// the default catalog with weighted multi-field scoring.
type EmojiSearch struct {
	users   *store.Users
	catalog []CatalogEmoji
}

func NewEmojiSearch(users *store.Users, catalog []CatalogEmoji) *EmojiSearch {
	return &EmojiSearch{users: users, catalog: catalog}
}

// Search returns up to limit matches sorted by descending score. Ties
// keep catalog order; personal emojis outrank defaults via a flat
// score boost.
func (s *EmojiSearch) Search(query string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var matches []Match
	if s.users != nil {
		for _, emoji := range s.users.Emojis() {
			if score := scorePersonalEmoji(emoji, q); score > 0 {
				matches = append(matches, Match{Emoji: emoji, Score: score + 100, Type: MatchPersonal})
			}
		}
	}

	for _, emoji := range s.catalog {
		if score := scoreDefaultEmoji(emoji, q); score > 0 {
			matches = append(matches, Match{Emoji: emoji, Score: score, Type: MatchDefault})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func scorePersonalEmoji(emoji types.Emoji, query string) int {
	shortcode := emoji.Shortcode

	switch {
	case shortcode == query:
		return 100
	case strings.HasPrefix(shortcode, query):
		return 80
	case strings.Contains(shortcode, query):
		return 40
	}
	return 0
}

func scoreDefaultEmoji(emoji CatalogEmoji, query string) int {
	label := strings.ReplaceAll(strings.ToLower(emoji.Label), " ", "_")
	if label == "" {
		return 0
	}

	switch {
	case label == query:
		return 100
	case strings.HasPrefix(label, query):
		return 80
	case strings.Contains(label, query):
		return 70
	}

	for _, tag := range emoji.Tags {
		if tag == query {
			return 60
		}
	}
	for _, tag := range emoji.Tags {
		if strings.Contains(tag, query) {
			return 30
		}
	}
	return 0
}

// EmojiItems builds the ':' item resolver over an EmojiSearch.
func EmojiItems(search *EmojiSearch) ItemsFunc {
	return func(query string) []any {
		matches := search.Search(query, DefaultLimit)
		items := make([]any, len(matches))
		for i, m := range matches {
			items[i] = m.Emoji
		}
		return items
	}
}

var shortcodeStrip = regexp.MustCompile(`[^a-z0-9_]`)
var shortcodeSpaces = regexp.MustCompile(`\s+`)

// TransformShortcode normalizes user input into a valid custom emoji
// shortcode: lowercase, underscores for spaces, 20 chars max.
func TransformShortcode(input string) string {
	out := strings.ToLower(input)
	out = shortcodeSpaces.ReplaceAllString(out, "_")
	out = shortcodeStrip.ReplaceAllString(out, "")
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}
