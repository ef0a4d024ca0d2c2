package spotlight

import (
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Item is a spotlight entry returned to the dashboard's command palette.
type Item struct {
	Label string `json:"label"`
	Link  string `json:"link"`
	Icon  string `json:"icon,omitempty"`
}

func NewQuickLink(icon, label, link string) *QuickLink {
	return &QuickLink{label: label, icon: icon, link: link}
}

type QuickLink struct {
	label    string
	icon     string
	link     string
	keywords []string
}

// WithKeywords adds extra search terms that match the link besides its label.
func (i *QuickLink) WithKeywords(words ...string) *QuickLink {
	i.keywords = append(i.keywords, words...)
	return i
}

func (i *QuickLink) Item() Item {
	return Item{Label: i.label, Link: i.link, Icon: i.icon}
}

type QuickLinks struct {
	mu    sync.RWMutex
	items []*QuickLink
}

// Find ranks quick links against q; an empty query returns every link in registration order.
func (ql *QuickLinks) Find(q string) []Item {
	ql.mu.RLock()
	defer ql.mu.RUnlock()
	if len(ql.items) == 0 {
		return nil
	}
	if q == "" {
		result := make([]Item, 0, len(ql.items))
		for _, link := range ql.items {
			result = append(result, link.Item())
		}
		return result
	}

	words := make([]string, 0, len(ql.items))
	owners := make([]int, 0, len(ql.items))
	for idx, link := range ql.items {
		words = append(words, link.label)
		owners = append(owners, idx)
		for _, kw := range link.keywords {
			words = append(words, kw)
			owners = append(owners, idx)
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(q, words)
	sort.Sort(ranks)

	seen := make(map[int]bool, len(ranks))
	result := make([]Item, 0, len(ranks))
	for _, rank := range ranks {
		owner := owners[rank.OriginalIndex]
		if seen[owner] {
			continue
		}
		seen[owner] = true
		result = append(result, ql.items[owner].Item())
	}
	return result
}

func (ql *QuickLinks) Add(links ...*QuickLink) {
	ql.mu.Lock()
	defer ql.mu.Unlock()
	ql.items = append(ql.items, links...)
}
