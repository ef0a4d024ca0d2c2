package document

import (
	"strings"
)

// JobNode is a job in the documents tree. Documents stay nil until the node is expanded.
type JobNode struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Status    string         `json:"status,omitempty"`
	Record    map[string]any `json:"-"`
	Expanded  bool           `json:"expanded"`
	Documents []Document     `json:"documents,omitempty"`
}

type Group struct {
	JobType       string    `json:"jobType"`
	Title         string    `json:"title"`
	Icon          string    `json:"icon,omitempty"`
	DocumentsType string    `json:"documentsType"`
	SearchFields  []string  `json:"-"`
	Jobs          []JobNode `json:"jobs"`
}

type Tree struct {
	ClientID string  `json:"clientId"`
	Groups   []Group `json:"groups"`
}

type Filter struct {
	Query    string
	JobType  string
	Category string
}

// Apply returns a filtered copy of the tree. The query matches case-insensitively against
// each type's search fields; the category narrows documents inside expanded jobs.
func (t *Tree) Apply(f Filter) *Tree {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := &Tree{ClientID: t.ClientID, Groups: make([]Group, 0, len(t.Groups))}
	for _, g := range t.Groups {
		if f.JobType != "" && f.JobType != "all" && g.JobType != f.JobType {
			continue
		}
		ng := g
		ng.Jobs = make([]JobNode, 0, len(g.Jobs))
		for _, job := range g.Jobs {
			if q != "" && !matches(job, g.SearchFields, q) {
				continue
			}
			if job.Documents != nil {
				job.Documents = ByCategory(job.Documents, f.Category)
			}
			ng.Jobs = append(ng.Jobs, job)
		}
		out.Groups = append(out.Groups, ng)
	}
	return out
}

func matches(job JobNode, fields []string, q string) bool {
	if strings.Contains(strings.ToLower(job.Label), q) {
		return true
	}
	for _, name := range fields {
		if strings.Contains(strings.ToLower(str(job.Record[name])), q) {
			return true
		}
	}
	return false
}

// ByCategory keeps the documents of one category; an empty or "all" category keeps everything.
func ByCategory(docs []Document, category string) []Document {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return docs
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if strings.EqualFold(d.Category, category) {
			out = append(out, d)
		}
	}
	return out
}
