package commands

import (
	"strconv"

	"github.com/haivivi/topograph/pkg/graph"
	"github.com/haivivi/topograph/pkg/match"
	"github.com/haivivi/topograph/pkg/rca"
)

// The types below wrap command results for --format table. Each has the
// same shape as the value it wraps, so YAML and JSON output are unchanged.

type documentView graph.Document

func (documentView) TableHeader() []string {
	return []string{"KIND", "ID", "CATEGORY/LABEL", "TYPE/ENDPOINTS"}
}

func (d documentView) TableRows() [][]string {
	rows := make([][]string, 0, len(d.Vertices)+len(d.Edges))
	for _, v := range d.Vertices {
		rows = append(rows, []string{"vertex", v.ID, v.Category, v.Type})
	}
	for _, e := range d.Edges {
		rows = append(rows, []string{"edge", e.ID, e.Label, e.Source + " -> " + e.Target})
	}
	return rows
}

type resultsView []match.Result

func (resultsView) TableHeader() []string { return []string{"#", "TEMPLATE", "ASSIGNMENT"} }

func (r resultsView) TableRows() [][]string {
	rows := make([][]string, len(r))
	for i, res := range r {
		rows[i] = []string{strconv.Itoa(i + 1), res.Template, res.Key()}
	}
	return rows
}

type findingsView []rca.Finding

func (findingsView) TableHeader() []string {
	return []string{"ID", "TEMPLATE", "TRIGGER", "ASSIGNMENT"}
}

func (f findingsView) TableRows() [][]string {
	rows := make([][]string, len(f))
	for i, fd := range f {
		rows[i] = []string{fd.ID.String()[:8], fd.Template, fd.Trigger, fd.Result.Key()}
	}
	return rows
}

type templateInfo struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Entities      int    `json:"entities" yaml:"entities"`
	Relationships int    `json:"relationships" yaml:"relationships"`
}

type templatesView []templateInfo

func (templatesView) TableHeader() []string {
	return []string{"NAME", "ENTITIES", "RELATIONSHIPS", "DESCRIPTION"}
}

func (t templatesView) TableRows() [][]string {
	rows := make([][]string, len(t))
	for i, ti := range t {
		rows[i] = []string{ti.Name, strconv.Itoa(ti.Entities), strconv.Itoa(ti.Relationships), ti.Description}
	}
	return rows
}

type contextInfo struct {
	Current   bool   `json:"current" yaml:"current"`
	Name      string `json:"name" yaml:"name"`
	Graph     string `json:"graph,omitempty" yaml:"graph,omitempty"`
	Templates string `json:"templates,omitempty" yaml:"templates,omitempty"`
}

type contextsView []contextInfo

func (contextsView) TableHeader() []string { return []string{"CURRENT", "NAME", "GRAPH", "TEMPLATES"} }

func (c contextsView) TableRows() [][]string {
	rows := make([][]string, len(c))
	for i, ci := range c {
		mark := ""
		if ci.Current {
			mark = "*"
		}
		rows[i] = []string{mark, ci.Name, ci.Graph, ci.Templates}
	}
	return rows
}
