// Package report renders a finished analysis run — its findings, summary
// counts, and health score — into one of the output formats the CLI
// exposes. It follows the same small-formatter-with-a-dispatch-method
// shape as the teacher's internal/display.TreeFormatter: one options
// struct, one Format entry point, one method per format underneath.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/scorer"
)

// Format is one of the CLI's supported --format values.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Options controls rendering independent of format: severity floor,
// pagination, and emoji use in the text renderer (--no-emoji).
type Options struct {
	Format       Format
	MinSeverity  graphmodel.Severity
	Page         int // 1-based; 0 means "all"
	PerPage      int
	NoEmoji      bool
	Warnings     []string
}

// Result is everything a render pass needs: the full finding set (Options
// filters/paginates it), the computed score, and repository path for
// report headers.
type Result struct {
	RepoPath string
	Findings []graphmodel.Finding
	Score    scorer.ScoreBreakdown
}

// Render dispatches to the formatter named by opts.Format. An empty value
// selects text; an unrecognised value returns an error.
func Render(res Result, opts Options) (string, error) {
	filtered := filterAndPaginate(res.Findings, opts)

	switch opts.Format {
	case FormatJSON:
		return renderJSON(res, filtered, opts)
	case FormatSARIF:
		return renderSARIF(res, filtered), nil
	case FormatHTML:
		return renderHTML(res, filtered, opts), nil
	case FormatMarkdown:
		return renderMarkdown(res, filtered, opts), nil
	case FormatText, "":
		return renderText(res, filtered, opts), nil
	default:
		return "", fmt.Errorf("report: unknown format %q", opts.Format)
	}
}

func filterAndPaginate(findings []graphmodel.Finding, opts Options) []graphmodel.Finding {
	var kept []graphmodel.Finding
	for _, f := range findings {
		if f.Severity < opts.MinSeverity {
			continue
		}
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Severity != kept[j].Severity {
			return kept[i].Severity > kept[j].Severity
		}
		return kept[i].ID < kept[j].ID
	})

	if opts.Page <= 0 || opts.PerPage <= 0 {
		return kept
	}
	start := (opts.Page - 1) * opts.PerPage
	if start >= len(kept) {
		return nil
	}
	end := start + opts.PerPage
	if end > len(kept) {
		end = len(kept)
	}
	return kept[start:end]
}

func severityEmoji(sev graphmodel.Severity) string {
	switch sev {
	case graphmodel.SeverityCritical:
		return "\U0001F534" // red circle
	case graphmodel.SeverityHigh:
		return "\U0001F7E0" // orange circle
	case graphmodel.SeverityMedium:
		return "\U0001F7E1" // yellow circle
	case graphmodel.SeverityLow:
		return "\U0001F7E2" // green circle
	default:
		return "⚪" // white circle
	}
}

func renderText(res Result, findings []graphmodel.Finding, opts Options) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "repotoire analysis: %s\n", res.RepoPath)
	fmt.Fprintf(&sb, "health score: %.1f (%s)\n\n", res.Score.OverallScore, res.Score.Grade)

	if len(findings) == 0 {
		sb.WriteString("no findings at or above the requested severity.\n")
		return sb.String()
	}

	for _, f := range findings {
		prefix := strings.ToUpper(f.Severity.String())
		if !opts.NoEmoji {
			prefix = severityEmoji(f.Severity) + " " + prefix
		}
		fmt.Fprintf(&sb, "[%s] %s\n", prefix, f.Title)
		fmt.Fprintf(&sb, "  %s:%d  (%s, %s)\n", firstFile(f), f.LineStart, f.Detector, f.Category)
		if f.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", f.Description)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "%d finding(s)\n", len(findings))
	for _, w := range opts.Warnings {
		fmt.Fprintf(&sb, "warning: %s\n", w)
	}
	return sb.String()
}

func firstFile(f graphmodel.Finding) string {
	if v := f.FirstFile(); v != "" {
		return v
	}
	return "?"
}

type jsonReport struct {
	RepoPath string                `json:"repo_path"`
	Score    scorer.ScoreBreakdown `json:"score"`
	Findings []graphmodel.Finding  `json:"findings"`
	Warnings []string              `json:"warnings,omitempty"`
}

func renderJSON(res Result, findings []graphmodel.Finding, opts Options) (string, error) {
	out := jsonReport{
		RepoPath: res.RepoPath,
		Score:    res.Score,
		Findings: findings,
		Warnings: opts.Warnings,
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal json: %w", err)
	}
	return string(b), nil
}

func renderMarkdown(res Result, findings []graphmodel.Finding, opts Options) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# repotoire analysis: %s\n\n", res.RepoPath)
	fmt.Fprintf(&sb, "**Health score:** %.1f (%s)\n\n", res.Score.OverallScore, res.Score.Grade)
	sb.WriteString("| Severity | Detector | Title | Location |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s:%d |\n",
			strings.ToUpper(f.Severity.String()), f.Detector, f.Title, firstFile(f), f.LineStart)
	}
	return sb.String()
}

func renderHTML(res Result, findings []graphmodel.Finding, opts Options) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<html><head><title>repotoire: %s</title></head><body>\n", res.RepoPath)
	fmt.Fprintf(&sb, "<h1>repotoire analysis: %s</h1>\n", res.RepoPath)
	fmt.Fprintf(&sb, "<p>Health score: %.1f (%s)</p>\n<ul>\n", res.Score.OverallScore, res.Score.Grade)
	for _, f := range findings {
		fmt.Fprintf(&sb, "<li><b>[%s]</b> %s &mdash; %s:%d (%s)</li>\n",
			strings.ToUpper(f.Severity.String()), f.Title, firstFile(f), f.LineStart, f.Detector)
	}
	sb.WriteString("</ul>\n</body></html>\n")
	return sb.String()
}

// sarifDocument is a minimal SARIF 2.1.0 log: one run, one rule per
// detector, one result per finding. It carries enough structure for a
// GitHub code-scanning upload without attempting full SARIF fidelity
// (graphs, code flows, fixes), which spec.md's CLI surface never asks for.
type sarifDocument struct {
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	Runs    []sarifRun  `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion            `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func sarifLevel(sev graphmodel.Severity) string {
	switch sev {
	case graphmodel.SeverityCritical, graphmodel.SeverityHigh:
		return "error"
	case graphmodel.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func renderSARIF(res Result, findings []graphmodel.Finding) string {
	rulesSeen := map[string]bool{}
	var rules []sarifRule
	var results []sarifResult

	for _, f := range findings {
		if !rulesSeen[f.Detector] {
			rulesSeen[f.Detector] = true
			rules = append(rules, sarifRule{ID: f.Detector, Name: f.Detector})
		}
		results = append(results, sarifResult{
			RuleID:  f.Detector,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.Description},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: firstFile(f)},
					Region:           sarifRegion{StartLine: f.LineStart},
				},
			}},
		})
	}

	doc := sarifDocument{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "repotoire", Rules: rules}},
			Results: results,
		}},
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
