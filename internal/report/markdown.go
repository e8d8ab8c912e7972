package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/raphaelgruber/jobsurfer/internal/metrics"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// Markdown writes the session report as a Markdown document: summary
// table, candidates sorted by score, and the model usage breakdown.
type Markdown struct{}

// NewMarkdown creates a Markdown report generator.
func NewMarkdown() *Markdown { return &Markdown{} }

// Generate implements Generator.
func (m *Markdown) Generate(w io.Writer, session *models.SearchSession, usage metrics.Snapshot) error {
	var b strings.Builder

	b.WriteString("# Job Search Report\n\n")
	fmt.Fprintf(&b, "Session `%s`, %s to %s.\n\n",
		session.ID,
		session.StartedAt.Format("2006-01-02 15:04:05"),
		session.FinishedAt.Format("15:04:05"))

	b.WriteString("## Summary\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Pages visited | %d |\n", session.Visited)
	fmt.Fprintf(&b, "| Failed visits | %d |\n", session.FailedVisits)
	fmt.Fprintf(&b, "| Relevant postings | %d |\n", session.Relevant)
	fmt.Fprintf(&b, "| Evaluated | %d |\n", session.Evaluated)
	if session.Unevaluated > 0 {
		fmt.Fprintf(&b, "| Skipped (model unavailable) | %d |\n", session.Unevaluated)
	}
	fmt.Fprintf(&b, "| Cost | $%.4f |\n", session.Cost)
	fmt.Fprintf(&b, "| Stopped because | %s |\n\n", session.Reason)

	m.writeCandidates(&b, session.Candidates)
	m.writeUsage(&b, usage)

	_, err := io.WriteString(w, b.String())
	return err
}

func (m *Markdown) writeCandidates(b *strings.Builder, candidates []models.JobCandidate) {
	b.WriteString("## Postings\n\n")
	if len(candidates) == 0 {
		b.WriteString("No relevant postings found.\n\n")
		return
	}

	sorted := append([]models.JobCandidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	for i, c := range sorted {
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, escapePipes(c.Title))
		fmt.Fprintf(b, "- Source: <%s>\n", c.SourceURL)
		fmt.Fprintf(b, "- Score: %.2f (%s tier, %s)\n", c.Score, c.Tier, c.Language)
		if c.Snippet != "" {
			fmt.Fprintf(b, "\n> %s\n", strings.ReplaceAll(c.Snippet, "\n", " "))
		}
		b.WriteString("\n")
	}
}

func (m *Markdown) writeUsage(b *strings.Builder, usage metrics.Snapshot) {
	b.WriteString("## Model Usage\n\n")
	b.WriteString("| Operation | Calls | Avg ms | Input tokens | Output tokens | Cost |\n")
	b.WriteString("|---|---|---|---|---|---|\n")

	rows := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"fetch", usage.Fetch},
		{"prefilter", usage.Prefilter},
		{"evaluate (fast)", usage.EvaluateFast},
		{"evaluate (advanced)", usage.EvaluateAdvanced},
	}
	for _, row := range rows {
		if row.op == nil {
			continue
		}
		fmt.Fprintf(b, "| %s | %d | %.1f | %d | %d | $%.4f |\n",
			row.name, row.op.Count, row.op.AvgTimeMs,
			row.op.TotalInputTokens, row.op.TotalOutputTokens, row.op.TotalCost)
	}
	fmt.Fprintf(b, "\nTotal cost: $%.4f over %.1fs.\n", usage.TotalCost, usage.UptimeSeconds)
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
