package controller

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

// progressSteps is how many progress lines SimpleUI prints per run.
const progressSteps = 10

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayRunInfo prints what is about to run.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s", renderRunInfo(info))
}

// DisplayCandidate prints a newly found candidate.
func (s *SimpleUI) DisplayCandidate(ctx context.Context, hit m.Hit) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("candidate %s (seed %s, trial %d, generation %d)\n",
		strconv.Quote(hit.Input), strconv.Quote(hit.Seed), hit.Trial+1, hit.Generation)
}

// DisplayTrialProgress prints roughly every tenth trial and the last one.
func (s *SimpleUI) DisplayTrialProgress(ctx context.Context, done, total, candidates int) {
	if err := ctx.Err(); err != nil {
		return
	}

	step := max(total/progressSteps, 1)
	if done%step != 0 && done != total {
		return
	}

	s.printf("Trial %d/%d, %d candidate(s)\n", done, total, candidates)
}

// DisplayReport prints the candidates of a finished run.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report, path m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderReport(report))

	if path != "" {
		s.printf("Report saved to %s\n", path)
	}

	return nil
}

// DisplayReports prints an overview of stored reports followed by each report.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(reports) == 0 {
		s.printf("No reports found\n")
		return nil
	}

	s.printf("%s", renderReportsOverview(reports))

	for _, report := range reports {
		s.printf("\n%s", renderReport(report))
	}

	return nil
}

// DisplayMutators prints the registered mutators.
func (s *SimpleUI) DisplayMutators(ctx context.Context, mutators []m.MutatorInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderMutators(mutators))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(buf *bytes.Buffer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	return table
}

func renderRunInfo(info RunInfo) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Fuzzing %d seed(s): %d trial(s) x %d generation(s), mutation chance %.2f, special chance %.2f\n",
		len(info.Seeds), info.Config.Trials, info.Config.MutationDepth,
		info.Config.MutationChance, info.Config.SpecialChance)
	fmt.Fprintf(&buf, "Error limit %d, %d worker(s), random seed %d\n",
		info.ErrorLimit, info.Config.Parallel, info.RandSeed)

	names := make([]string, 0, len(info.Mutators))
	for _, mi := range info.Mutators {
		names = append(names, mi.Name)
	}

	fmt.Fprintf(&buf, "Mutators: %v\n", names)

	return buf.String()
}

func renderReport(report m.Report) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run %s (%s, took %s)\n", report.ID,
		report.StartedAt.Format(time.RFC3339), report.Duration.Round(time.Millisecond))

	if report.Cancelled {
		buf.WriteString("Run was cancelled, results are partial\n")
	}

	if len(report.Candidates) == 0 {
		buf.WriteString("No candidates found\n")
		return buf.String()
	}

	table := newTable(&buf, "Candidate", "Seed", "Change", "Hits", "First seen")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})

	for _, c := range report.Candidates {
		table.Append([]string{
			strconv.Quote(c.Input),
			strconv.Quote(c.Seed),
			describeChange(c.Seed, c.Input),
			strconv.FormatUint(c.Hits, 10),
			fmt.Sprintf("trial %d gen %d", c.FirstTrial+1, c.FirstGeneration),
		})
	}

	footer := fmt.Sprintf("%d hit(s)", report.TotalHits)
	if report.Dropped > 0 {
		footer = fmt.Sprintf("%d hit(s), %d dropped", report.TotalHits, report.Dropped)
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(report.Candidates)), "", "", footer, ""})
	table.Render()

	return buf.String()
}

func renderReportsOverview(reports []m.Report) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Run", "Started", "Seeds", "Trials", "Candidates", "Hits")

	for _, r := range reports {
		table.Append([]string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			strconv.Itoa(len(r.Seeds)),
			strconv.Itoa(r.Config.Trials),
			strconv.Itoa(len(r.Candidates)),
			strconv.FormatUint(r.TotalHits, 10),
		})
	}

	table.Render()

	return buf.String()
}

func renderMutators(mutators []m.MutatorInfo) string {
	var buf bytes.Buffer

	table := newTable(&buf, "Mutator", "Kind", "Keys")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, mi := range mutators {
		keys := "-"
		if mi.Keys > 0 {
			keys = strconv.Itoa(mi.Keys)
		}

		table.Append([]string{mi.Name, string(mi.Kind), keys})
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(mutators)), "", ""})
	table.Render()

	return buf.String()
}
