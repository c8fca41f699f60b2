// Package console renders run progress for humans: a panel per phase,
// one line per planning agent and a closing summary.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"ideenfinder/pkg/fanout"
	"ideenfinder/pkg/spec"
)

type styles struct {
	panel   lipgloss.Style
	title   lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	summary lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#999999")),
		summary: r.NewStyle().Border(lipgloss.DoubleBorder()).Padding(0, 1),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
	}
}

// Console writes progress to out and reads answers from in.
// It is safe for concurrent use by the fan-out observer callbacks.
type Console struct {
	out         io.Writer
	in          *bufio.Reader
	interactive bool
	st          styles
	mu          sync.Mutex
}

// New creates a console. It is interactive when both in and out are terminals.
func New(out io.Writer, in io.Reader) *Console {
	return &Console{
		out:         out,
		in:          bufio.NewReader(in),
		interactive: isTerminal(out) && isTerminal(in),
		st:          newStyles(lipgloss.NewRenderer(out)),
	}
}

// Stdio returns a console on the process's standard streams.
func Stdio() *Console {
	return New(os.Stdout, os.Stdin)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether prompts can be shown.
func (c *Console) Interactive() bool {
	return c.interactive
}

// SetInteractive overrides terminal detection.
func (c *Console) SetInteractive(v bool) {
	c.interactive = v
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}

// Banner prints the program header.
func (c *Console) Banner(version string) {
	c.println(c.st.title.Render("Ideenfinder " + version))
}

// Info prints a plain line.
func (c *Console) Info(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// PhaseStarted prints the panel announcing a phase.
func (c *Console) PhaseStarted(phase int, title string) {
	c.println(c.st.panel.Render(c.st.title.Render(fmt.Sprintf("Phase %d", phase)) + "  " + title))
}

// PhaseFinished prints the outcome line of a phase.
func (c *Console) PhaseFinished(phase int, err error, d time.Duration) {
	if err != nil {
		c.println(fmt.Sprintf("%s Phase %d failed: %v", c.st.fail.Render("✗"), phase, err))
		return
	}
	c.println(fmt.Sprintf("%s Phase %d done %s", c.st.ok.Render("✓"), phase, c.st.muted.Render(formatDuration(d))))
}

// TaskStarted implements fanout.Observer.
func (c *Console) TaskStarted(label spec.Label) {
	c.println(fmt.Sprintf("  • %s working...", label.AgentName()))
}

// TaskFinished implements fanout.Observer.
func (c *Console) TaskFinished(label spec.Label, outcome fanout.Outcome) {
	if !outcome.OK() {
		c.println(fmt.Sprintf("  %s %s failed: %v", c.st.fail.Render("✗"), label.AgentName(), outcome.Err))
		return
	}
	c.println(fmt.Sprintf("  %s %s done %s", c.st.ok.Render("✓"), label.AgentName(), c.st.muted.Render(formatDuration(outcome.Duration))))
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(msg string) {
	c.println(c.st.warn.Render("! " + msg))
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("(%.1fs)", d.Seconds())
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	OutputDir    string
	Files        map[string]string
	ArchonURL    string
	Placeholders []spec.Label
	Duration     time.Duration
}

// Success prints the closing summary of a successful run.
func (c *Console) Success(s Summary) {
	var b strings.Builder
	b.WriteString(c.st.ok.Render("Analysis complete") + " " + c.st.muted.Render(formatDuration(s.Duration)) + "\n\n")
	b.WriteString("Generated files:\n")
	formats := make([]string, 0, len(s.Files))
	for f := range s.Files {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		fmt.Fprintf(&b, "  - %s\n", s.Files[f])
	}
	fmt.Fprintf(&b, "\nOutput directory: %s", s.OutputDir)
	if s.ArchonURL != "" {
		fmt.Fprintf(&b, "\nArchon project: %s", s.ArchonURL)
	}
	if len(s.Placeholders) > 0 {
		names := make([]string, len(s.Placeholders))
		for i, l := range s.Placeholders {
			names[i] = string(l)
		}
		fmt.Fprintf(&b, "\n%s", c.st.warn.Render("Incomplete sections: "+strings.Join(names, ", ")))
	}
	b.WriteString("\n\nNext steps:\n")
	b.WriteString("  1. Review the Markdown report\n")
	if s.ArchonURL == "" {
		b.WriteString("  2. Import archon-import.json with `ideenfinder publish " + s.OutputDir + "`\n")
	} else {
		b.WriteString("  2. Refine the generated tasks in Archon\n")
	}
	b.WriteString("  3. Start building the MVP features")
	c.println(c.st.summary.Render(b.String()))
}

// Failure prints the failing phase with a corrective tip.
func (c *Console) Failure(phase string, err error, tip string) {
	var b strings.Builder
	b.WriteString(c.st.fail.Render("Analysis failed"))
	if phase != "" {
		b.WriteString(" in " + phase)
	}
	fmt.Fprintf(&b, "\n%v", err)
	if tip != "" {
		b.WriteString("\n\nTip: " + tip)
	}
	c.println(c.st.summary.Render(b.String()))
}

// Table prints rows under a header row.
func (c *Console) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(c.st.muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.st.header
			}
			return c.st.cell
		})
	c.println(t.String())
}

// Prompt asks a question and returns the trimmed answer.
func (c *Console) Prompt(question string) (string, error) {
	c.mu.Lock()
	_, _ = fmt.Fprint(c.out, question+" ")
	c.mu.Unlock()

	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. An empty answer picks the default.
func (c *Console) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	answer, err := c.Prompt(question + " " + hint)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return defaultYes, nil
	case "y", "yes", "j", "ja":
		return true, nil
	default:
		return false, nil
	}
}
