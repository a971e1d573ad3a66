package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// fileDoneMsg reports one finished file import.
type fileDoneMsg struct {
	file string
	err  error
}

// importModel is the bubbletea model for directory imports.
type importModel struct {
	ctx      context.Context
	platform string
	files    []string
	index    int
	imported int
	failures []string
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
}

func newImportModel(ctx context.Context, platform string, files []string) importModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return importModel{
		ctx:      ctx,
		platform: platform,
		files:    files,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init starts the first import.
func (m importModel) Init() tea.Cmd {
	return tea.Batch(
		m.importNext(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m importModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case fileDoneMsg:
		if msg.err != nil {
			m.failures = append(m.failures, fmt.Sprintf("%s: %v", filepath.Base(msg.file), msg.err))
		} else {
			m.imported++
		}
		m.index++
		if m.index >= len(m.files) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.importNext()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m importModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m importModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	pct := float64(m.index) / float64(len(m.files))
	status := m.theme.statusStyle().Render("[importing]")
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d files", m.index, len(m.files))
	hint := m.theme.hintStyle().Render("Press q to stop")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m importModel) finalView() string {
	var out string
	if m.quitting && !m.done {
		out = m.theme.hintStyle().Render(fmt.Sprintf("\nStopped after %d/%d files.\n", m.index, len(m.files)))
	} else {
		out = m.theme.completedStyle().Render("✓ Import complete") +
			fmt.Sprintf("\n\n  Files imported: %d\n", m.imported)
	}
	if len(m.failures) > 0 {
		out += m.theme.errorStyle().Render(fmt.Sprintf("\nFailures (%d):\n", len(m.failures)))
		for _, f := range m.failures {
			out += fmt.Sprintf("  • %s\n", f)
		}
	}
	return out
}

// importNext imports the next file as a command so Update never blocks.
func (m importModel) importNext() tea.Cmd {
	file := m.files[m.index]
	return func() tea.Msg {
		err := importFileQuiet(m.ctx, m.platform, file)
		return fileDoneMsg{file: file, err: err}
	}
}

// importFileQuiet imports without printing; results surface in the UI.
func importFileQuiet(ctx context.Context, platform, path string) error {
	raw, err := readExport(path)
	if err != nil {
		return err
	}
	_, err = indexer.ImportPayload(ctx, platform, "", raw)
	return err
}

// runImportProgress runs the interactive progress UI over a file list.
func runImportProgress(ctx context.Context, platform string, files []string) error {
	model := newImportModel(ctx, platform, files)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}
	if m, ok := finalModel.(importModel); ok && len(m.failures) > 0 && m.imported == 0 {
		return fmt.Errorf("all %d imports failed", len(m.failures))
	}
	return nil
}
