package tui

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"querylite/internal/query"
	"querylite/pkg/types"
)

// title cases a post title. Casers keep state, so each call gets its own.
func title(s string) string { return cases.Title(language.English).String(s) }

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	switch m.view {
	case viewList:
		b.WriteString(m.styles.Title.Render("Posts"))
		b.WriteString("\n")
		b.WriteString(m.listBody())
	case viewPost:
		b.WriteString(m.styles.Muted.Render("← Back"))
		b.WriteString("\n\n")
		b.WriteString(m.postBody())
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// statusLine renders the loading and error states shared by both views.
// ok is false when the caller should render data.
func (m Model) statusLine() (string, bool) {
	if m.attachErr != nil {
		return m.styles.Error.Render("Error: " + m.attachErr.Error()), true
	}
	switch m.state.Status {
	case query.StatusLoading:
		return m.spinner.View() + " Loading...", true
	case query.StatusError:
		msg := "unknown error"
		if m.state.Err != nil {
			msg = m.state.Err.Error()
		}
		return m.styles.Error.Render("Error: " + msg), true
	}
	return "", false
}

func (m Model) listBody() string {
	if line, done := m.statusLine(); done {
		return line
	}
	var b strings.Builder
	for i, p := range postsOf(m.state) {
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + title(p.Title)))
		} else {
			b.WriteString(m.styles.Item.Render(title(p.Title)))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.fetchingLine())
	return b.String()
}

func (m Model) postBody() string {
	if line, done := m.statusLine(); done {
		return line
	}
	p, ok := m.state.Data.(types.Post)
	if !ok {
		return m.styles.Error.Render(fmt.Sprintf("Error: unexpected data %T", m.state.Data))
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(title(p.Title)))
	b.WriteString("\n")
	b.WriteString(m.styles.Body.Render(p.Body))
	b.WriteString("\n")
	b.WriteString(m.fetchingLine())
	return b.String()
}

func (m Model) fetchingLine() string {
	if m.state.IsFetching {
		return m.styles.Muted.Render("Updating in background...")
	}
	return " "
}
