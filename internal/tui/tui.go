// Package tui is a terminal feed browser over the ranking engine: browse
// the personalized feed, open articles, and send feedback with single keys.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ownnews/internal/core"
	"ownnews/internal/engine"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	reasonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1)
)

type feedLoadedMsg struct {
	articles []core.RankedArticle
	err      error
}

type feedbackSentMsg struct {
	label string
	err   error
}

type model struct {
	eng         *engine.Engine
	filter      float64
	topN        int
	articles    []core.RankedArticle
	selectedIdx int
	status      string
	loading     bool
	width       int
	height      int
	quitting    bool
}

// NewModel builds the initial TUI state; the feed loads on startup.
func NewModel(eng *engine.Engine, filter float64, topN int) model {
	return model{
		eng:     eng,
		filter:  filter,
		topN:    topN,
		loading: true,
		status:  "読み込み中...",
	}
}

func (m model) Init() tea.Cmd {
	return m.loadFeed()
}

func (m model) loadFeed() tea.Cmd {
	eng, filter, topN := m.eng, m.filter, m.topN
	return func() tea.Msg {
		articles, err := eng.RankUnread(context.Background(), filter, topN)
		return feedLoadedMsg{articles: articles, err: err}
	}
}

func (m model) sendFeedback(label string, record func(context.Context, string) error, articleID string) tea.Cmd {
	return func() tea.Msg {
		return feedbackSentMsg{label: label, err: record(context.Background(), articleID)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case feedLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("読み込み失敗: %v", msg.err)
			return m, nil
		}
		m.articles = msg.articles
		m.selectedIdx = 0
		m.status = fmt.Sprintf("%d件の記事", len(m.articles))

	case feedbackSentMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("送信失敗: %v", msg.err)
		} else {
			m.status = msg.label
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if m.selectedIdx < len(m.articles)-1 {
				m.selectedIdx++
			}
		case "r":
			m.loading = true
			m.status = "読み込み中..."
			return m, m.loadFeed()
		case "enter", "v":
			if a, ok := m.selected(); ok {
				return m, m.sendFeedback("閲覧を記録しました", m.eng.RecordView, a.ID)
			}
		case "d":
			if a, ok := m.selected(); ok {
				return m, m.sendFeedback("深掘りを記録しました", m.eng.RecordDeepDive, a.ID)
			}
		case "x":
			if a, ok := m.selected(); ok {
				return m, m.sendFeedback("興味なしを記録しました", m.eng.RecordNotInterested, a.ID)
			}
		}
	}
	return m, nil
}

func (m model) selected() (core.RankedArticle, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.articles) {
		return core.RankedArticle{}, false
	}
	return m.articles[m.selectedIdx], true
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var list strings.Builder
	list.WriteString(titleStyle.Render("今日のフィード") + "\n\n")
	if m.loading {
		list.WriteString("読み込み中...")
	} else if len(m.articles) == 0 {
		list.WriteString("記事がありません")
	} else {
		for i, a := range m.articles {
			line := fmt.Sprintf("  %s", a.Title)
			if i == m.selectedIdx {
				line = selectedStyle.Render(fmt.Sprintf("> %s", a.Title))
			}
			list.WriteString(line + "\n")
		}
	}

	var detail strings.Builder
	if a, ok := m.selected(); ok {
		detail.WriteString(titleStyle.Render(a.Title) + "\n\n")
		detail.WriteString(a.Summary + "\n\n")
		detail.WriteString(reasonStyle.Render(a.Reason) + "\n")
		if a.Similarity > 0 {
			detail.WriteString(reasonStyle.Render(fmt.Sprintf("類似度: %.2f", a.Similarity)) + "\n")
		}
		detail.WriteString(reasonStyle.Render(a.Link))
	}

	paneWidth := m.width/2 - 4
	if paneWidth < 20 {
		paneWidth = 20
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(paneWidth).Render(list.String()),
		paneStyle.Width(paneWidth).Render(detail.String()))

	status := statusStyle.Render(m.status)
	help := helpStyle.Render("[j/k] 移動  [v] 閲覧  [d] 深掘り  [x] 興味なし  [r] 更新  [q] 終了")
	return lipgloss.NewStyle().Margin(1, 2).Render(panes + "\n" + status + "\n" + help)
}

// Start runs the feed browser until the user quits.
func Start(eng *engine.Engine, filter float64, topN int) {
	p := tea.NewProgram(NewModel(eng, filter, topN), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
