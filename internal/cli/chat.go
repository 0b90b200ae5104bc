package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/sellerapp/shopchat/internal/models"
	"github.com/sellerapp/shopchat/internal/service"
	"github.com/sellerapp/shopchat/internal/store"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat view",
	Long: `Open the interactive chat view on the active session.

Type a query and press Enter to send it. The conversation, including
results, is stored locally and survives restarts.

Examples:
  shopchat chat
  shopchat sessions switch srv-123 && shopchat chat`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	streams := store.NewStreams(appStore)
	defer streams.Close()
	return runChatView(chatSvc, streams)
}

// Theme holds the color scheme for the chat view.
type chatTheme struct {
	User    lipgloss.Color
	Bot     lipgloss.Color
	Pending lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Result  lipgloss.Color
}

var defaultChatTheme = chatTheme{
	User:    lipgloss.Color("#5FAFD7"), // light blue
	Bot:     lipgloss.Color("#00D787"), // green
	Pending: lipgloss.Color("#6C6C6C"), // dim gray
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"),
	Result:  lipgloss.Color("#D7AF5F"), // gold
}

func (t chatTheme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t chatTheme) botStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Bot).Bold(true)
}

func (t chatTheme) pendingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Pending).Italic(true)
}

func (t chatTheme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t chatTheme) resultStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Result)
}

// sessionMsg carries the latest active-session snapshot from the store's
// derived stream into the program.
type sessionMsg *models.ChatSession

// sendDoneMsg signals completion of the outbound send. The outcome is
// already in the store; the UI only re-enables input.
type sendDoneMsg struct{ err error }

// chatModel is the bubbletea model for the chat view. It is a passive
// consumer: all conversation state arrives through the derived stream.
type chatModel struct {
	svc     *service.ChatService
	updates chan *models.ChatSession
	session *models.ChatSession
	input   textinput.Model
	theme   chatTheme
	sending bool
}

func newChatModel(svc *service.ChatService, updates chan *models.ChatSession) chatModel {
	input := textinput.New()
	input.Placeholder = "Type your query..."
	input.Focus()

	return chatModel{
		svc:     svc,
		updates: updates,
		input:   input,
		theme:   defaultChatTheme,
	}
}

// waitForSession blocks on the stream channel and forwards the next
// snapshot.
func waitForSession(updates chan *models.ChatSession) tea.Cmd {
	return func() tea.Msg {
		return sessionMsg(<-updates)
	}
}

func (m chatModel) Init() tea.Cmd {
	return waitForSession(m.updates)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.sending {
				return m, nil
			}
			m.input.SetValue("")
			m.sending = true
			svc := m.svc
			return m, func() tea.Msg {
				return sendDoneMsg{err: svc.Send(context.Background(), query)}
			}
		}

	case sessionMsg:
		m.session = msg
		return m, waitForSession(m.updates)

	case sendDoneMsg:
		// A failed send already appended its error message to the history.
		m.sending = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	var b strings.Builder

	title := "No active session"
	if m.session != nil {
		title = m.session.Title
	}
	b.WriteString(m.theme.hintStyle().Render(fmt.Sprintf("— %s —", title)))
	b.WriteString("\n\n")

	if m.session != nil {
		for _, msg := range m.session.Messages {
			b.WriteString(m.renderMessage(msg))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render("Enter to send · Esc to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m chatModel) renderMessage(msg models.ChatMessage) string {
	var b strings.Builder

	switch msg.Role {
	case models.RoleUser:
		b.WriteString(m.theme.userStyle().Render("you ▸ "))
	default:
		b.WriteString(m.theme.botStyle().Render("bot ▸ "))
	}
	b.WriteString(msg.Text)
	if msg.InFlight != nil && *msg.InFlight {
		b.WriteString(m.theme.pendingStyle().Render("  (sending…)"))
	}
	b.WriteString("\n")

	for _, r := range msg.SearchResults {
		line := fmt.Sprintf("    • %s — %s (%s %s)", r.Name, r.BrandName, r.Price.Currency, r.Price.Value)
		b.WriteString(m.theme.resultStyle().Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// runChatView runs the interactive chat UI until the user quits.
func runChatView(svc *service.ChatService, streams *store.Streams) error {
	updates := make(chan *models.ChatSession, 32)

	// The stream callback runs inside the store's publish path, so it must
	// not block: coalesce by dropping the oldest pending snapshot.
	unsub := streams.CurrentSession(func(s *models.ChatSession) {
		for {
			select {
			case updates <- s:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer unsub()

	p := tea.NewProgram(newChatModel(svc, updates))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
