package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cyryl1/herb-wise-frontend/internal/config"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
)

var (
	groupStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	idStyle    = lipgloss.NewStyle().Faint(true)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	asstStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	herbStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage stored conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSessionsList(cmd)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print one conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsShow(cmd, args[0])
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsDelete(cmd, args[0])
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// openStoreFromConfig is the shared preamble of the sessions commands.
func openStoreFromConfig() (*session.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	store, _, err := openStore(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	return store, nil
}

func runSessionsList(cmd *cobra.Command) error {
	store, err := openStoreFromConfig()
	if err != nil {
		return err
	}

	summaries := store.Sessions()
	if len(summaries) == 0 {
		cmd.Println("No stored conversations.")
		return nil
	}

	groups := session.GroupByDate(summaries, time.Now())
	for _, g := range []struct {
		label string
		items []session.Summary
	}{
		{"Today", groups.Today},
		{"Yesterday", groups.Yesterday},
		{"Previous 7 days", groups.Previous7Days},
		{"Older", groups.Older},
	} {
		if len(g.items) == 0 {
			continue
		}
		cmd.Println(groupStyle.Render(g.label))
		for _, s := range g.items {
			cmd.Printf("  %s  %s\n", s.Title, idStyle.Render(fmt.Sprintf("(%s, %d messages, %s)",
				s.SessionID, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))))
		}
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, id string) error {
	store, err := openStoreFromConfig()
	if err != nil {
		return err
	}

	record, err := store.Load(id)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", id, err)
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	cmd.Printf("Conversation %s (started %s)\n\n", id, record.CreatedAt.Local().Format("2006-01-02 15:04"))
	for _, m := range record.Messages {
		switch m.Sender {
		case session.SenderUser:
			cmd.Println(userStyle.Render("You:"))
			if m.Text != "" {
				cmd.Println("  " + m.Text)
			}
			if m.Image != "" {
				cmd.Println(idStyle.Render("  [photo attached]"))
			}
		case session.SenderAssistant:
			cmd.Println(asstStyle.Render("HerbWise:"))
			if m.Text != "" {
				out, err := renderer.Render(m.Text)
				if err != nil {
					out = m.Text
				}
				cmd.Print(out)
			}
			if m.HerbInfo != nil {
				cmd.Println(herbStyle.Render(formatHerbInfo(m.HerbInfo)))
			}
		}
		cmd.Println()
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, id string) error {
	store, err := openStoreFromConfig()
	if err != nil {
		return err
	}
	if err := store.Remove(id); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	cmd.Printf("Deleted conversation %s\n", id)
	return nil
}

// formatHerbInfo lays out an identification card for the terminal.
func formatHerbInfo(info *session.HerbInfo) string {
	var b strings.Builder
	b.WriteString(info.Name)
	if info.ScientificName != "" {
		fmt.Fprintf(&b, " (%s)", info.ScientificName)
	}
	if len(info.LocalNames) > 0 {
		fmt.Fprintf(&b, "\nAlso known as: %s", strings.Join(info.LocalNames, ", "))
	}
	for _, sec := range []struct {
		label string
		items []string
	}{
		{"Uses", info.Uses},
		{"Benefits", info.Benefits},
		{"Preparation", info.Preparation},
		{"Safety", info.Safety},
	} {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:", sec.label)
		for _, item := range sec.items {
			fmt.Fprintf(&b, "\n  - %s", item)
		}
	}
	return b.String()
}
