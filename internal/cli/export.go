package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sellerapp/shopchat/internal/models"
	"github.com/spf13/cobra"
)

var (
	exportSession string
	exportAll     bool
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export chat transcripts to Markdown files",
	Long: `Export chat transcripts to Markdown files for backup or sharing.

By default the active session is exported. Use --session to pick another
one, or --all for every session.

Examples:
  shopchat export ./transcripts
  shopchat export ./transcripts --session srv-123
  shopchat export ./transcripts --all`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSession, "session", "", "export this session id")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every session")
}

func runExport(cmd *cobra.Command, args []string) error {
	exportPath := args[0]
	state := appStore.Current()

	var sessions []models.ChatSession
	switch {
	case exportAll:
		sessions = state.Sessions
	case exportSession != "":
		sess := state.Session(exportSession)
		if sess == nil {
			return fmt.Errorf("session not found: %s", exportSession)
		}
		sessions = []models.ChatSession{*sess}
	default:
		sess := state.ActiveSession()
		if sess == nil {
			return fmt.Errorf("no active session")
		}
		sessions = []models.ChatSession{*sess}
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions to export.")
		return nil
	}

	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	exported := 0
	for _, sess := range sessions {
		filename := filepath.Join(exportPath, transcriptFilename(sess))
		if err := os.WriteFile(filename, []byte(renderTranscript(sess)), 0644); err != nil {
			fmt.Printf("Warning: failed to write %s: %v\n", filename, err)
			continue
		}
		exported++

		if verbose {
			fmt.Printf("  Exported: %s\n", filename)
		}
	}

	fmt.Printf("Exported %d transcripts to %s\n", exported, exportPath)
	return nil
}

// transcriptFilename derives a filesystem-safe name from the session id.
func transcriptFilename(sess models.ChatSession) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, sess.ID)
	return safe + ".md"
}

func renderTranscript(sess models.ChatSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, `---
id: %s
title: %s
created_at: %s
last_updated_at: %s
messages: %d
---

# %s

`, sess.ID, sess.Title,
		sess.CreatedAt.Format("2006-01-02 15:04:05"),
		sess.LastUpdatedAt.Format("2006-01-02 15:04:05"),
		len(sess.Messages), sess.Title)

	for _, msg := range sess.Messages {
		speaker := "Bot"
		if msg.Role == models.RoleUser {
			speaker = "You"
		}
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", speaker, msg.Timestamp.Format("15:04:05"), msg.Text)

		for _, r := range msg.SearchResults {
			fmt.Fprintf(&b, "- %s — %s (%s %s)\n", r.Name, r.BrandName, r.Price.Currency, r.Price.Value)
		}
		if len(msg.SearchResults) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}
