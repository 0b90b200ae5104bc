package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sellerapp/shopchat/internal/store"
	"github.com/spf13/cobra"
)

var (
	sessionsForce bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long: `Manage chat sessions.

Subcommands:
  list    List all sessions (default)
  new     Create a session and make it active
  switch  Make a session active
  delete  Delete a session
  reset   Clear the active session's history
  clear   Delete all sessions

Examples:
  shopchat sessions
  shopchat sessions new "Gift ideas"
  shopchat sessions switch srv-123
  shopchat sessions delete srv-123 --force`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a session and make it active",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsNew,
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make a session active",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsSwitch,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Long: `Delete a session and its message history.

If the deleted session was active, the first remaining session becomes
active. Requires confirmation unless --force is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsDelete,
}

var sessionsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the active session's history",
	RunE:  runSessionsReset,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions",
	Long: `Delete every session and its history.

Requires confirmation unless --force is used.`,
	RunE: runSessionsClear,
}

func init() {
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsForce, "force", "f", false, "skip confirmation")
	sessionsClearCmd.Flags().BoolVarP(&sessionsForce, "force", "f", false, "skip confirmation")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsSwitchCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsResetCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
}

// confirm prompts for a yes/no answer on stdin. Returns true when the user
// typed y/yes.
func confirm(prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	state := appStore.Current()

	if len(state.Sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("Sessions (%d):\n\n", len(state.Sessions))
	for _, sess := range state.Sessions {
		activeMark := ""
		if state.CurrentSessionID != nil && sess.ID == *state.CurrentSessionID {
			activeMark = " [active]"
		}
		pendingMark := ""
		if store.IsLocalID(sess.ID) {
			pendingMark = " [unsynced]"
		}
		fmt.Printf("- %s (%s)%s%s\n", sess.Title, sess.ID, activeMark, pendingMark)
		if verbose {
			fmt.Printf("  Messages: %d\n", len(sess.Messages))
			fmt.Printf("  Updated:  %s\n", sess.LastUpdatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) > 0 {
		title = args[0]
	}

	id := appStore.CreateSession(title)
	sess := appStore.Current().Session(id)
	fmt.Printf("Created session: %s (%s)\n", sess.Title, sess.ID)
	return nil
}

func runSessionsSwitch(cmd *cobra.Command, args []string) error {
	id := args[0]

	if err := appStore.SetActiveSession(id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return fmt.Errorf("session not found: %s", id)
		}
		return fmt.Errorf("switch session: %w", err)
	}

	sess := appStore.Current().Session(id)
	fmt.Printf("Active session: %s (%s)\n", sess.Title, sess.ID)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	sess := appStore.Current().Session(id)
	if sess == nil {
		return fmt.Errorf("session not found: %s", id)
	}

	if !sessionsForce {
		ok, err := confirm(fmt.Sprintf("About to delete: %s (%s)\n\nContinue?", sess.Title, sess.ID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	appStore.DeleteSession(id)
	fmt.Printf("Deleted: %s\n", sess.Title)
	return nil
}

func runSessionsReset(cmd *cobra.Command, args []string) error {
	if err := appStore.ResetActiveSessionMessages(); err != nil {
		if errors.Is(err, store.ErrNoActiveSession) {
			return fmt.Errorf("no active session")
		}
		return fmt.Errorf("reset session: %w", err)
	}

	fmt.Println("Active session history cleared.")
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	count := len(appStore.Current().Sessions)

	if !sessionsForce {
		ok, err := confirm(fmt.Sprintf("About to delete all %d sessions.\n\nContinue?", count))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	appStore.ClearSessions()
	fmt.Printf("Deleted %d sessions.\n", count)
	return nil
}
