package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sellerapp/shopchat/internal/auth"
	"github.com/spf13/cobra"
)

var (
	loginTokenFile string
)

var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Sign in with a Google ID token",
	Long: `Sign in with a Google ID token.

The token is verified against Google's published signing keys; the
identity it carries (email, name, locale) is stored with the local state
and sent with every query.

The token can be passed as an argument, via --token-file, or through the
SHOPCHAT_ID_TOKEN environment variable.

Examples:
  shopchat login eyJhbGciOi...
  shopchat login --token-file ~/.config/shopchat/token
  SHOPCHAT_ID_TOKEN=eyJhbGciOi... shopchat login`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored identity",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginTokenFile, "token-file", "", "read the ID token from this file")
}

func readLoginToken(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if loginTokenFile != "" {
		data, err := os.ReadFile(loginTokenFile)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if token := os.Getenv("SHOPCHAT_ID_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token given (pass it as an argument, use --token-file, or set SHOPCHAT_ID_TOKEN)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	token, err := readLoginToken(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	verifier, err := auth.NewJWKSVerifier(ctx, cfg.JWKSURL, logger)
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}
	defer verifier.Close()

	claims, err := verifier.Verify(token)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}

	info := claims.UserInfo()
	appStore.SetUserInfo(info)
	tokens.Set(token)

	fmt.Printf("Signed in as %s (%s)\n", info.Name, info.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	state := appStore.Current()
	if state.UserInfo == nil {
		fmt.Println("Not signed in.")
		return nil
	}

	appStore.ClearUserInfo()
	tokens.Clear()

	fmt.Println("Signed out.")
	return nil
}
