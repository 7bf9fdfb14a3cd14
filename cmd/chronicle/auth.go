package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chronicle-dev/chronicle/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials stored in the OS keychain",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token (and optionally an OpenAI key) securely",
	RunE: func(cmd *cobra.Command, args []string) error {
		km := config.NewKeyringManager()

		token, err := promptSecret("GitHub token (input hidden): ")
		if err != nil {
			return err
		}
		if token != "" {
			if err := km.SaveGitHubToken(token); err != nil {
				return err
			}
			logger.Info("GitHub token saved to OS keychain")
		}

		apiKey, err := promptSecret("OpenAI API key (optional, Enter to skip): ")
		if err != nil {
			return err
		}
		if apiKey != "" {
			if err := km.SaveAPIKey(apiKey); err != nil {
				return err
			}
			logger.Info("OpenAI API key saved to OS keychain")
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored GitHub token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.NewKeyringManager().DeleteGitHubToken(); err != nil {
			return err
		}
		logger.Info("GitHub token removed from OS keychain")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		km := config.NewKeyringManager()

		token, _ := km.GetGitHubToken()
		apiKey, _ := km.GetAPIKey()

		fmt.Printf("GitHub token: %s\n", credentialState(token, cfg.API.GitHubToken, "GITHUB_TOKEN"))
		fmt.Printf("OpenAI key:   %s\n", credentialState(apiKey, cfg.API.OpenAIKey, "OPENAI_API_KEY"))
		return nil
	},
}

func credentialState(keychain, configured, envVar string) string {
	switch {
	case configured != "":
		return "configured (config or " + envVar + ")"
	case keychain != "":
		return "stored in OS keychain"
	default:
		return "not set"
	}
}

// promptSecret reads a line without echoing when stdin is a terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	// Piped input (CI, tests)
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
