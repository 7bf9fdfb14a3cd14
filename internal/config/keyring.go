package config

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "Chronicle"

	// KeyringGitHubTokenItem is the key for the GitHub token
	KeyringGitHubTokenItem = "github-token"

	// KeyringAPIKeyItem is the key for the OpenAI API key
	KeyringAPIKeyItem = "openai-api-key"
)

// KeyringManager handles secure credential storage in the OS keychain.
// macOS Keychain, Windows Credential Manager, Linux Secret Service.
type KeyringManager struct{}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{}
}

// SaveGitHubToken stores the GitHub token in the OS keychain
func (km *KeyringManager) SaveGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token); err != nil {
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	return nil
}

// GetGitHubToken retrieves the GitHub token; empty string if not set
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return token, nil
}

// DeleteGitHubToken removes the GitHub token from the keychain
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

// SaveAPIKey stores the OpenAI API key in the OS keychain
func (km *KeyringManager) SaveAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringAPIKeyItem, apiKey); err != nil {
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	return nil
}

// GetAPIKey retrieves the OpenAI API key; empty string if not set
func (km *KeyringManager) GetAPIKey() (string, error) {
	apiKey, err := keyring.Get(KeyringService, KeyringAPIKeyItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return apiKey, nil
}
