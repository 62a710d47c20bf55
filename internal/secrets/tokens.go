package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"talentscout-engine/internal/domain"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "talentscout"
)

// Token resolves a source's API credential. The environment wins over the
// keychain so containers and CI can inject tokens without a keyring; an
// empty result means the source runs unauthenticated.
func Token(src domain.Source) (string, error) {
	if v := strings.TrimSpace(os.Getenv(envVar(src))); v != "" {
		return v, nil
	}

	tok, err := keyring.Get(KeyringService, account(src))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("keyring lookup for %s: %w", src, err)
	}
	return strings.TrimSpace(tok), nil
}

func SetToken(src domain.Source, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account(src), token)
}

func DeleteToken(src domain.Source) error {
	return keyring.Delete(KeyringService, account(src))
}

// GeminiAPIKey resolves the outreach model credential the same way.
func GeminiAPIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv("TALENTSCOUT_GEMINI_API_KEY")); v != "" {
		return v, nil
	}
	tok, err := keyring.Get(KeyringService, "token:gemini")
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("keyring lookup for gemini: %w", err)
	}
	return strings.TrimSpace(tok), nil
}

func account(src domain.Source) string {
	return "token:" + string(src)
}

func envVar(src domain.Source) string {
	s := strings.ToUpper(strings.ReplaceAll(string(src), "-", "_"))
	return "TALENTSCOUT_" + s + "_TOKEN"
}
