package integrations

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ekkle/ekkle-admin/internal/config"
	"github.com/ekkle/ekkle-admin/internal/crypto"
	"github.com/ekkle/ekkle-admin/internal/db/models"
)

// ErrNoCipher is returned when an override carries secrets but no encryption key is configured.
var ErrNoCipher = errors.New("ENCRYPTION_KEY is not configured")

// CredentialsFromConfig maps the environment-provided credentials by provider name.
func CredentialsFromConfig(cfg config.IntegrationsConfig) map[string]Credentials {
	providers := map[string]config.ProviderConfig{
		Stripe:    cfg.Stripe,
		Resend:    cfg.Resend,
		OpenAI:    cfg.OpenAI,
		Evolution: cfg.Evolution,
		Mux:       cfg.Mux,
		Pagarme:   cfg.Pagarme,
		LiveKit:   cfg.LiveKit,
	}
	creds := make(map[string]Credentials, len(providers))
	for name, p := range providers {
		creds[name] = Credentials{BaseURL: p.BaseURL, APIKey: p.APIKey, Secret: p.Secret}
	}
	return creds
}

// mergeOverride layers a stored override on top of env credentials. Non-empty
// override fields win.
func mergeOverride(base Credentials, raw []byte, cipher *crypto.SecretCipher) (Credentials, error) {
	if len(raw) == 0 {
		return base, nil
	}
	var cfg models.IntegrationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return base, fmt.Errorf("failed to decode credential override: %w", err)
	}

	out := base
	if cfg.BaseURL != "" {
		out.BaseURL = cfg.BaseURL
	}
	if cfg.APIKeyEncrypted == "" && cfg.SecretEncrypted == "" {
		return out, nil
	}
	if cipher == nil {
		return base, ErrNoCipher
	}
	if cfg.APIKeyEncrypted != "" {
		key, err := cipher.Open(cfg.APIKeyEncrypted)
		if err != nil {
			return base, fmt.Errorf("failed to decrypt api key override: %w", err)
		}
		out.APIKey = key
	}
	if cfg.SecretEncrypted != "" {
		secret, err := cipher.Open(cfg.SecretEncrypted)
		if err != nil {
			return base, fmt.Errorf("failed to decrypt secret override: %w", err)
		}
		out.Secret = secret
	}
	return out, nil
}

// sealOverride encrypts the secret halves of an override for storage.
func sealOverride(in Credentials, cipher *crypto.SecretCipher) ([]byte, error) {
	cfg := models.IntegrationConfig{BaseURL: in.BaseURL}
	if in.APIKey != "" || in.Secret != "" {
		if cipher == nil {
			return nil, ErrNoCipher
		}
		var err error
		if cfg.APIKeyEncrypted, err = cipher.Seal(in.APIKey); err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
		if cfg.SecretEncrypted, err = cipher.Seal(in.Secret); err != nil {
			return nil, fmt.Errorf("failed to encrypt secret: %w", err)
		}
	}
	return json.Marshal(cfg)
}
