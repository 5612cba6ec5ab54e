package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ClientConfig is the serializable shape of an AuthenticatorClient before
// its JWKS key set has been wired up.
type ClientConfig struct {
	Issuer                string              `json:"issuer"`
	ClientID              string              `json:"client_id"`
	JWKSURL               string              `json:"jwks_url"`
	Audience              string              `json:"audience"`
	ScopeMappings         map[string][]string `json:"scope_mappings"`
	AdditionalPermissions []string            `json:"additional_permissions"`
	GroupSelector         string              `json:"group_selector"`
	GroupMappings         map[string][]string `json:"group_mappings"`
}

const (
	envClients     = "TRUSTD_OIDC_CLIENTS"
	defaultJWKSTTL = 10 * time.Minute
)

// ClientsFromEnv reads a JSON array of ClientConfig from TRUSTD_OIDC_CLIENTS
// and builds the corresponding AuthenticatorClients, each backed by its own
// cached KeySet fetching JWKSURL. Returns a nil slice, not an error, when
// the env var is unset, so an Authenticator built from it simply accepts
// no tokens.
func ClientsFromEnv() ([]AuthenticatorClient, error) {
	raw := os.Getenv(envClients)
	if raw == "" {
		return nil, nil
	}
	var configs []ClientConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("auth: parse %s: %w", envClients, err)
	}

	clients := make([]AuthenticatorClient, len(configs))
	for i, c := range configs {
		keys := NewKeySet(c.JWKSURL, defaultJWKSTTL)
		clients[i] = AuthenticatorClient{
			Issuer:                c.Issuer,
			ClientID:              c.ClientID,
			Keyfunc:               keys.Keyfunc,
			Audience:              c.Audience,
			ScopeMappings:         c.ScopeMappings,
			AdditionalPermissions: c.AdditionalPermissions,
			GroupSelector:         c.GroupSelector,
			GroupMappings:         c.GroupMappings,
		}
	}
	return clients, nil
}
