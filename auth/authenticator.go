package auth

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/exponent-io/jsonpath"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trustd-project/trustd/trustderr"
)

// ValidatedAccessToken is the result of a successful ValidateToken call: the
// token's claims plus its derived, flattened permission set.
type ValidatedAccessToken struct {
	Claims      jwt.MapClaims
	Permissions []string
}

// AuthenticatorClient describes one registered OIDC client: the
// issuer/client_id pair used to route an incoming token to it, the key set
// used to verify its signature, and the scope/group-to-permission mappings
// applied once the token is verified.
//
// Grounded on original_source/common/auth/src/authenticator/mod.rs's
// AuthenticatorClient (provider config, audience, scope_mappings,
// additional_permissions, group_selector, group_mappings).
type AuthenticatorClient struct {
	// Issuer and ClientID identify this client: a token is routed here when
	// its "iss" claim equals Issuer and its "azp" (or, failing that,
	// "client_id") claim equals ClientID.
	Issuer   string
	ClientID string

	// Keyfunc verifies the token's signature, typically KeySet.Keyfunc for
	// an OIDC provider's published JWKS.
	Keyfunc jwt.Keyfunc

	// Audience, if non-empty, must appear in the token's "aud" claim.
	Audience string

	// ScopeMappings rewrites each space-delimited scope the token carries
	// into zero or more permissions. A scope absent from this map passes
	// through unchanged as a single permission.
	ScopeMappings map[string][]string

	// AdditionalPermissions are granted unconditionally to every token this
	// client validates.
	AdditionalPermissions []string

	// GroupSelector is a JSONPath expression evaluated against the token's
	// claims to extract group names, e.g. "$['foo:bar'][*]". Empty disables
	// group-derived permissions entirely.
	GroupSelector string

	// GroupMappings rewrites each extracted group into zero or more
	// permissions, the same passthrough-if-absent rule as ScopeMappings.
	GroupMappings map[string][]string
}

// Authenticator resolves bearer tokens against a fixed set of registered
// OIDC clients.
type Authenticator struct {
	Clients []AuthenticatorClient
}

// findClient base64-decodes the token payload without verifying its
// signature, then selects the unique registered client whose (issuer,
// client_id) match the token's (iss, azp-or-client_id).
func (a *Authenticator) findClient(tokenString string) (*AuthenticatorClient, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Unauthorized, "findClient", "decode token payload", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, trustderr.New(trustderr.Unauthorized, "findClient", "token carries no claim set")
	}

	iss, _ := claims["iss"].(string)
	clientID, _ := claims["azp"].(string)
	if clientID == "" {
		clientID, _ = claims["client_id"].(string)
	}
	if iss == "" || clientID == "" {
		return nil, trustderr.New(trustderr.Unauthorized, "findClient", "token carries no issuer/client_id")
	}

	for i := range a.Clients {
		c := &a.Clients[i]
		if c.Issuer == iss && c.ClientID == clientID {
			return c, nil
		}
	}
	return nil, trustderr.New(trustderr.Unauthorized, "findClient", "no client registered for this issuer/client_id")
}

// ValidateToken runs the full authentication pipeline: resolve the client
// from the unverified payload, verify the signature and standard claims
// against that client, then derive the permission set.
func (a *Authenticator) ValidateToken(tokenString string) (ValidatedAccessToken, error) {
	client, err := a.findClient(tokenString)
	if err != nil {
		return ValidatedAccessToken{}, err
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithIssuedAt()}
	if client.Audience != "" {
		opts = append(opts, jwt.WithAudience(client.Audience))
	}
	parser := jwt.NewParser(opts...)

	token, err := parser.Parse(tokenString, client.Keyfunc)
	if err != nil {
		return ValidatedAccessToken{}, trustderr.Wrap(trustderr.Unauthorized, "ValidateToken", "signature/claim validation failed", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ValidatedAccessToken{}, trustderr.New(trustderr.Unauthorized, "ValidateToken", "token not valid")
	}

	return client.convertToken(claims), nil
}

// convertToken derives the flattened permission set: mapped scopes, plus
// the client's unconditional extras, plus mapped groups when a group
// selector is configured.
func (c *AuthenticatorClient) convertToken(claims jwt.MapClaims) ValidatedAccessToken {
	var scope string
	if s, ok := claims["scope"].(string); ok {
		scope = s
	}

	permissions := mapScopes(scope, c.ScopeMappings)
	permissions = append(permissions, c.AdditionalPermissions...)
	if c.GroupSelector != "" {
		groups := extractGroups(claims, c.GroupSelector)
		permissions = append(permissions, mapGroups(groups, c.GroupMappings)...)
	}

	return ValidatedAccessToken{Claims: claims, Permissions: permissions}
}

// mapScopes splits scopes on whitespace and rewrites each one through
// mappings; a scope absent from mappings passes through unchanged.
func mapScopes(scopes string, mappings map[string][]string) []string {
	if scopes == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Fields(scopes) {
		if mapped, ok := mappings[s]; ok {
			out = append(out, mapped...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// mapGroups rewrites each group through mappings; a group absent from
// mappings passes through unchanged as its own name.
func mapGroups(groups []string, mappings map[string][]string) []string {
	var out []string
	for _, g := range groups {
		if mapped, ok := mappings[g]; ok {
			out = append(out, mapped...)
			continue
		}
		out = append(out, g)
	}
	return out
}

// extractGroups evaluates selector, a JSONPath expression, against claims
// and collects every string result, e.g. selector "$['foo:bar'][*]" against
// claims containing "foo:bar": ["manager","reader"] yields those two
// strings.
func extractGroups(claims jwt.MapClaims, selector string) []string {
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil
	}
	paths, err := jsonpath.ParsePaths(selector)
	if err != nil || len(paths) == 0 {
		return nil
	}
	args := make([]interface{}, len(paths[0]))
	for i, elem := range paths[0] {
		args[i] = elem
	}

	dec := jsonpath.NewDecoder(bytes.NewReader(raw))
	var groups []string
	for {
		if _, err := dec.SeekTo(args...); err != nil {
			break
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			break
		}
		if s, ok := v.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}
