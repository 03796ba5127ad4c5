package config

import (
	"fmt"
	"net/url"
)

type Config struct {
	// APIURL is the HTTP collaborator base, e.g. https://host/v1.
	APIURL string
	// GatewayURL is the realtime websocket endpoint.
	GatewayURL string
	// SessionToken authenticates both surfaces.
	SessionToken string
	// DebugAddr serves /debug/vars when non-empty.
	DebugAddr string
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unexpected scheme %q", u.Scheme)
}

func NewConfig(apiURL, gatewayURL, sessionToken, debugAddr string) (*Config, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("api url cannot be empty")
	}
	if err := validateURL(apiURL, "http", "https"); err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("gateway url cannot be empty")
	}
	if err := validateURL(gatewayURL, "ws", "wss"); err != nil {
		return nil, fmt.Errorf("gateway url: %w", err)
	}
	if sessionToken == "" {
		return nil, fmt.Errorf("session token cannot be empty")
	}

	return &Config{
		APIURL:       apiURL,
		GatewayURL:   gatewayURL,
		SessionToken: sessionToken,
		DebugAddr:    debugAddr,
	}, nil
}
