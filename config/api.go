package config

// APIConfig configures the HTTP server.
type APIConfig struct {
	// Address is the listen address, for example ":8080". Empty disables
	// the server.
	Address string `json:"address" validate:"omitempty,hostname_port"`
	// AuditToken protects the audit log endpoint with a bearer token.
	AuditToken string `json:"audit_token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {}
