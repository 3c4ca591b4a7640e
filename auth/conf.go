package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf holds OAuth2 client-credentials settings for an outbound API, such as
// a spreadsheet gateway sitting in front of the record store.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Configured reports whether enough fields are set to request tokens.
func (c Conf) Configured() bool {
	return c.ClientID != "" && c.TokenURL != ""
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}
