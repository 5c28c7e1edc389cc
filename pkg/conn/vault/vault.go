package vault

import (
	vault "github.com/hashicorp/vault/api"
)

// Connect builds a client for the secret store.
//
// When token is empty, the client falls back to the VAULT_TOKEN
// environment variable as usual.
func Connect(address string, token string) (*vault.Client, error) {
	config := vault.DefaultConfig()
	config.Address = address

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, err
	}
	if token != "" {
		client.SetToken(token)
	}
	return client, nil
}
