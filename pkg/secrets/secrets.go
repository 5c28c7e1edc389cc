// Package secrets keeps user-supplied secret values out of the ledger
// database. Values live in the secret store; the database only knows
// the key names.
package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	xe "github.com/poddle/poddle/pkg/errors"
)

// Store is a per-deployment bag of secret key/value pairs.
type Store interface {
	// Write replaces the whole bag for a deployment.
	Write(ctx context.Context, namespace string, deploymentId string, data map[string]string) error

	// Read returns the bag, or an empty map when none was written.
	Read(ctx context.Context, namespace string, deploymentId string) (map[string]string, error)

	// Delete removes the bag and all its versions. Deleting a bag that
	// does not exist is not an error.
	Delete(ctx context.Context, namespace string, deploymentId string) error
}

// Path returns the location of a deployment's bag under the KV mount.
func Path(namespace string, deploymentId string) string {
	return fmt.Sprintf("%s/%s", namespace, deploymentId)
}

type vaultStore struct {
	kv *vault.KVv2
}

// New builds a Store over a KV v2 mount.
func New(client *vault.Client, mount string) Store {
	return &vaultStore{kv: client.KVv2(mount)}
}

func (s *vaultStore) Write(ctx context.Context, namespace string, deploymentId string, data map[string]string) error {
	payload := make(map[string]interface{}, len(data))
	for k, v := range data {
		payload[k] = v
	}
	if _, err := s.kv.Put(ctx, Path(namespace, deploymentId), payload); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (s *vaultStore) Read(ctx context.Context, namespace string, deploymentId string) (map[string]string, error) {
	secret, err := s.kv.Get(ctx, Path(namespace, deploymentId))
	if err != nil {
		if isNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, xe.Wrap(err)
	}

	data := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		if sv, ok := v.(string); ok {
			data[k] = sv
		}
	}
	return data, nil
}

func (s *vaultStore) Delete(ctx context.Context, namespace string, deploymentId string) error {
	err := s.kv.DeleteMetadata(ctx, Path(namespace, deploymentId))
	if err != nil && !isNotFound(err) {
		return xe.Wrap(err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if respErr, ok := err.(*vault.ResponseError); ok {
		return respErr.StatusCode == 404
	}
	return err == vault.ErrSecretNotFound
}
