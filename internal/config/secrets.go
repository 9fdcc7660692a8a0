package config

import (
	"fmt"

	"github.com/imamik/k8stack/internal/secret"
)

// SecretStore builds the secret tier: the environment first, then the
// age-encrypted secrets file when one is configured.
func (s *Stack) SecretStore() (secret.Store, error) {
	chain := secret.Chain{secret.EnvStore{Prefix: s.Secrets.EnvPrefix}}
	if s.Secrets.File == "" {
		return chain, nil
	}
	if s.Secrets.Identity == "" {
		return nil, fmt.Errorf("secrets.identity is required when secrets.file is set")
	}
	store, err := secret.LoadAgeFile(s.Path(s.Secrets.File), s.Path(s.Secrets.Identity))
	if err != nil {
		return nil, err
	}
	return append(chain, store), nil
}
