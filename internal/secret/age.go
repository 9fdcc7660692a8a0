package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
	"gopkg.in/yaml.v3"
)

// LoadAgeFile decrypts an armored age file holding a YAML document of the
// form component -> setting -> value, using the identities in identityPath.
func LoadAgeFile(path, identityPath string) (MapStore, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	identities, err := ParseIdentities(identityPath)
	if err != nil {
		return nil, err
	}

	plain, err := Decrypt(data, identities)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", path, err)
	}

	store := MapStore{}
	if err := yaml.Unmarshal(plain, &store); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secrets file: %w", err)
	}
	return store, nil
}

// SaveAgeFile encrypts store for recipients and writes it armored to path.
func SaveAgeFile(path string, store MapStore, recipients []age.Recipient) error {
	plain, err := yaml.Marshal(map[string]map[string]string(store))
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	data, err := Encrypt(plain, recipients)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// ParseIdentities reads age identities (one X25519 key per line).
func ParseIdentities(path string) ([]age.Identity, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity file: %w", err)
	}
	defer f.Close()
	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identities: %w", err)
	}
	return ids, nil
}

// Encrypt returns data encrypted for recipients in ASCII armor.
func Encrypt(data []byte, recipients []age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipients...)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decrypt reverses Encrypt.
func Decrypt(data []byte, identities []age.Identity) ([]byte, error) {
	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
