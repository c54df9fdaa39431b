// Package apikey implements file-backed API keys for service-to-service
// callers. Keys are stored as bcrypt hashes with a per-key list of allowed
// actions, so a leaked keyring file does not reveal usable credentials.
package apikey

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Entry is one stored key: a label for operators, the bcrypt hash of the
// secret, and the actions the key may perform.
type Entry struct {
	Name    string   `json:"name"`
	Hash    string   `json:"hash"`
	Actions []string `json:"actions"`
}

// Keyring holds every known key.
type Keyring struct {
	entries []Entry
}

// Load reads a keyring from a JSON file.
func Load(path string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api key file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse api key file %s: %w", path, err)
	}
	return &Keyring{entries: entries}, nil
}

// NewKeyring builds a keyring from in-memory entries, used in tests.
func NewKeyring(entries []Entry) *Keyring {
	return &Keyring{entries: entries}
}

// Validate checks the raw key against every stored hash and, on a match,
// that the key is allowed the requested action. Action comparison is
// case-insensitive.
func (k *Keyring) Validate(rawKey, action string) error {
	if rawKey == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing API key")
	}
	for _, entry := range k.entries {
		if bcrypt.CompareHashAndPassword([]byte(entry.Hash), []byte(rawKey)) != nil {
			continue
		}
		for _, allowed := range entry.Actions {
			if strings.EqualFold(allowed, action) {
				return nil
			}
		}
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("API key %q may not perform %s", entry.Name, action))
	}
	return dErrors.New(dErrors.CodeUnauthorized, "unknown API key")
}

// Generate mints a new secret and its stored entry. The secret is returned
// once and never persisted.
func Generate(name string, actions []string) (secret string, entry Entry, err error) {
	secret = uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", Entry{}, fmt.Errorf("hash api key: %w", err)
	}
	return secret, Entry{Name: name, Hash: string(hash), Actions: actions}, nil
}
