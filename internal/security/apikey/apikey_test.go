package apikey

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"

	"github.com/stretchr/testify/suite"
)

type KeyringSuite struct {
	suite.Suite
	keyring *Keyring
	secret  string
}

func TestKeyringSuite(t *testing.T) {
	suite.Run(t, new(KeyringSuite))
}

func (s *KeyringSuite) SetupSuite() {
	secret, entry, err := Generate("drive-registration", []string{"POST", "GET"})
	s.Require().NoError(err)
	s.secret = secret
	s.keyring = NewKeyring([]Entry{entry})
}

func (s *KeyringSuite) TestValidate() {
	s.NoError(s.keyring.Validate(s.secret, "POST"))
	s.NoError(s.keyring.Validate(s.secret, "get"), "action match is case-insensitive")
}

func (s *KeyringSuite) TestValidateRejectsDisallowedAction() {
	err := s.keyring.Validate(s.secret, "PUT")
	s.Require().Error(err)
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
}

func (s *KeyringSuite) TestValidateRejectsUnknownKey() {
	err := s.keyring.Validate("not-a-key", "POST")
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	err = s.keyring.Validate("", "POST")
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *KeyringSuite) TestLoad() {
	_, entry, err := Generate("titiro-integration", []string{"PUT"})
	s.Require().NoError(err)

	raw, err := json.Marshal([]Entry{entry})
	s.Require().NoError(err)
	path := filepath.Join(s.T().TempDir(), "api_keys.json")
	s.Require().NoError(os.WriteFile(path, raw, 0o600))

	keyring, err := Load(path)
	s.Require().NoError(err)
	s.Len(keyring.entries, 1)
	s.Equal("titiro-integration", keyring.entries[0].Name)

	_, err = Load(filepath.Join(s.T().TempDir(), "missing.json"))
	s.Require().Error(err)
}
