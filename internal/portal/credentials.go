package portal

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials are derived once per request and shared by the provisioner and
// the login responder.
type Credentials struct {
	Username string
	Password string
	// Generated is set when the password came from the random rule.
	Generated bool
}

// Credentials derives the hotspot username and password. Every rule except
// random is a pure function of the request.
func (p *Policy) Credentials(req *RegistrationRequest) (Credentials, error) {
	name := p.Identity(req)
	creds := Credentials{Username: name}

	switch p.PasswordRule {
	case PasswordMAC:
		creds.Password = firstNonEmpty(req.Mac, name, p.FallbackPassword)
	case PasswordIdentity:
		creds.Password = firstNonEmpty(name, p.FallbackPassword)
	case PasswordFixed:
		creds.Password = p.FallbackPassword
	case PasswordRandom:
		secret, err := randomSecret()
		if err != nil {
			return creds, fmt.Errorf("generate hotspot secret: %w", err)
		}
		creds.Password = secret
		creds.Generated = true
	}
	return creds, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// hashSecret is what the contact row keeps for a generated password.
func hashSecret(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
