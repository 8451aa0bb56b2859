package channel

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/invlite/invlite/internal/config"
)

// winrmCredentials mirrors the credential fields a WinRM channel needs
type winrmCredentials struct {
	Username string `validate:"required,min=1"`
	Password string `validate:"required,min=1"`
	Domain   string
	UseHTTPS bool
}

// sshCredentials mirrors the credential fields an SSH channel needs.
// Either password or private key must be provided.
type sshCredentials struct {
	Username   string `validate:"required,min=1"`
	Password   string
	PrivateKey string
	Passphrase string
}

// Validate implements custom validation for SSH credentials
func (s *sshCredentials) Validate() error {
	if s.Password == "" && s.PrivateKey == "" {
		return fmt.Errorf("either password or private_key is required for SSH")
	}
	return nil
}

// Global validator instance
var validate = validator.New()

// ValidateCredentials checks the channel config carries usable
// credentials for its kind before any connection is attempted.
func ValidateCredentials(cfg config.ChannelConfig) error {
	var creds any
	switch cfg.Kind {
	case "ssh":
		creds = &sshCredentials{
			Username:   cfg.Username,
			Password:   cfg.Password,
			PrivateKey: cfg.PrivateKey,
			Passphrase: cfg.Passphrase,
		}
	default:
		creds = &winrmCredentials{
			Username: cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
			UseHTTPS: cfg.UseHTTPS,
		}
	}

	if err := validate.Struct(creds); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("channel credentials invalid: %s is %s", errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("channel credentials invalid: %w", err)
	}

	// Check for custom Validate method
	if v, ok := creds.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("channel credentials invalid: %w", err)
		}
	}
	return nil
}
