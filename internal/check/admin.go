package check

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/pkg/idgen"
)

// checkAdminPassword offers to generate the admin password when admin
// endpoints are enabled without one. The password is printed once.
func (c *Checker) checkAdminPassword(cfg *config.Config) error {
	password, err := c.ensureAdminPassword(cfg)
	if err != nil || password == "" {
		return err
	}
	c.report.AdminPasswordGenerated = true
	color.New(color.FgGreen).Printf("  ✓ Admin password for %q: ", cfg.Admin.Username)
	color.New(color.Bold).Println(password)
	color.New(color.FgYellow).Println("    Store it now, it is not shown again")
	return nil
}

// ensureAdminPassword returns the generated password, or "" when nothing was written.
func (c *Checker) ensureAdminPassword(cfg *config.Config) (string, error) {
	admin := cfg.Admin
	if admin == nil || !admin.Enabled || strings.TrimSpace(admin.PasswordHash) != "" {
		return "", nil
	}

	ok, err := c.confirm("Admin password is not set. Generate one now?")
	if err != nil {
		return "", fmt.Errorf("failed to get user confirmation: %w", err)
	}
	if !ok {
		return "", nil
	}

	password := idgen.NewSecurePassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	secret := admin.JWTSecret
	if len(secret) < config.MinJWTSecretLength {
		secret = idgen.NewSecureSecret(2 * config.MinJWTSecretLength)
	}
	if err := config.UpdatePasswordHashInConfig(c.BootstrapPath(), string(hash), secret); err != nil {
		return "", err
	}
	admin.PasswordHash = string(hash)
	return password, nil
}
