package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables read through ResolveSecret.
const (
	EnvAdminUser    = "HELLEVATOR_ADMIN_USER"
	EnvAdminPass    = "HELLEVATOR_ADMIN_PASS"
	EnvOperatorUser = "HELLEVATOR_OPERATOR_USER"
	EnvOperatorPass = "HELLEVATOR_OPERATOR_PASS"
	EnvPGPassword   = "PGPASSWORD"
	EnvMQTTPassword = "MQTT_PASSWORD"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, reads the secret from that file path.
// Otherwise falls back to the value of envName.
// Returns empty string if neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// Secrets are the credentials the simulator needs at startup. Empty values
// disable the feature they guard.
type Secrets struct {
	AdminUser    string
	AdminPass    string
	OperatorUser string
	OperatorPass string
	PGPassword   string
	MQTTPassword string
}

// LoadSecrets resolves every secret. It fails on the first unreadable
// *_FILE without echoing any secret content.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	for _, f := range []struct {
		env string
		dst *string
	}{
		{EnvAdminUser, &s.AdminUser},
		{EnvAdminPass, &s.AdminPass},
		{EnvOperatorUser, &s.OperatorUser},
		{EnvOperatorPass, &s.OperatorPass},
		{EnvPGPassword, &s.PGPassword},
		{EnvMQTTPassword, &s.MQTTPassword},
	} {
		v, err := ResolveSecret(f.env)
		if err != nil {
			return Secrets{}, err
		}
		*f.dst = v
	}
	return s, nil
}
