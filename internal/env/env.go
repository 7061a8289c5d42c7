package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/voicescribe/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// FromEnv reads the environment from VOICESCRIBE_ENV, defaulting to production.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.VoicescribeEnv))
}

// Parse maps a loose environment name to an Environment.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "local":
		return Development
	default:
		return Production
	}
}

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool {
	return e == Development
}
