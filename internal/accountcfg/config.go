package accountcfg

import (
	"time"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// Config is an account definition file
// ⭐ SSOT: the YAML shape of an account; fields are fixed by KnownFields
type Config struct {
	Account  AccountMeta        `yaml:"account" json:"account"`
	Settings contracts.Settings `yaml:"settings" json:"settings"`
	Goals    contracts.Goals    `yaml:"goals" json:"goals"`
	Timezone string             `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// AccountMeta identifies the account
type AccountMeta struct {
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	Name string `yaml:"name" json:"name"`
}

// Location resolves the timezone, UTC when unset
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
