package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/echo/internal/flagx"
	"github.com/dmitrijs2005/echo/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// use timex.Duration, which accepts "15m" as well as integer nanoseconds.
// Absent keys keep the value they had before the file was read.
type JsonConfig struct {
	Env                       *string         `json:"env"`
	EndpointAddrGRPC          *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP          *string         `json:"endpoint_addr_http"`
	DatabaseDSN               *string         `json:"database_dsn"`
	SigningKey                *string         `json:"signing_key"`
	Issuer                    *string         `json:"issuer"`
	Audience                  *string         `json:"audience"`
	AccessTokenLifetime       *timex.Duration `json:"access_token_lifetime"`
	RefreshTokenLifetime      *timex.Duration `json:"refresh_token_lifetime"`
	ExpiredTokenPurgeInterval *timex.Duration `json:"expired_token_purge_interval"`
}

// parseJson loads the file named by -c / -config, if any, into config.
func parseJson(config *Config) error {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SigningKey, c.SigningKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	if c.AccessTokenLifetime != nil {
		config.AccessTokenLifetime = c.AccessTokenLifetime.Duration
	}
	if c.RefreshTokenLifetime != nil {
		config.RefreshTokenLifetime = c.RefreshTokenLifetime.Duration
	}
	if c.ExpiredTokenPurgeInterval != nil {
		config.ExpiredTokenPurgeInterval = c.ExpiredTokenPurgeInterval.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
