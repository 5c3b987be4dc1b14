// Package config provides Viper-backed helpers for resolving settings
// from environment variables and configuration files.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/mrmamen/podenrich/pkg/errors"
)

// Environment variable names for Podchaser API credentials.
const (
	EnvPodchaserKey    = "PODCHASER_API_KEY"
	EnvPodchaserSecret = "PODCHASER_API_SECRET"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// PodchaserCredentials resolves the Podchaser client-credentials pair.
// Both values must be set; a partial pair is treated the same as none.
func PodchaserCredentials() (key, secret string, err error) {
	key = GetString(EnvPodchaserKey)
	secret = GetString(EnvPodchaserSecret)
	if key == "" || secret == "" {
		return "", "", errors.ErrCredentialsRequired
	}
	return key, secret, nil
}

// HasPodchaserCredentials reports whether both credential variables are set,
// without validating them.
func HasPodchaserCredentials() bool {
	_, _, err := PodchaserCredentials()
	return err == nil
}
