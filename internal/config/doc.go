// Package config loads authd settings with viper from an optional YAML file
// and AUTHD_* environment variables.
package config
