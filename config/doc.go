// Package config loads counterhealth daemon configuration from a YAML file
// and COUNTERHEALTH_ prefixed environment variables.
//
// Environment variables use underscores in place of dots, so
// COUNTERHEALTH_HTTP_ADDR overrides http.addr.
package config
