// Package config loads sparqlkit service configuration.
//
// Configuration is read with Viper from a config.yml and an optional .env
// file, then overlaid with environment variables. Nested keys map to
// underscore-separated variables, so CLIENT_HTTP_TIMEOUT sets
// client.http.timeout.
//
//	var cfg config.ServiceConfig
//	if err := config.LoadConfig("sparql-sync", &cfg); err != nil {
//		return err
//	}
//	client, err := cfg.Build(endpoint.NewRegistry())
package config
