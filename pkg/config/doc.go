// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: a .env
// file in the working directory is loaded once per process when present, then
// struct fields are populated from their env/envDefault tags. Each config
// type is parsed at most once and cached for the lifetime of the process.
//
// Declare a struct with env tags, or embed the ready-made Config types from
// core/session, core/cookie, core/sessionstore and integration/database:
//
//	type AppConfig struct {
//		Session session.Config
//		Cookies cookie.Config
//		Redis   redis.Config
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg)
//
// Tests that mutate environment variables can call Reset to drop the cache.
package config
