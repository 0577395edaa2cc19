package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spendtrack/internal/config"
)

func TestConfig_ConnectionStrings(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBHost:         "db",
		DBPort:         "5433",
		DBUser:         "app",
		DBPassword:     "secret",
		DBName:         "spend",
		DBSSLMode:      "require",
		MigrationsPath: "file://migrations",
	})

	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=spend sslmode=require", cfg.DSN())
	assert.Equal(t, "postgres://app:secret@db:5433/spend?sslmode=require", cfg.URL())
	assert.Equal(t, "file://migrations", cfg.MigrationsPath)
}
