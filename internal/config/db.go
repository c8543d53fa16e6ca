package config

import (
	"fmt"
	"os"
)

const defaultDSN = "greenorbit:greenorbit@tcp(localhost:3306)/greenorbit?parseTime=true"

// Returns the database connection string
// It checks for environment variables first, then falls back to a default
func GetDatabaseDSN() string {
	if dsn, ok := dsnFromEnv(); ok {
		return dsn
	}
	return defaultDSN
}

func dsnFromEnv() (string, bool) {
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_NAME")

	if user != "" && password != "" && host != "" && port != "" && database != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database), true
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return dsn, true
	}

	return "", false
}
