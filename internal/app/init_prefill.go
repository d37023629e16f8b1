package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// initPrefill is the database form prefill derived from an existing
// DSN, offered to the setup UI when the deployment pins one via
// environment. The password itself is never echoed back.
type initPrefill struct {
	DatabaseType        string `json:"database_type"`
	DatabaseHost        string `json:"database_host"`
	DatabasePort        int    `json:"database_port"`
	DatabaseUser        string `json:"database_user"`
	DatabaseName        string `json:"database_name"`
	DatabaseSSLMode     string `json:"database_ssl_mode"`
	DatabasePath        string `json:"database_path"`
	DatabasePasswordSet bool   `json:"database_password_set"`
}

func initPrefillFromDSN(dsn string) (initPrefill, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return initPrefill{}, fmt.Errorf("empty dsn")
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		return sqlitePrefill(trimmed), nil
	}
	return postgresPrefill(trimmed)
}

// sqlitePrefill extracts the database file path from a file: DSN,
// dropping any connection parameters.
func sqlitePrefill(dsn string) initPrefill {
	path := dsn[len("file:"):]
	path, _, _ = strings.Cut(path, "?")
	return initPrefill{
		DatabaseType: "sqlite",
		DatabasePath: strings.TrimSpace(path),
	}
}

// postgresPrefill extracts connection details from a postgres URL DSN.
func postgresPrefill(dsn string) (initPrefill, error) {
	u, errParse := url.Parse(dsn)
	if errParse != nil {
		return initPrefill{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
	if scheme != "postgres" && scheme != "postgresql" {
		return initPrefill{}, fmt.Errorf("unsupported dsn scheme")
	}

	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return initPrefill{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}

	prefill := initPrefill{
		DatabaseType:    "postgres",
		DatabaseHost:    strings.TrimSpace(u.Hostname()),
		DatabasePort:    port,
		DatabaseName:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		DatabaseSSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
	}
	if prefill.DatabaseSSLMode == "" {
		prefill.DatabaseSSLMode = "disable"
	}
	if u.User != nil {
		prefill.DatabaseUser = strings.TrimSpace(u.User.Username())
		_, prefill.DatabasePasswordSet = u.User.Password()
	}
	return prefill, nil
}
