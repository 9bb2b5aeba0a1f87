package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// Connection pool bounds. Reconciliation holds a transaction open for
// the whole issuance unit, so the open-connection cap also bounds how
// many reconciliations run against the database at once.
const (
	DB_MAX_IDLE_CONNS = 10
	DB_MAX_OPEN_CONNS = 100
)

const (
	CASHFREE_SANDBOX_URL    = "https://sandbox.cashfree.com/pg"
	CASHFREE_PRODUCTION_URL = "https://api.cashfree.com/pg"
	CASHFREE_API_VERSION    = "2023-08-01"
)

func CashfreeBaseURL() string {
	if os.Getenv("API_ENV") == "production" {
		return CASHFREE_PRODUCTION_URL
	}
	return CASHFREE_SANDBOX_URL
}

func CashfreeCredentials() (string, string) {
	return os.Getenv("CASHFREE_CLIENT_ID"), os.Getenv("CASHFREE_CLIENT_SECRET")
}

func CashfreeWebhookSecret() string {
	return os.Getenv("CASHFREE_WEBHOOK_SECRET")
}

const qrSecretLen = 32

// QRSecret returns the AES key used for pass QR tokens. A missing or
// wrong-length key is a configuration error and must never be papered
// over with a default.
func QRSecret() ([]byte, error) {
	keyEnv := os.Getenv("API_QRC_SECRET")
	if keyEnv == "" {
		return nil, fmt.Errorf("API_QRC_SECRET is not set")
	}
	key, err := hex.DecodeString(keyEnv)
	if err != nil {
		return nil, fmt.Errorf("could not read key from API_QRC_SECRET: %w", err)
	}
	if len(key) != qrSecretLen {
		return nil, fmt.Errorf("API_QRC_SECRET must decode to %d bytes, got %d", qrSecretLen, len(key))
	}
	return key, nil
}
