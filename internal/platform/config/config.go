package config

import (
	"fmt"
	"os"
	"time"
)

// Defaults match the devnet deployment of the registry program.
const (
	DefaultRPCURL    = "https://api.devnet.solana.com"
	DefaultProgramID = "H7azh1pVd3uySy7z4JRmQL2HpF2D9673Y9RP4yXZWfFM"
)

// ConfirmationTimeout bounds how long a submitted transaction is polled before
// the write is reported as timed out.
var ConfirmationTimeout = 60 * time.Second

// Server captures process-level configuration. All fields are read once at
// startup and never mutated afterwards.
type Server struct {
	Addr          string
	RPCURL        string
	ProgramID     string
	ClassifierURL string
	KeypairPath   string
	RedisURL      string
	AuditDBURL    string
	StaticDir     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("NEURADNS_ADDR")
	if addr == "" {
		addr = ":3007"
	}
	rpcURL := os.Getenv("SOLANA_RPC_URL")
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	programID := os.Getenv("NEURADNS_PROGRAM_ID")
	if programID == "" {
		programID = DefaultProgramID
	}
	keypairPath := os.Getenv("WALLET_KEYPAIR_PATH")
	if keypairPath == "" {
		keypairPath = defaultKeypairPath()
	}
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "public"
	}

	return Server{
		Addr:          addr,
		RPCURL:        rpcURL,
		ProgramID:     programID,
		ClassifierURL: os.Getenv("CLASSIFIER_URL"),
		KeypairPath:   keypairPath,
		RedisURL:      os.Getenv("REDIS_URL"),
		AuditDBURL:    os.Getenv("AUDIT_DATABASE_URL"),
		StaticDir:     staticDir,
	}
}

// Validate reports configuration the process cannot start without.
func (s Server) Validate() error {
	if s.ClassifierURL == "" {
		return fmt.Errorf("CLASSIFIER_URL must be set")
	}
	if s.KeypairPath == "" {
		return fmt.Errorf("WALLET_KEYPAIR_PATH must be set")
	}
	return nil
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.config/solana/id.json"
}
