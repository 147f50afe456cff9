package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"NEURADNS_ADDR", "SOLANA_RPC_URL", "NEURADNS_PROGRAM_ID",
		"CLASSIFIER_URL", "WALLET_KEYPAIR_PATH", "REDIS_URL",
		"AUDIT_DATABASE_URL", "STATIC_DIR",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":3007", cfg.Addr)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Empty(t, cfg.ClassifierURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.AuditDBURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NEURADNS_ADDR", ":9000")
	t.Setenv("SOLANA_RPC_URL", "http://localhost:8899")
	t.Setenv("NEURADNS_PROGRAM_ID", "SomeOtherProgram")
	t.Setenv("CLASSIFIER_URL", "http://localhost:5001/classify")
	t.Setenv("WALLET_KEYPAIR_PATH", "/tmp/id.json")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUDIT_DATABASE_URL", "postgres://localhost/audit")
	t.Setenv("STATIC_DIR", "web")

	cfg := FromEnv()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "http://localhost:8899", cfg.RPCURL)
	assert.Equal(t, "SomeOtherProgram", cfg.ProgramID)
	assert.Equal(t, "http://localhost:5001/classify", cfg.ClassifierURL)
	assert.Equal(t, "/tmp/id.json", cfg.KeypairPath)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "postgres://localhost/audit", cfg.AuditDBURL)
	assert.Equal(t, "web", cfg.StaticDir)
}

func TestValidate(t *testing.T) {
	base := Server{ClassifierURL: "http://localhost:5001/classify", KeypairPath: "/tmp/id.json"}
	require.NoError(t, base.Validate())

	missingClassifier := base
	missingClassifier.ClassifierURL = ""
	assert.Error(t, missingClassifier.Validate())

	missingKeypair := base
	missingKeypair.KeypairPath = ""
	assert.Error(t, missingKeypair.Validate())
}
