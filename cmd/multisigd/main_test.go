package main

import (
	"testing"
	"time"

	"github.com/iov-one/quorum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfiguration(t *testing.T) {
	cases := map[string]struct {
		Env     map[string]string
		WantErr bool
		Check   func(*testing.T, configuration)
	}{
		"defaults": {
			Check: func(t *testing.T, c configuration) {
				assert.Equal(t, ":3005", c.HTTP)
				assert.Equal(t, quorum.Testnet, c.Client.Network)
				assert.Equal(t, 30*time.Second, c.Client.Timeout)
				assert.Equal(t, 32, c.Client.QueueSize)
				assert.Equal(t, "https://oracle.zoroswap.com", c.AMMEndpoint)
				assert.False(t, c.Debug)
			},
		},
		"overrides": {
			Env: map[string]string{
				"PORT":                 "8080",
				"MIDEN_NETWORK":        "devnet",
				"MIDEN_RPC_TIMEOUT_MS": "1500",
				"COMMAND_QUEUE_SIZE":   "4",
				"MULTISIG_DB_DIR":      "/tmp/ledger",
				"DEBUG":                "true",
			},
			Check: func(t *testing.T, c configuration) {
				assert.Equal(t, ":8080", c.HTTP)
				assert.Equal(t, quorum.Devnet, c.Client.Network)
				assert.Equal(t, 1500*time.Millisecond, c.Client.Timeout)
				assert.Equal(t, 4, c.Client.QueueSize)
				assert.Equal(t, "/tmp/ledger", c.Client.DBDir)
				assert.True(t, c.Debug)
			},
		},
		"unknown network": {
			Env:     map[string]string{"MIDEN_NETWORK": "moon"},
			WantErr: true,
		},
		"zero queue": {
			Env:     map[string]string{"COMMAND_QUEUE_SIZE": "0"},
			WantErr: true,
		},
		"bad timeout": {
			Env:     map[string]string{"MIDEN_RPC_TIMEOUT_MS": "soon"},
			WantErr: true,
		},
	}

	vars := []string{"PORT", "MIDEN_NETWORK", "MIDEN_RPC_TIMEOUT_MS", "COMMAND_QUEUE_SIZE",
		"MULTISIG_DB_DIR", "MIDEN_NODE_ENDPOINT", "ZORO_AMM_ENDPOINT", "LOG_LEVEL", "DEBUG"}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			for _, name := range vars {
				t.Setenv(name, "")
			}
			for name, value := range tc.Env {
				t.Setenv(name, value)
			}

			conf, err := loadConfiguration()
			if tc.WantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.Check(t, conf)
		})
	}
}
