package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bchcore/node/consensus/deployment"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]string{})
	require.NoError(t, err)
	require.Equal(t, defaultMaxOrphans, cfg.MaxOrphans)
	require.Equal(t, defaultWorkerPool, cfg.WorkerPool)
	require.Equal(t, deployment.MainnetParams.Name, cfg.Params.Name)
}

func TestLoadSelectsTestnet(t *testing.T) {
	cfg, err := Load([]string{"--testnet"})
	require.NoError(t, err)
	require.Equal(t, deployment.TestnetParams.Name, cfg.Params.Name)
}

func TestLoadSelectsRegtest(t *testing.T) {
	cfg, err := Load([]string{"--regtest"})
	require.NoError(t, err)
	require.Equal(t, deployment.RegtestParams.Name, cfg.Params.Name)
	require.False(t, cfg.Params.CheckpointsEnabled)
}

func TestLoadRejectsConflictingNetworks(t *testing.T) {
	_, err := Load([]string{"--testnet", "--regtest"})
	require.Error(t, err)
}

func TestLoadNoCheckpointsOverridesMainnet(t *testing.T) {
	cfg, err := Load([]string{"--nocheckpoints"})
	require.NoError(t, err)
	require.False(t, cfg.Params.CheckpointsEnabled)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	_, err := Load([]string{"--debuglevel", "not-a-level"})
	require.Error(t, err)
}

func TestLoadDerivesChainDBDirFromNetworkName(t *testing.T) {
	cfg, err := Load([]string{"-b", "/tmp/mychain", "--testnet"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/mychain/testnet", cfg.ChainDBDir)
}
