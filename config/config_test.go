package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"bricsengine/core/types"
	"bricsengine/native/vault"
)

const yamlConfig = `
listen: ":9090"
shutdown_timeout: 5s
storage:
  backend: memory
journal:
  dsn: "file::memory:"
auth:
  jwt_secret: "s3cret"
  leeway: 1m
rate_limit:
  rps: 5
  burst: 10
engine:
  authority: "0x00000000000000000000000000000000000000aa"
  currencies:
    - symbol: zar
      name: South African Rand
  rates:
    CNY: "1.0000"
    zar: "0.0550"
  vault:
    collateral_ratio_bps: 16000
    liquidation_bonus_bps: 500
    burn_source: owner
  pool:
    reserve_floor: "250.00"
  genesis:
    - account: "0x00000000000000000000000000000000000000a1"
      currency: cny
      amount: "3000.00"
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("BRICSD_JWT_SECRET", "")
	t.Setenv("BRICS_ENV", "")
	cfg, err := Load(writeFile(t, "bricsd.yaml", yamlConfig))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, 5*time.Second, cfg.Shutdown.Duration)
	require.Equal(t, time.Minute, cfg.Auth.Leeway.Duration)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, 10, cfg.RateLimit.Burst)

	engine, err := cfg.EngineConfig()
	require.NoError(t, err)
	zar, err := engine.Currencies.Parse("ZAR")
	require.NoError(t, err)
	require.True(t, engine.Currencies.IsCollateral(zar))
	require.Equal(t, int64(550), engine.Rates[zar].Int64())
	require.Equal(t, int64(10_000), engine.Rates[types.CNY].Int64())
	require.Equal(t, uint32(16_000), engine.Vault.CollateralRatio)
	require.Equal(t, vault.BurnFromOwner, engine.Vault.BurnSource)
	require.Equal(t, int64(25_000), engine.Pool.ReserveFloor.Int64())
	require.Len(t, engine.Genesis, 1)
	require.Equal(t, int64(300_000), engine.Genesis[0].Amount.Int64())
	require.Equal(t, types.ModuleAddress("treasury"), engine.Accounts.Treasury)
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("BRICSD_JWT_SECRET", "from-env")
	t.Setenv("BRICS_ENV", "prod")
	body := `
Listen = ":7000"
ShutdownTimeout = "15s"

[Storage]
Backend = "bolt"
Path = "/tmp/state.db"

[Engine]
Authority = "0x00000000000000000000000000000000000000aa"

[Engine.Rates]
RUB = "0.1100"

[Engine.Accounts]
Treasury = "0x00000000000000000000000000000000000000fe"
`
	cfg, err := Load(writeFile(t, "bricsd.toml", body))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.Secret)
	require.Equal(t, "prod", cfg.Environment)
	require.Equal(t, 15*time.Second, cfg.Shutdown.Duration)
	require.Equal(t, "bolt", cfg.Storage.Backend)
	require.Equal(t, 30*time.Second, cfg.Auth.Leeway.Duration)

	engine, err := cfg.EngineConfig()
	require.NoError(t, err)
	require.Equal(t, int64(1_100), engine.Rates[types.RUB].Int64())
	require.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000fe"), engine.Accounts.Treasury)
	require.Equal(t, uint32(15_000), engine.Vault.CollateralRatio)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("BRICSD_JWT_SECRET", "")
	cases := map[string]string{
		"missing authority": "auth:\n  jwt_secret: x\n",
		"missing secret":    "engine:\n  authority: \"0x00000000000000000000000000000000000000aa\"\n",
		"bad backend":       "auth:\n  jwt_secret: x\nstorage:\n  backend: redis\nengine:\n  authority: \"0x00000000000000000000000000000000000000aa\"\n",
		"unknown field":     "bogus: 1\n",
		"bad duration":      "shutdown_timeout: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.yaml", body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestEngineConfigRejectsBadValues(t *testing.T) {
	base := Config{Engine: Engine{Authority: "0x00000000000000000000000000000000000000aa"}}

	cfg := base
	cfg.Engine.Rates = map[string]string{"BRICS": "1.0000"}
	_, err := cfg.EngineConfig()
	require.Error(t, err)

	cfg = base
	cfg.Engine.Rates = map[string]string{"CNY": "1.00001"}
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	cfg = base
	cfg.Engine.Genesis = []GenesisBalance{{Account: "alice", Currency: "CNY", Amount: "1"}}
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	cfg = base
	cfg.Engine.Genesis = []GenesisBalance{{Account: "0x00000000000000000000000000000000000000a1", Currency: "CNY", Amount: "0"}}
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	cfg = base
	cfg.Engine.Vault.BurnSource = "nobody"
	_, err = cfg.EngineConfig()
	require.Error(t, err)
}
