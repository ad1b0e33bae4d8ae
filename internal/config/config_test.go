package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"swapPipeline/internal/amm"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapctl.yaml")
	content := "rpc: http://file:8545\ntimeout: 3s\nheader:\n  - x-api-key=abc\n  - X-Trace = on\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SWAPCTL_CHECK_SYNC", "true")
	t.Setenv("SWAPCTL_POLL_INTERVAL", "250ms")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	if err := flags.Parse([]string{"--rpc", "http://flag:8545"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://flag:8545" {
		t.Fatalf("rpc = %q, want flag value", cfg.RPCURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout)
	}
	if !cfg.CheckSync {
		t.Fatalf("check-sync not read from env")
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("poll interval = %s", cfg.PollInterval)
	}
	want := map[string]string{"x-api-key": "abc", "X-Trace": "on"}
	if !reflect.DeepEqual(cfg.Headers, want) {
		t.Fatalf("headers = %v, want %v", cfg.Headers, want)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadRequiresRPC(t *testing.T) {
	chdirTemp(t)
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error without rpc")
	}
}

func TestLoadRejectsBadHeader(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SWAPCTL_RPC", "http://127.0.0.1:8545")
	t.Setenv("SWAPCTL_HEADER", "novalue")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for header without '='")
	}
}

func TestLoadAMMDefaultsAndOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SWAPCTL_RPC", "http://127.0.0.1:8545")
	t.Setenv("SWAPCTL_ROUTER", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	t.Setenv("SWAPCTL_WETH", "TY5X9ocQACH9YGAyiK3WUxLcLw3t2ethnc")

	cfg, err := LoadAMM("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := amm.DefaultContracts()
	if cfg.Contracts.Quoter != defaults.Quoter || cfg.Contracts.Factory != defaults.Factory {
		t.Fatalf("defaults not kept: %+v", cfg.Contracts)
	}
	if cfg.Contracts.Router != common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45") {
		t.Fatalf("router = %s", cfg.Contracts.Router.Hex())
	}
	if cfg.Contracts.WETH != common.HexToAddress("0xf2846a1e4dafaea38c1660a618277d67605bd2b5") {
		t.Fatalf("weth = %s", cfg.Contracts.WETH.Hex())
	}

	t.Setenv("SWAPCTL_DAI", "not-an-address")
	if _, err := LoadAMM("", nil); err == nil {
		t.Fatalf("expected error for bad address")
	}
}

func TestLoadEvents(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SWAPCTL_RPC", "http://127.0.0.1:8545")
	t.Setenv("SWAPCTL_ADDRESS", "0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640, ")
	t.Setenv("SWAPCTL_FROM", "10")
	t.Setenv("SWAPCTL_TO", "20")

	cfg, err := LoadEvents("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchSize != 2000 || cfg.Out != "./data/logs.jsonl" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Addresses, []string{"0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"}) {
		t.Fatalf("addresses = %v", cfg.Addresses)
	}
	if cfg.FromBlock != 10 || cfg.ToBlock != 20 {
		t.Fatalf("range = %d-%d", cfg.FromBlock, cfg.ToBlock)
	}

	t.Setenv("SWAPCTL_TO", "5")
	if _, err := LoadEvents("", nil); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

// chdirTemp moves into an empty directory so no ./config.* file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
