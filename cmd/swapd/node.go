package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multiswap/config"
	"multiswap/core/genesis"
	"multiswap/core/runtime"
	"multiswap/core/state"
	"multiswap/indexer"
	"multiswap/native/common"
	"multiswap/native/escrow"
	"multiswap/native/system"
	"multiswap/native/token"
	"multiswap/rpc"
	"multiswap/storage"
)

const stateDirName = "state"

// node wires the ledger, the hosted programs, the event index and the API.
type node struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      storage.Database
	runtime *runtime.Runtime
	engine  *escrow.Engine
	pauses  *common.Pauses
	index   *indexer.Indexer
	server  *rpc.Server
}

func escrowConfig(cfg *config.Config) (escrow.Config, error) {
	out := escrow.DefaultConfig()
	programID, err := cfg.EscrowProgramID()
	if err != nil {
		return out, err
	}
	if !programID.IsZero() {
		out.ProgramID = programID
	}
	if seed := strings.TrimSpace(cfg.Escrow.AuthoritySeed); seed != "" {
		out.AuthoritySeed = seed
	}
	return out, nil
}

// newNode opens storage under cfg.DataDir, applies genesis on first start and
// assembles the runtime. db may be supplied by tests; nil opens leveldb.
func newNode(cfg *config.Config, genesisPath string, db storage.Database, logger *slog.Logger) (*node, error) {
	if db == nil {
		dir := filepath.Join(cfg.DataDir, stateDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare data directory: %w", err)
		}
		level, err := storage.NewLevelDB(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = level
	}
	n := &node{cfg: cfg, logger: logger, db: db}
	if err := n.assemble(genesisPath); err != nil {
		_ = n.Close()
		return nil, err
	}
	return n, nil
}

func (n *node) assemble(genesisPath string) error {
	cfg := n.cfg
	st := state.NewManager(n.db)
	rent := system.Rent{
		LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
		ExemptionThreshold:  cfg.Rent.ExemptionThreshold,
	}
	escrowCfg, err := escrowConfig(cfg)
	if err != nil {
		return err
	}

	if path := strings.TrimSpace(genesisPath); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			return err
		}
		applied, err := genesis.Apply(spec, st, genesis.Options{EscrowProgramID: escrowCfg.ProgramID, Rent: rent})
		if err != nil {
			return err
		}
		n.logger.Info("genesis checked",
			slog.String("path", path),
			slog.Bool("applied", applied),
			slog.Time("genesis_time", spec.GenesisTimestamp()))
	}

	engine, err := escrow.NewEngine(escrowCfg, token.Ledger{}, system.Ledger{}, rent)
	if err != nil {
		return fmt.Errorf("escrow engine: %w", err)
	}
	n.pauses = common.NewPauses()
	n.pauses.Set(escrow.ModuleName, cfg.Escrow.Paused)
	engine.SetPauses(n.pauses)
	n.engine = engine

	rt := runtime.New(st, n.logger)
	rt.Register(system.ProgramID, "system", system.NewProgram())
	rt.Register(token.ProgramID, "token", token.NewProgram())
	rt.Register(escrowCfg.ProgramID, escrow.ModuleName, engine)
	n.runtime = rt

	var history rpc.History
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		idx, err := indexer.Open(dsn, n.logger)
		if err != nil {
			return err
		}
		rt.Subscribe(idx)
		n.index = idx
		history = idx
	}

	authority, bump := engine.Authority()
	n.logger.Info("escrow program registered",
		slog.String("program", escrowCfg.ProgramID.String()),
		slog.String("authority", authority.String()),
		slog.Int("bump", int(bump)),
		slog.Bool("paused", cfg.Escrow.Paused))

	n.server = rpc.NewServer(rpc.Config{
		EscrowProgramID:    escrowCfg.ProgramID,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		JWTSecret:          cfg.JWTSecret(),
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		ReadHeaderTimeout:  time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
	}, rt, history, n.logger)
	return nil
}

// Close releases the index and the database.
func (n *node) Close() error {
	var errs []error
	if n.index != nil {
		errs = append(errs, n.index.Close())
	}
	if n.db != nil {
		errs = append(errs, n.db.Close())
	}
	return errors.Join(errs...)
}
