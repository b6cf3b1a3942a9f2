// chaincheck is a small standalone front-end for the consensus/chain
// library, grounded on cmd/addblock's "parse flags, open a store, report
// what happened" shape rather than kaspad.go's full daemon wiring, since
// this core has no p2p/RPC surface to bring up (spec.md's non-goals).
//
// It loads whichever ChainDB backend the caller asked for, opens a Chain
// against it, and prints the resulting tip. With no further input it is
// a dry-run smoke test of the wiring described in SPEC_FULL.md; a real
// caller would go on to feed it blocks from whatever wire-format source
// it has (out of this core's scope).
package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/chaindb"
	"github.com/bchcore/node/consensus/events"
	"github.com/bchcore/node/consensus/workerpool"
	"github.com/bchcore/node/internal/config"
	"github.com/bchcore/node/internal/logs"
)

func logger() *logs.Logger {
	return logs.Get(logs.SubsystemTags.CHAN)
}

func main() {
	if err := run(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}
	if err := cfg.SetupLogging(); err != nil {
		return err
	}

	log := logger()

	db, closeDB, err := openChainDB(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open chain database")
	}
	defer closeDB()

	bus := events.NewBus()
	bus.Subscribe(func(ev events.Event) {
		log.Infof("event: %s %+v", ev.Type, ev.Data)
	})

	pool := workerpool.New(cfg.WorkerPool)
	c := chain.New(cfg.Params, db, bus, cfg.MaxOrphans, pool)
	if err := c.Open(); err != nil {
		return errors.Wrap(err, "failed to open chain")
	}
	defer c.Close()

	tip := c.Tip()
	if tip == nil {
		log.Infof("%s: chain database at %s has no genesis yet", cfg.Params.Name, cfg.ChainDBDir)
		return nil
	}
	log.Infof("%s: tip at height %d, hash %x", cfg.Params.Name, tip.Height, tip.Hash)
	return nil
}

// chainDBCloser releases whatever resources openChainDB acquired.
type chainDBCloser func() error

func openChainDB(cfg *config.Config) (chain.DB, chainDBCloser, error) {
	if cfg.MemoryOnly {
		return chaindb.NewMemStore(), func() error { return nil }, nil
	}

	store := chaindb.New(cfg.ChainDBDir)
	if err := store.Open(); err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
