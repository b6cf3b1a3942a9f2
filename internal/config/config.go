// Package config defines this core's command-line/environment
// configuration surface, grounded on config/config.go's option-struct-plus-
// go-flags idiom but narrowed to what a consensus-only library needs:
// network selection, checkpoint enable/disable, orphan/worker-pool sizing,
// one log level applied to every subsystem, and the leveldb ChainDB's data directory.
package config

import (
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/internal/logs"
)

const (
	defaultDataDirname = "chaindata"
	defaultLogDirname  = "logs"
	defaultLogFilename = "chaincheck.log"
	defaultLogLevel    = "info"
	defaultMaxOrphans  = 100
	defaultWorkerPool  = 4
)

// Flags is the raw set of options go-flags parses from argv and the
// environment, mirroring config.Flags' "one tagged struct field per option"
// layout.
type Flags struct {
	DataDir       string `short:"b" long:"datadir" description:"Directory to store the chain database" env:"CHAINCHECK_DATADIR"`
	LogDir        string `long:"logdir" description:"Directory for rotating log files" env:"CHAINCHECK_LOGDIR"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}" env:"CHAINCHECK_DEBUGLEVEL"`
	Testnet       bool   `long:"testnet" description:"Use the test network"`
	Regtest       bool   `long:"regtest" description:"Use a locally-mined regression-test network"`
	NoCheckpoints bool   `long:"nocheckpoints" description:"Disable built-in checkpoints"`
	MaxOrphans    int    `long:"maxorphans" description:"Max number of orphan blocks to keep in memory"`
	WorkerPool    int    `long:"workers" description:"Number of goroutines in the script-verification worker pool"`
	MemoryOnly    bool   `long:"memory" description:"Use an in-memory ChainDB instead of the on-disk leveldb store"`
}

// Config is Flags after validation, with the selected network resolved to
// its concrete deployment.Params and the ChainDB directory derived as
// DataDir joined with the network name (relative paths stay relative), the
// way config.Config layers derived fields over the parsed Flags.
type Config struct {
	*Flags

	Params     *deployment.Params
	ChainDBDir string
	LogLevel   logs.Level
}

// Load parses argv (or, with args nil, os.Args[1:]) into a Config, applying
// defaults the way loadConfig seeds cfgFlags before handing it to the
// go-flags parser.
func Load(args []string) (*Config, error) {
	f := &Flags{
		DataDir:    defaultDataDirname,
		LogDir:     filepath.Join(defaultDataDirname, defaultLogDirname),
		DebugLevel: defaultLogLevel,
		MaxOrphans: defaultMaxOrphans,
		WorkerPool: defaultWorkerPool,
	}

	parser := flags.NewParser(f, flags.Default)
	if args != nil {
		if _, err := parser.ParseArgs(args); err != nil {
			return nil, errors.Wrap(err, "failed to parse configuration")
		}
	} else {
		if _, err := parser.Parse(); err != nil {
			return nil, errors.Wrap(err, "failed to parse configuration")
		}
	}

	if f.Testnet && f.Regtest {
		return nil, errors.New("--testnet and --regtest are mutually exclusive")
	}

	level, ok := logs.LevelFromString(f.DebugLevel)
	if !ok {
		return nil, errors.Errorf("unrecognized log level %q", f.DebugLevel)
	}

	params := selectParams(f)
	if f.NoCheckpoints {
		params.CheckpointsEnabled = false
	}

	return &Config{
		Flags:      f,
		Params:     params,
		ChainDBDir: filepath.Join(f.DataDir, params.Name),
		LogLevel:   level,
	}, nil
}

func selectParams(f *Flags) *deployment.Params {
	switch {
	case f.Regtest:
		p := deployment.RegtestParams
		return &p
	case f.Testnet:
		p := deployment.TestnetParams
		return &p
	default:
		p := deployment.MainnetParams
		return &p
	}
}

// SetupLogging wires every registered subsystem logger to Config's
// debuglevel and, when LogDir is set, attaches a rotating file sink,
// mirroring how config-driven callers across the pack fan a single
// debuglevel flag out to every subsystem's *Logger.
func (c *Config) SetupLogging() error {
	backend := logs.DefaultBackend()
	if c.LogDir != "" {
		logFile := filepath.Join(c.LogDir, defaultLogFilename)
		if err := backend.AddLogFile(logFile, c.LogLevel); err != nil {
			return errors.Wrap(err, "failed to attach log file")
		}
	}
	for _, tag := range []string{
		logs.SubsystemTags.TXSC,
		logs.SubsystemTags.CHAN,
		logs.SubsystemTags.VLDT,
		logs.SubsystemTags.DIFF,
		logs.SubsystemTags.CDB,
		logs.SubsystemTags.WKRP,
	} {
		logs.Get(tag).SetLevel(c.LogLevel)
	}
	return backend.Run()
}
