// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/oneepicnight/vision-node/chaincfg"
	"github.com/oneepicnight/vision-node/logger"
	"github.com/oneepicnight/vision-node/util"
	"github.com/oneepicnight/vision-node/util/network"
	"github.com/oneepicnight/vision-node/version"
)

const (
	defaultConfigFilename = "visiond.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "visiond.log"
	defaultErrLogFilename = "visiond_err.log"
	defaultMaxPeers       = 125
	defaultMinSyncPeers   = 2
)

var (
	// DefaultHomeDir is the default home directory for visiond.
	DefaultHomeDir = util.AppDataDir("visiond", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

var activeConfig *Config

// Flags defines the configuration options for visiond.
//
// See loadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion   bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile    string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string   `long:"logdir" description:"Directory to log output"`
	DebugLevel    string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	Listeners     []string `long:"listen" description:"Add an interface/port to listen for connections (default all interfaces, chain default port)"`
	DisableListen bool     `long:"nolisten" description:"Disable listening for incoming connections"`
	ConnectPeers  []string `long:"connect" description:"Connect to the specified peer at startup and maintain the connection"`
	MaxPeers      int      `long:"maxpeers" description:"Max number of inbound and outbound peers"`
	MinSyncPeers  int      `long:"minsyncpeers" description:"Number of connected peers required before mining is considered safe"`
	Proxy         string   `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser     string   `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass     string   `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	Generate      bool     `long:"generate" description:"Generate (mine) blocks using the CPU"`
	MinerTag      string   `long:"minertag" description:"Arbitrary tag embedded in the coinbase of mined blocks"`
	MetricsListen string   `long:"metricslisten" description:"Interface/port to serve Prometheus metrics on (empty disables metrics)"`
	PeerID        string   `long:"peerid" description:"Override the randomly generated peer id (for tests)"`
	SimNet        bool     `long:"simnet" description:"Use the simulation test network"`
}

// Config defines the configuration options for visiond.
type Config struct {
	*Flags
	NetParams *chaincfg.Params
}

// ActiveConfig returns the currently active configuration.
func ActiveConfig() *Config {
	return activeConfig
}

// LoadAndSetActiveConfig loads the configuration and sets it as the
// globally active one.
func LoadAndSetActiveConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	activeConfig = cfg
	return nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfgFlags *Flags, options flags.Options) *flags.Parser {
	return flags.NewParser(cfgFlags, options)
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig() (*Config, error) {
	cfgFlags := Flags{
		ConfigFile:   defaultConfigFile,
		DataDir:      defaultDataDir,
		LogDir:       defaultLogDir,
		DebugLevel:   defaultLogLevel,
		MaxPeers:     defaultMaxPeers,
		MinSyncPeers: defaultMinSyncPeers,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfgFlags
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		return nil, err
	}

	appName := filepath.Base(os.Args[0])
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, version.Version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := newConfigParser(&cfgFlags, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing config file %s",
				preCfg.ConfigFile)
		}
	} else if preCfg.ConfigFile != defaultConfigFile {
		return nil, errors.Errorf("config file %s does not exist",
			preCfg.ConfigFile)
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	cfg := &Config{Flags: &cfgFlags}
	if cfg.SimNet {
		cfg.NetParams = &chaincfg.SimnetParams
	} else {
		cfg.NetParams = &chaincfg.MainnetParams
	}

	// Append the network name to the data and log directories so data of
	// different networks never mixes.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir),
		cfg.NetParams.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir),
		cfg.NetParams.Name)
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	defaultPort := cfg.NetParams.DefaultPort
	if len(cfg.Listeners) == 0 && !cfg.DisableListen {
		cfg.Listeners = []string{":" + defaultPort}
	}
	if cfg.DisableListen {
		cfg.Listeners = nil
	}
	var err error
	cfg.Listeners, err = network.NormalizeAddresses(cfg.Listeners, defaultPort)
	if err != nil {
		return nil, err
	}
	cfg.ConnectPeers, err = network.NormalizeAddresses(cfg.ConnectPeers,
		defaultPort)
	if err != nil {
		return nil, err
	}

	if cfg.MinSyncPeers < 1 {
		return nil, errors.New("minsyncpeers must be at least 1")
	}

	// Initialize log rotation. After this point the standard logging
	// infrastructure writes to the configured directory.
	logger.InitLog(filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename))
	if err := logger.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = filepath.Join(homeDir, path[1:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}
