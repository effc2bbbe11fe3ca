package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"
	"resolvecache/internal/cache"
	"resolvecache/internal/upstream"
)

const (
	defaultConfigFilename  = "resolvecached.conf"
	defaultLogFilename     = "resolvecached.log"
	defaultLogDirname      = "logs"
	defaultListen          = "127.0.0.1:8053"
	defaultLogLevel        = "info"
	defaultMaxLogFiles     = 3
	defaultMaxLogFileSize  = 10
	defaultCapacity        = 1024
	defaultShutdownTimeout = 10 * time.Second
	defaultMetricNamespace = "resolvecache"

	upstreamModeSimulated = "simulated"
	upstreamModeDNS       = "dns"
)

var (
	defaultHomeDir    = cleanAndExpandPath("~/.resolvecached")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

type cacheConfig struct {
	Capacity       int           `long:"capacity" description:"Maximum number of entries held at once"`
	TTL            time.Duration `long:"ttl" description:"Lifetime of an entry after it is resolved"`
	SweepInterval  time.Duration `long:"sweepinterval" description:"How often expired entries are removed in the background"`
	CoalesceMisses bool          `long:"coalescemisses" description:"Release the cache lock during upstream calls and share one call among concurrent misses on the same key"`
}

type upstreamConfig struct {
	Mode string `long:"mode" description:"The upstream resolver to use" choice:"simulated" choice:"dns"`

	Latency  time.Duration `long:"latency" description:"Simulated resolver latency; negative disables the delay"`
	Prefix   string        `long:"prefix" description:"First three octets of simulated addresses"`
	NotFound []string      `long:"notfound" description:"Key the simulated resolver fails to resolve; may be repeated"`

	DNSServer  string        `long:"dnsserver" description:"host:port of the DNS server to query"`
	DNSNet     string        `long:"dnsnet" description:"Transport used to reach the DNS server" choice:"udp" choice:"tcp" choice:"tcp-tls"`
	DNSTimeout time.Duration `long:"dnstimeout" description:"Timeout for a single DNS exchange"`
	IPv6       bool          `long:"ipv6" description:"Query AAAA instead of A records"`
}

type prometheusConfig struct {
	Enable    bool   `long:"enable" description:"Serve Prometheus metrics on /metrics"`
	Namespace string `long:"namespace" description:"Namespace prefixed to every exported metric"`
}

// config defines the configuration options for resolvecached.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	Listen          string        `long:"listen" description:"Interface and port the HTTP API listens on"`
	ShutdownTimeout time.Duration `long:"shutdowntimeout" description:"How long in-flight requests may take to finish on shutdown"`
	Prefetch        []string      `long:"prefetch" description:"Key resolved once at startup to warm the cache; may be repeated"`

	LogDir         string `long:"logdir" description:"Directory to log output"`
	NoLogFile      bool   `long:"nologfile" description:"Only log to the console"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	Cache      *cacheConfig      `group:"cache" namespace:"cache"`
	Upstream   *upstreamConfig   `group:"upstream" namespace:"upstream"`
	Prometheus *prometheusConfig `group:"prometheus" namespace:"prometheus"`

	// configFileErr is set when the config file could not be read. It is
	// reported once logging is up.
	configFileErr error
}

// defaultConfig returns all default values for the config.
func defaultConfig() config {
	return config{
		ConfigFile:      defaultConfigFile,
		Listen:          defaultListen,
		ShutdownTimeout: defaultShutdownTimeout,
		LogDir:          defaultLogDir,
		MaxLogFiles:     defaultMaxLogFiles,
		MaxLogFileSize:  defaultMaxLogFileSize,
		DebugLevel:      defaultLogLevel,
		Cache: &cacheConfig{
			Capacity:      defaultCapacity,
			TTL:           cache.DefaultTTL,
			SweepInterval: cache.DefaultSweepInterval,
		},
		Upstream: &upstreamConfig{
			Mode:       upstreamModeSimulated,
			Latency:    upstream.DefaultSimulatedLatency,
			Prefix:     upstream.DefaultSimulatedPrefix,
			DNSServer:  upstream.DefaultDNSServer,
			DNSNet:     "udp",
			DNSTimeout: upstream.DefaultDNSTimeout,
		},
		Prometheus: &prometheusConfig{
			Namespace: defaultMetricNamespace,
		},
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := defaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, err
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	configFilePath := cleanAndExpandPath(preCfg.ConfigFile)
	if err := flags.IniParse(configFilePath, &cfg); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := flags.NewParser(&cfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, err
	}

	cfg.configFileErr = configFileError

	return validateConfig(cfg)
}

// validateConfig checks that the given configuration is sane and normalizes
// all file system paths.
func validateConfig(cfg config) (*config, error) {
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	switch {
	case cfg.Listen == "":
		return nil, errors.New("listen address must be set")

	case cfg.Cache.Capacity <= 0:
		return nil, fmt.Errorf("cache.capacity must be positive, got %d",
			cfg.Cache.Capacity)

	case cfg.Cache.TTL < 0:
		return nil, fmt.Errorf("cache.ttl must not be negative, got %v",
			cfg.Cache.TTL)

	case cfg.Cache.SweepInterval < 0:
		return nil, fmt.Errorf("cache.sweepinterval must not be "+
			"negative, got %v", cfg.Cache.SweepInterval)

	case cfg.MaxLogFiles < 0:
		return nil, errors.New("maxlogfiles must not be negative")

	case !cfg.NoLogFile && cfg.MaxLogFileSize <= 0:
		return nil, errors.New("maxlogfilesize must be positive")

	case cfg.Prometheus.Enable && cfg.Prometheus.Namespace == "":
		return nil, errors.New("prometheus.namespace must be set when " +
			"metrics are enabled")
	}

	if cfg.Upstream.Mode == upstreamModeDNS &&
		cfg.Upstream.DNSServer == "" {

		return nil, errors.New("upstream.dnsserver must be set in dns " +
			"mode")
	}

	return &cfg, nil
}

// newResolver builds the upstream resolver selected by cfg.
func newResolver(cfg *upstreamConfig) (cache.Resolver, error) {
	switch cfg.Mode {
	case upstreamModeSimulated:
		return upstream.NewSimulated(upstream.SimulatedConfig{
			Latency:  cfg.Latency,
			Prefix:   cfg.Prefix,
			NotFound: cfg.NotFound,
		}), nil

	case upstreamModeDNS:
		return upstream.NewDNS(upstream.DNSConfig{
			Server:  cfg.DNSServer,
			Net:     cfg.DNSNet,
			Timeout: cfg.DNSTimeout,
			IPv6:    cfg.IPv6,
		}), nil

	default:
		return nil, fmt.Errorf("unknown upstream mode %q", cfg.Mode)
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
