package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile      = flag.String("log", "", "Write logs to this file")
	flagOptimization = flag.String("opt", "", "BSP optimization: lame, good or optimal")
	flagBalance      = flag.Int("balance", -1, "BSP balance 0..100")
	flagPortalBias   = flag.Int("portal-bias", -1, "BSP portal bias 0..100")
	flagPartition    = flag.Bool("partition", false, "Rebuild the tree from merged polygons after CSG")
	flagNoTJunctions = flag.Bool("no-tjunctions", false, "Skip the T-junction pass")
	flagMaxUndo      = flag.Int("max-undo", 0, "Undo queue depth")
	flagGrid         = flag.Float64("grid", 0, "Editor grid size")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagOptimization != "" {
		cfg.Build.Optimization = *flagOptimization
	}
	if *flagBalance >= 0 {
		cfg.Build.Balance = *flagBalance
	}
	if *flagPortalBias >= 0 {
		cfg.Build.PortalBias = *flagPortalBias
	}
	if *flagPartition {
		cfg.Build.Partition = true
	}
	if *flagNoTJunctions {
		cfg.Build.TJunctions = false
	}
	if *flagMaxUndo > 0 {
		cfg.Transactions.MaxUndo = *flagMaxUndo
	}
	if *flagGrid > 0 {
		cfg.Editor.Grid = *flagGrid
	}
}
