package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/relink/internal/bridge"
	"github.com/standardbeagle/relink/internal/config"
	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/internal/library"
	"github.com/standardbeagle/relink/internal/mcp"
	"github.com/standardbeagle/relink/internal/prefs"
	"github.com/standardbeagle/relink/internal/remediate"
	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/internal/tui"
	"github.com/standardbeagle/relink/pkg/events"
)

var (
	// Version is set at build time
	Version = "dev"

	configPath  string
	bridgePort  int
	noTUI       bool
	noWatch     bool
	mcpMode     bool
	debugMode   bool
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "relinkd [document.json]",
	Short: "Design-token lint engine: find and fix style values not linked to tokens",
	Long: `Relinkd scans a design document for raw colors, spacing, corner radii,
typography and opacity that are not bound to a design-token variable,
groups the findings for bulk action, and applies bind/unbind fixes.

Basic Usage:
  relinkd design.json           # Open a snapshot, serve the panel bridge, show the console
  relinkd                       # Start against an empty in-memory document
  relinkd --no-tui design.json  # Headless: panel bridge only
  relinkd --mcp design.json     # Serve agent tools on stdio instead of the bridge

Panel Bridge:
  The UI panel connects over websocket at ws://<host>:<port>/panel and
  speaks the scan/unbind/bind/select/watch command protocol. Default
  port is 7373; --port overrides the configured value.

Watch Mode:
  While the snapshot file is open, edits to it are picked up
  automatically; a panel that started a watch gets a debounced rescan
  after every change burst.

Configuration:
  ~/.relink/relink.toml         # User configuration (see --config)`,
	Args: cobra.MaximumNArgs(1),
	Run:  runApp,
}

func init() {
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a relink.toml (default: ~/.relink/relink.toml)")
	rootCmd.Flags().IntVarP(&bridgePort, "port", "p", 0, "Panel bridge port (overrides configuration)")
	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Run headless (panel bridge only)")
	rootCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the snapshot file for edits")
	rootCmd.Flags().BoolVar(&mcpMode, "mcp", false, "Serve MCP tools on stdio (no TUI, no bridge)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) {
	if showVersion {
		fmt.Printf("relinkd version %s\n", Version)
		return
	}

	cfg, err := config.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if bridgePort > 0 {
		cfg.Bridge.Port = bridgePort
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "relink",
		Output: os.Stderr,
		Level:  logLevel(cfg.Log.Level, debugMode),
	})

	bus := events.NewBus()
	defer bus.Shutdown()

	// Open the document: a snapshot file when given, an empty
	// in-memory page otherwise.
	var host *document.Memory
	if len(args) == 1 {
		host, err = document.LoadSnapshot(args[0], logger.Named("document"))
		if err != nil {
			log.Fatal("Failed to open document:", err)
		}
		if !noWatch {
			watcher, err := document.WatchSnapshot(host, args[0], logger.Named("document"))
			if err != nil {
				log.Fatal("Failed to watch document:", err)
			}
			defer watcher.Stop()
		}
	} else {
		host = document.NewMemory(logger.Named("document"))
	}

	// Team library activation is optional; without a service URL,
	// remote bindings classify as missing or inactive.
	if cfg.Library.ServiceURL != "" {
		var catalog *library.Catalog
		if cfg.Library.CatalogPath != "" {
			catalog, err = library.LoadCatalog(cfg.Library.CatalogPath)
			if err != nil {
				log.Fatal("Failed to load library catalog:", err)
			}
		}
		client := library.NewClient(cfg.Library.ServiceURL, catalog, logger.Named("library"))
		host.VariableStore().SetImporter(client)
	}

	engine := scan.NewEngine(host, bus, logger.Named("scan"), scan.Options{
		FailOpenVisibility: cfg.Scan.FailOpenVisibility,
	})
	actor := remediate.NewActor(host, bus, logger.Named("remediate"))

	if mcpMode {
		srv := mcp.NewServer(host, engine, actor, logger.Named("mcp"), Version)
		if err := srv.ServeStdio(); err != nil {
			log.Fatal("MCP server error:", err)
		}
		return
	}

	svc := bridge.NewService(host, engine, actor, bus, logger.Named("bridge"), bridge.ServiceOptions{
		DocID:        host.DocID(),
		Debounce:     cfg.Watch.Debounce(),
		Prefs:        prefs.NewStore(prefsDir(), logger.Named("prefs")),
		IgnoreHidden: cfg.Scan.IgnoreHiddenLayers,
	})

	server := bridge.NewServer(svc, bus, cfg.Bridge.Host, cfg.Bridge.Port, logger.Named("panel"))
	if err := server.Start(); err != nil {
		log.Fatal("Failed to start panel bridge:", err)
	}
	defer server.Stop()

	if noTUI {
		fmt.Printf("Panel bridge listening on %s:%d (ws://.../panel)\n", cfg.Bridge.Host, server.Port())
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return
	}

	if err := tui.Run(svc); err != nil {
		log.Fatal("Console error:", err)
	}
}

// resolveConfigPath prefers the --config flag, falling back to the
// user configuration path. LoadConfig copes with the file not being
// there.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return config.GetUserConfigPath()
}

// logLevel maps the configured level string, with --debug winning.
func logLevel(configured string, debug bool) hclog.Level {
	if debug {
		return hclog.Debug
	}
	level := hclog.LevelFromString(configured)
	if level == hclog.NoLevel {
		return hclog.Info
	}
	return level
}

func prefsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "relink-prefs")
	}
	return filepath.Join(home, ".relink", "prefs")
}
