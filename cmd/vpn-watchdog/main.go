// VPN Watchdog — verifies that traffic actually flows through the intended
// tunnel and raises the alarm when it leaks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/core"
	"github.com/user/vpn-watchdog/internal/geoip"
	"github.com/user/vpn-watchdog/internal/guard"
	"github.com/user/vpn-watchdog/internal/logger"
	"github.com/user/vpn-watchdog/internal/netif"
	"github.com/user/vpn-watchdog/internal/ui"
)

var Version = "dev"

type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the watchdog (default)."`
	Check   CheckCmd   `cmd:"" help:"Run one poll cycle and print the verdict."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

type RunCmd struct {
	Config   string `help:"Path to the config file." type:"path"`
	Headless bool   `help:"Run without the tray icon."`
}

type CheckCmd struct {
	Config string `help:"Path to the config file." type:"path"`
}

type VersionCmd struct{}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("vpn-watchdog"),
		kong.Description("Continuously verify that traffic flows through the intended VPN tunnel."),
	)

	var err error
	switch {
	case ctx.Selected() != nil && ctx.Selected().Name == "version":
		fmt.Println(Version)
		return
	case ctx.Selected() != nil && ctx.Selected().Name == "check":
		err = runCheck(cli.Check)
	default:
		err = runWatchdog(cli.Run)
	}
	if err != nil {
		var code exitCodeError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitCodeError carries a process exit code through the normal error return
// path, so deferred cleanup (log sync, enricher close) runs before exiting.
type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", int(e))
}

func setup(configPath string) (*config.Manager, *core.Monitor, func(), error) {
	if configPath == "" {
		configPath = config.GetConfigPath()
	}

	mgr := config.NewManager(configPath)
	if err := mgr.Load(); err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	if err := logger.Init(config.GetConfigDir(), cfg.LogLevel); err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.L()

	var enricher *geoip.Enricher
	if cfg.GeoIP.CountryDB != "" || cfg.GeoIP.ASNDB != "" {
		var err error
		enricher, err = geoip.OpenEnricher(cfg.GeoIP.CountryDB, cfg.GeoIP.ASNDB)
		if err != nil {
			// Offline attribution is an optional extra; run without it.
			log.Warn("geoip databases unavailable", zap.Error(err))
		}
	}

	warnMissingInterfaces(cfg, log)

	guards := []guard.Guard{
		guard.NewRouting(mgr, log),
		guard.NewConnectivity(mgr, enricher, log),
		guard.NewDNS(mgr, enricher, log),
	}
	mon := core.NewMonitor(mgr, guards, log)

	cleanup := func() {
		mon.Stop()
		enricher.Close()
		logger.Sync()
	}
	return mgr, mon, cleanup, nil
}

// warnMissingInterfaces flags allow-list entries that don't exist on this
// host. A typo there would otherwise read as a permanent leak.
func warnMissingInterfaces(cfg *config.Config, log *zap.Logger) {
	if len(cfg.Routing.AllowedInterfaces) == 0 {
		return
	}
	present, err := netif.List()
	if err != nil {
		log.Warn("could not list host interfaces", zap.Error(err))
		return
	}
	if missing := netif.MissingFrom(cfg.Routing.AllowedInterfaces, present); len(missing) > 0 {
		log.Warn("allowed interfaces not present on this host",
			zap.Strings("interfaces", missing))
	}
}

func runWatchdog(cmd RunCmd) error {
	mgr, mon, cleanup, err := setup(cmd.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	log := logger.L()
	log.Info("watchdog starting", zap.String("version", Version))
	mon.Start()

	if cmd.Headless {
		mon.SetOnUpdate(func(state core.AggregateState) {
			log.Info("status update", zap.String("overall", string(state.Overall)))
		})
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		log.Info("watchdog stopping")
		return nil
	}

	// Blocks until the user quits from the tray menu.
	ui.Run(mgr, mon)
	return nil
}

func runCheck(cmd CheckCmd) error {
	_, mon, cleanup, err := setup(cmd.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	mon.Start()
	state := waitForVerdict(mon)

	for name, res := range state.PerGuard {
		fmt.Printf("%-14s %-8s %s\n", name, res.Status, res.Reason)
	}
	for _, adv := range state.Advisories {
		fmt.Printf("advisory: %s\n", adv)
	}
	fmt.Printf("overall: %s\n", state.Overall)

	return checkVerdict(state)
}

// checkVerdict maps the aggregate verdict to the check command's result:
// exit code 2 for anything but a clean Safe.
func checkVerdict(state core.AggregateState) error {
	if state.Overall != core.OverallSafe {
		return exitCodeError(2)
	}
	return nil
}

// waitForVerdict blocks until every enabled guard has reported, or gives up
// after the slowest plausible first cycle.
func waitForVerdict(mon *core.Monitor) core.AggregateState {
	done := make(chan core.AggregateState, 1)
	mon.SetOnUpdate(func(state core.AggregateState) {
		if state.Overall != core.OverallInitializing {
			select {
			case done <- state:
			default:
			}
		}
	})

	select {
	case state := <-done:
		return state
	case <-time.After(60 * time.Second):
		return mon.Snapshot()
	}
}
