// Package ui provides the system tray presentation for the watchdog. It is
// a pure consumer of core.AggregateState snapshots; all detection logic
// lives in the core.
package ui

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/systray"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/core"
	"github.com/user/vpn-watchdog/internal/guard"
	"github.com/user/vpn-watchdog/internal/logger"
)

var (
	monitor *core.Monitor
	cfgMgr  *config.Manager

	mStatus   *systray.MenuItem
	mGuards   map[string]*systray.MenuItem
	mAdvisory *systray.MenuItem
	mResume   *systray.MenuItem
	mQuit     *systray.MenuItem
)

// Run starts the tray and blocks until quit.
func Run(mgr *config.Manager, mon *core.Monitor) {
	cfgMgr = mgr
	monitor = mon
	systray.Run(onReady, onExit)
}

func onReady() {
	systray.SetIcon(GetIcon(core.OverallInitializing))
	systray.SetTitle("VPN Watchdog")
	systray.SetTooltip("VPN Watchdog — initializing")

	mStatus = systray.AddMenuItem("Status: initializing", "")
	mStatus.Disable()

	systray.AddSeparator()

	mGuards = map[string]*systray.MenuItem{
		guard.RoutingName:      systray.AddMenuItem("Routing: —", ""),
		guard.ConnectivityName: systray.AddMenuItem("Connectivity: —", ""),
		guard.DNSName:          systray.AddMenuItem("DNS: —", ""),
	}
	for _, item := range mGuards {
		item.Disable()
	}

	mAdvisory = systray.AddMenuItem("", "")
	mAdvisory.Disable()
	mAdvisory.Hide()

	systray.AddSeparator()

	mPause := systray.AddMenuItem("Pause monitoring", "")
	presets := cfgMgr.Get().PausePresets
	if len(presets) == 0 {
		presets = []int{5, 10, 60, 720}
	}
	for _, minutes := range presets {
		item := mPause.AddSubMenuItem(formatPausePreset(minutes), "")
		d := time.Duration(minutes) * time.Minute
		logger.SafeGo("tray-pause-item", func() {
			for range item.ClickedCh {
				monitor.Pause(d)
			}
		})
	}

	mResume = systray.AddMenuItem("Resume now", "")
	mResume.Disable()

	systray.AddSeparator()

	mQuit = systray.AddMenuItem("Quit", "")

	// Push every published state change into the menu.
	monitor.SetOnUpdate(func(state core.AggregateState) {
		updateUI(state)
	})
	updateUI(monitor.Snapshot())

	logger.SafeGo("tray-menu-loop", func() {
		for {
			select {
			case <-mResume.ClickedCh:
				monitor.Resume()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	})
}

func onExit() {
	monitor.Stop()
	logger.Sync()
}

func updateUI(state core.AggregateState) {
	systray.SetIcon(GetIcon(state.Overall))

	label := overallLabel(state)
	systray.SetTooltip("VPN Watchdog — " + label)
	mStatus.SetTitle("Status: " + label)

	for name, item := range mGuards {
		res, ok := state.PerGuard[name]
		if !ok {
			item.SetTitle(fmt.Sprintf("%s: disabled", titleCase(name)))
			continue
		}
		item.SetTitle(fmt.Sprintf("%s: %s", titleCase(name), res.Status))
		item.SetTooltip(res.Reason)
	}

	if len(state.Advisories) > 0 {
		mAdvisory.SetTitle("⚠ " + state.Advisories[0])
		mAdvisory.SetTooltip(strings.Join(state.Advisories, "\n"))
		mAdvisory.Show()
	} else {
		mAdvisory.Hide()
	}

	if state.Overall == core.OverallPaused {
		mResume.Enable()
	} else {
		mResume.Disable()
	}
}

func overallLabel(state core.AggregateState) string {
	if state.Overall == core.OverallPaused && !state.PausedUntil.IsZero() {
		return fmt.Sprintf("paused until %s", state.PausedUntil.Format("15:04"))
	}
	return string(state.Overall)
}

func formatPausePreset(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

func titleCase(name string) string {
	switch name {
	case guard.DNSName:
		return "DNS"
	default:
		return strings.ToUpper(name[:1]) + name[1:]
	}
}
