package ui

import (
	"bytes"
	"image/png"
	"sync"
	"testing"

	"github.com/user/vpn-watchdog/internal/core"
)

func TestGetIconDistinctPerStatus(t *testing.T) {
	statuses := []core.OverallStatus{
		core.OverallInitializing,
		core.OverallSafe,
		core.OverallUnsafe,
		core.OverallPaused,
	}

	seen := make(map[string]core.OverallStatus)
	for _, st := range statuses {
		data := GetIcon(st)
		if len(data) == 0 {
			t.Fatalf("empty icon for %s", st)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("icon for %s is not a PNG: %v", st, err)
		}
		if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
			t.Fatalf("icon for %s has bounds %v", st, b)
		}
		if prev, dup := seen[string(data)]; dup {
			t.Fatalf("statuses %s and %s share an icon", prev, st)
		}
		seen[string(data)] = st
	}
}

func TestGetIconStable(t *testing.T) {
	a := GetIcon(core.OverallSafe)
	b := GetIcon(core.OverallSafe)
	if !bytes.Equal(a, b) {
		t.Fatal("icon differs between calls")
	}
}

// Guard folds can publish their first results concurrently at startup, so
// GetIcon is hit from several goroutines at once.
func TestGetIconConcurrentUse(t *testing.T) {
	statuses := []core.OverallStatus{
		core.OverallInitializing,
		core.OverallSafe,
		core.OverallUnsafe,
		core.OverallPaused,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if len(GetIcon(statuses[j%len(statuses)])) == 0 {
					t.Error("empty icon")
					return
				}
			}
		}()
	}
	wg.Wait()
}
