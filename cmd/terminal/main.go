// Command terminal runs the RFID time-and-attendance kiosk: it scans
// badges, resolves them against the attendance server, buffers scans
// durably while offline, and replays them once connectivity returns.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagarinlg/zeiterfassung-terminal/internal/apiclient"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/audio"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/bufferstore"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/buildinfo"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/config"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/monitor"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/rfid"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/state"
	"github.com/gagarinlg/zeiterfassung-terminal/internal/syncworker"
)

const monitorPort = 7777

func main() {
	log.Printf("%s starting (%s)", buildinfo.DisplayName, buildinfo.FullVersion())

	cfg := loadConfig()
	log.Printf("resolution=%dx%d api=%s locale=%s",
		cfg.Display.ResolutionWidth(), cfg.Display.ResolutionHeight(), cfg.API.BaseURL, cfg.Locale.Language)

	buffer := openBuffer(cfg.Offline)
	defer buffer.Close()

	client := apiclient.New(apiclient.Config{
		BaseURL:        cfg.API.BaseURL,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
		RetryAttempts:  cfg.API.RetryAttempts,
	})

	cue := audio.New(audio.Config{Enabled: cfg.Audio.Enabled, Volume: cfg.Audio.Volume})

	mon := monitor.New(cfg.API.TerminalID, monitorPort)
	if err := mon.Start(); err != nil {
		log.Printf("monitor: failed to start, continuing without it: %v", err)
	}
	defer mon.Stop()

	msgCh := make(chan state.Msg, 32)

	machineCfg := state.Config{
		TerminalID:          cfg.API.TerminalID,
		IdleTimeoutSeconds:  int(cfg.Display.IdleTimeoutSeconds),
		ErrorTimeoutSeconds: int(cfg.Display.ErrorTimeoutSeconds),
	}
	dispatch := func(tag string) {
		resp, err := client.Scan(tag, cfg.API.TerminalID)
		if err != nil {
			msgCh <- state.NewScanResultErr(err)
			return
		}
		msgCh <- state.NewScanResultOK(resp)
	}
	machine := state.New(machineCfg, client, buffer, cue, time.Now, dispatch)

	source := newRFIDSource(cfg.RFID)
	defer source.Close()

	worker := syncworker.New(client, buffer)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pollTicker := time.NewTicker(50 * time.Millisecond)
	defer pollTicker.Stop()
	secondTicker := time.NewTicker(time.Second)
	defer secondTicker.Stop()
	syncTicker := time.NewTicker(syncInterval(cfg.Offline.SyncIntervalSeconds))
	defer syncTicker.Stop()

	log.Println("terminal ready, waiting for scans")

	for {
		select {
		case <-sigCh:
			log.Println("shutdown signal received")
			return

		case <-pollTicker.C:
			if tag, ok := source.Poll(); ok {
				msgCh <- state.NewRfidScanned(tag)
			}

		case <-secondTicker.C:
			msgCh <- state.NewTick()

		case <-syncTicker.C:
			go runSyncPass(worker, buffer, msgCh, mon)

		case msg := <-msgCh:
			machine.Handle(msg)
			publishState(mon, machine)
		}
	}
}

// minSyncInterval is the floor on the Sync Worker's tick period (§4.4): a
// misconfigured terminal.toml can never turn sync into a busy-loop against
// the attendance server.
const minSyncInterval = 5 * time.Second

func syncInterval(configuredSeconds uint64) time.Duration {
	d := time.Duration(configuredSeconds) * time.Second
	if d < minSyncInterval {
		return minSyncInterval
	}
	return d
}

func loadConfig() config.Config {
	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("failed to load config from %s, using defaults: %v", path, err)
		return config.Default()
	}
	return cfg
}

func openBuffer(cfg config.OfflineConfig) *bufferstore.Buffer {
	buf, err := bufferstore.Open(cfg.BufferPath, cfg.MaxBufferSize)
	if err != nil {
		log.Printf("failed to open event buffer at %s, falling back to in-memory: %v", cfg.BufferPath, err)
		buf, err = bufferstore.Open(":memory:", cfg.MaxBufferSize)
		if err != nil {
			log.Fatalf("failed to open in-memory event buffer: %v", err)
		}
	}
	return buf
}

func newRFIDSource(cfg config.RFIDConfig) rfid.Source {
	if cfg.InputDevice == "stdin" {
		return rfid.NewStdinSource(os.Stdin, time.Duration(cfg.DebounceMs)*time.Millisecond)
	}
	return rfid.NewUSBSource(cfg.InputDevice, time.Duration(cfg.DebounceMs)*time.Millisecond)
}

func runSyncPass(worker *syncworker.Worker, buffer *bufferstore.Buffer, msgCh chan<- state.Msg, mon *monitor.Server) {
	count, err := worker.Run()
	if err != nil {
		log.Printf("sync pass failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("synced %d buffered event(s)", count)
	}

	pending, err := buffer.PendingCount()
	if err != nil {
		log.Printf("sync pass: failed to read pending count: %v", err)
	}
	mon.BroadcastSync(monitor.SyncSnapshot{SyncedCount: count, PendingCount: int(pending)})

	msgCh <- state.NewSyncComplete(count)
}

func publishState(mon *monitor.Server, machine *state.Machine) {
	mon.BroadcastState(monitor.StateSnapshot{
		Screen:       machine.Current().Kind().String(),
		PendingCount: machine.PendingCount(),
		Online:       machine.IsOnline(),
	})
}
