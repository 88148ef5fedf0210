// Package config loads the terminal's TOML configuration tree.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full configuration tree read from terminal.toml.
type Config struct {
	Display DisplayConfig `toml:"display"`
	API     APIConfig     `toml:"api"`
	Offline OfflineConfig `toml:"offline"`
	RFID    RFIDConfig    `toml:"rfid"`
	Audio   AudioConfig   `toml:"audio"`
	Locale  LocaleConfig  `toml:"locale"`
	Company CompanyConfig `toml:"company"`
}

// DisplayConfig configures the (out-of-scope) rendering layer. The terminal
// core only parses these fields; it never draws anything.
type DisplayConfig struct {
	Resolution         string  `toml:"resolution"`
	Fullscreen         bool    `toml:"fullscreen"`
	Orientation        string  `toml:"orientation"`
	Theme              string  `toml:"theme"`
	FontScale          float32 `toml:"font_scale"`
	IdleTimeoutSeconds uint64  `toml:"idle_timeout_seconds"`
	ErrorTimeoutSeconds uint64 `toml:"error_timeout_seconds"`
}

// ResolutionWidth returns the parsed width, falling back to 1024 on a
// malformed resolution string.
func (d DisplayConfig) ResolutionWidth() uint32 {
	w, _ := d.parseResolution()
	return w
}

// ResolutionHeight returns the parsed height, falling back to 600 on a
// malformed resolution string.
func (d DisplayConfig) ResolutionHeight() uint32 {
	_, h := d.parseResolution()
	return h
}

func (d DisplayConfig) parseResolution() (uint32, uint32) {
	parts := strings.Split(d.Resolution, "x")
	if len(parts) != 2 {
		return 1024, 600
	}
	w, errW := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	h, errH := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if errW != nil || errH != nil {
		return 1024, 600
	}
	return uint32(w), uint32(h)
}

// APIConfig configures the attendance server connection.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds uint64 `toml:"timeout_seconds"`
	RetryAttempts  uint32 `toml:"retry_attempts"`
	// TerminalID must be unique per physical device; it is sent with every
	// scan so the server can distinguish concurrent scans from different kiosks.
	TerminalID string `toml:"terminal_id"`
}

// OfflineConfig configures the durable offline event buffer.
type OfflineConfig struct {
	BufferPath          string `toml:"buffer_path"`
	SyncIntervalSeconds uint64 `toml:"sync_interval_seconds"`
	MaxBufferSize       uint32 `toml:"max_buffer_size"`
}

// RFIDConfig configures badge scanning.
type RFIDConfig struct {
	InputDevice string `toml:"input_device"`
	DebounceMs  uint64 `toml:"debounce_ms"`
}

// AudioConfig configures the (out-of-scope) audio feedback layer.
type AudioConfig struct {
	Enabled      bool    `toml:"enabled"`
	SuccessSound string  `toml:"success_sound"`
	ErrorSound   string  `toml:"error_sound"`
	Volume       float32 `toml:"volume"`
}

// LocaleConfig configures display language.
type LocaleConfig struct {
	Language string `toml:"language"`
}

// CompanyConfig configures display branding.
type CompanyConfig struct {
	Name     string `toml:"name"`
	LogoPath string `toml:"logo_path"`
}

// Default returns the built-in configuration used when no terminal.toml can
// be loaded. Mirrors original_source/terminal/src/config.rs's Default impl.
func Default() Config {
	return Config{
		Display: DisplayConfig{
			Resolution:          "1024x600",
			Fullscreen:          true,
			Orientation:         "landscape",
			Theme:               "dark",
			FontScale:           1.0,
			IdleTimeoutSeconds:  8,
			ErrorTimeoutSeconds: 5,
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8080/api",
			TimeoutSeconds: 10,
			RetryAttempts:  3,
			TerminalID:     "terminal-01",
		},
		Offline: OfflineConfig{
			BufferPath:          "/var/lib/zeiterfassung/buffer.db",
			SyncIntervalSeconds: 30,
			MaxBufferSize:       10000,
		},
		RFID: RFIDConfig{
			InputDevice: "auto",
			DebounceMs:  500,
		},
		Audio: AudioConfig{
			Enabled:      true,
			SuccessSound: "assets/sounds/success.wav",
			ErrorSound:   "assets/sounds/error.wav",
			Volume:       0.7,
		},
		Locale: LocaleConfig{
			Language: "de",
		},
		Company: CompanyConfig{
			Name:     "Firma GmbH",
			LogoPath: "assets/logo.png",
		},
	}
}

// Load reads and parses the TOML configuration at path.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Path resolves the configuration file location from CONFIG_PATH, falling
// back to terminal.toml in the working directory.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "terminal.toml"
}
