// Package config loads patchcanvas settings from TOML.
//
// A configuration file has four sections:
//
//	[editor]   grid, snapping, connection and drag settings for the canvas
//	[backend]  the runtime bridge (Redis URL, channel, tick interval)
//	[journal]  where mutations are recorded (none, file or mongo)
//	[server]   the read-only HTTP API
//
// Missing keys take the defaults from [Default]. Connection URIs may also come
// from the environment or a .env file, see [ApplyEnv].
package config

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/errors"
)

// AppName names the configuration directory.
const AppName = "patchcanvas"

// FileName is the configuration file looked up in each search directory.
const FileName = "config.toml"

// Journal backends.
const (
	JournalNone  = "none"
	JournalFile  = "file"
	JournalMongo = "mongo"
)

// Config is the full configuration.
type Config struct {
	Editor  Editor  `toml:"editor"`
	Backend Backend `toml:"backend"`
	Journal Journal `toml:"journal"`
	Server  Server  `toml:"server"`
}

// Editor holds canvas settings. See [canvas.Config] for their meaning.
type Editor struct {
	GridEnabled         bool     `toml:"grid_enabled"`
	GridSize            int      `toml:"grid_size"`
	SnapTolerance       int      `toml:"snap_tolerance"`
	SnapRange           int      `toml:"snap_range"`
	IoletHitMargin      int      `toml:"iolet_hit_margin"`
	ConnectDragDistance int      `toml:"connect_drag_distance"`
	OverlapTolerance    int      `toml:"overlap_tolerance"`
	SquareIolets        bool     `toml:"square_iolets"`
	MinDragMovement     int      `toml:"min_drag_movement"`
	DragRateLimit       bool     `toml:"drag_rate_limit"`
	MinNodeSize         int      `toml:"min_node_size"`
	LockTimeout         Duration `toml:"lock_timeout"`
}

// Backend configures the runtime side.
type Backend struct {
	// RedisURL enables the remote event bridge when set.
	RedisURL string `toml:"redis_url"`
	// Channel is the pub/sub channel for change notifications.
	Channel string `toml:"channel"`
	// TickInterval is the simulated execution thread's period.
	TickInterval Duration `toml:"tick_interval"`
}

// Journal configures mutation recording.
type Journal struct {
	Kind       string `toml:"kind"`
	Path       string `toml:"path"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
	Session    string `toml:"session"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "20ms".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() *Config {
	c := canvas.DefaultConfig()
	return &Config{
		Editor: Editor{
			GridEnabled:         c.GridEnabled,
			GridSize:            c.GridSize,
			SnapTolerance:       c.SnapTolerance,
			SnapRange:           c.SnapRange,
			IoletHitMargin:      c.IoletHitMargin,
			ConnectDragDistance: c.ConnectDragDistance,
			OverlapTolerance:    c.OverlapTolerance,
			SquareIolets:        c.SquareIolets,
			MinDragMovement:     c.MinDragMovement,
			DragRateLimit:       c.DragRateLimit,
			MinNodeSize:         c.MinNodeSize.X,
			LockTimeout:         Duration(c.LockTimeout),
		},
		Backend: Backend{
			Channel:      "patchcanvas:events",
			TickInterval: Duration(10 * time.Millisecond),
		},
		Journal: Journal{
			Kind:       JournalNone,
			Database:   AppName,
			Collection: "mutations",
			Session:    "default",
		},
		Server: Server{Addr: "127.0.0.1:8080"},
	}
}

// Parse decodes TOML data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. An empty path searches [SearchPaths] and
// returns the defaults when no file exists. The second result is the file
// that was read, or "" for defaults.
func Load(path string) (*Config, string, error) {
	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			return Default(), "", nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cfg, path, nil
}

// SearchPaths lists the config files tried by [Load], in order.
func SearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppName, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", AppName, FileName)
		if len(paths) == 0 || paths[0] != p {
			paths = append(paths, p)
		}
	}
	return paths
}

// Validate checks ranges and combinations.
func (c *Config) Validate() error {
	e := c.Editor
	switch {
	case e.GridSize <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "editor.grid_size must be positive")
	case e.SnapTolerance <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "editor.snap_tolerance must be positive")
	case e.SnapRange < e.SnapTolerance:
		return errors.New(errors.ErrCodeInvalidConfig, "editor.snap_range (%d) must be at least snap_tolerance (%d)", e.SnapRange, e.SnapTolerance)
	case e.IoletHitMargin < 0 || e.OverlapTolerance < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "editor margins must not be negative")
	case e.LockTimeout <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "editor.lock_timeout must be positive")
	}

	switch c.Journal.Kind {
	case "", JournalNone:
	case JournalFile:
		if c.Journal.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "journal.path is required for the file journal")
		}
	case JournalMongo:
		if c.Journal.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "journal.mongo_uri is required for the mongo journal")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown journal kind %q", c.Journal.Kind)
	}
	return nil
}

// Canvas converts the editor section.
func (c *Config) Canvas() canvas.Config {
	e := c.Editor
	return canvas.Config{
		GridEnabled:         e.GridEnabled,
		GridSize:            e.GridSize,
		SnapTolerance:       e.SnapTolerance,
		SnapRange:           e.SnapRange,
		IoletHitMargin:      e.IoletHitMargin,
		ConnectDragDistance: e.ConnectDragDistance,
		OverlapTolerance:    e.OverlapTolerance,
		SquareIolets:        e.SquareIolets,
		MinDragMovement:     e.MinDragMovement,
		DragRateLimit:       e.DragRateLimit,
		MinNodeSize:         image.Pt(e.MinNodeSize, e.MinNodeSize),
		LockTimeout:         e.LockTimeout.Std(),
	}
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
