package config

import (
	"errors"
	"io/fs"
	"math"
	"time"

	"github.com/spf13/viper"
)

// Server-wide constants. The wire-facing ones must match the client exactly.
const (
	// Network
	CursorBroadcastInterval = 16 * time.Millisecond // cursor coalescing tick
	OutboundQueueSize       = 256                   // frames buffered per connection
	RoomQueueSize           = 256                   // moves / cursor reqs buffered per room

	// Room settings
	DefaultPlayerCap = math.MaxInt // rooms are uncapped unless the form says otherwise
	RoomIDLength     = 16

	// Limits (config file overridable)
	DefaultBoardArea         = 10000
	DefaultRoomSlots         = 50
	DefaultFormSize          = 4096
	DefaultInboundPacketSize = 2048
)

// ServerConfig is the process configuration, loaded from a JSON file
// with sane defaults when the file is absent.
type ServerConfig struct {
	ListenOn string `mapstructure:"listen_on"`

	// TLS termination; plain HTTP when either path is empty.
	CertFile string `mapstructure:"cert"`
	KeyFile  string `mapstructure:"key"`

	// Served pages and static assets.
	AssetsDir string `mapstructure:"assets"`
	IndexPage string `mapstructure:"index"`
	RoomPage  string `mapstructure:"room_page"`

	// Limits
	BoardArea         int   `mapstructure:"board_area"`
	RoomSlots         int   `mapstructure:"room_slots"`
	FormSize          int64 `mapstructure:"form_size"`
	InboundPacketSize int   `mapstructure:"inbound_packet_size"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenOn:          "0.0.0.0:31235",
		AssetsDir:         "./assets",
		IndexPage:         "./assets/index.html",
		RoomPage:          "./assets/room.html",
		BoardArea:         DefaultBoardArea,
		RoomSlots:         DefaultRoomSlots,
		FormSize:          DefaultFormSize,
		InboundPacketSize: DefaultInboundPacketSize,
	}
}

// Load reads the JSON config file at path. A missing file is not an
// error: defaults are returned and the caller may log the fallback.
func Load(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return cfg, nil
		}
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
