// Command sweepserver runs the shared-board minesweeper server.
//
// Architecture Overview:
// - Clients connect over websockets to named rooms
// - Each room runs its own game loop and cursor tracker goroutine
// - Board snapshots are deflate-compressed and broadcast to the room
// - Cursor updates are coalesced on a 16ms tick
//
// Connection Flow:
// 1. Client upgrades at /room/<id>/ws
// 2. Client sends a register command with display name and color
// 3. Server acks with the assigned uid and board configuration
// 4. Client sends reveal/flag/pos commands, server broadcasts state
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/StaleHyena/websweeper/config"
	"github.com/StaleHyena/websweeper/internal/registry"
	"github.com/StaleHyena/websweeper/internal/web"
)

const defaultConfFile = "./conf.json"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("couldn't load configuration")
	}

	logger.Info().Msg("=================================")
	logger.Info().Msg("  websweeper server")
	logger.Info().Msg("=================================")
	logger.Info().Str("listen_on", cfg.ListenOn).Msg("config")
	logger.Info().Int("board_area", cfg.BoardArea).Msg("config")
	logger.Info().Int("room_slots", cfg.RoomSlots).Msg("config")
	logger.Info().Int("inbound_packet_size", cfg.InboundPacketSize).Msg("config")

	reg := registry.New(cfg, logger)
	srv := web.NewServer(cfg, reg, logger)

	var g errgroup.Group
	g.Go(srv.Run)
	g.Go(func() error {
		statsLoop(reg, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// loadConfig reads the JSON config file, with environment overrides
// for the file path and listen address.
func loadConfig() (*config.ServerConfig, error) {
	path := defaultConfFile
	if env := os.Getenv("CONF_FILE"); env != "" {
		path = env
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if listen := os.Getenv("LISTEN_ON"); listen != "" {
		cfg.ListenOn = listen
	}
	return cfg, nil
}

// statsLoop logs registry statistics every 5 minutes (only when active).
func statsLoop(reg *registry.Registry, logger zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		stats := reg.GetStats()
		if stats.TotalRooms > 0 || stats.TotalPlayers > 0 {
			logger.Info().
				Int("rooms", stats.TotalRooms).
				Int("players", stats.TotalPlayers).
				Msg("stats")
		}
	}
}
