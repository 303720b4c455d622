// Package web serves the HTTP surface: the index and room pages, the
// room-creation form, the public listing, and the websocket upgrade
// that hands sockets to the room runtime.
package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/StaleHyena/websweeper/config"
	"github.com/StaleHyena/websweeper/internal/game"
	"github.com/StaleHyena/websweeper/internal/registry"
)

// Server wires the routes to the room registry.
type Server struct {
	cfg      *config.ServerConfig
	registry *registry.Registry
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer creates the HTTP front.
func NewServer(cfg *config.ServerConfig, reg *registry.Registry, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/rlist", s.handleListing).Methods(http.MethodGet)
	r.HandleFunc("/rspace", s.handleRoomSpace).Methods(http.MethodGet)
	r.HandleFunc("/r", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/room/{id}", s.handleRoomPage).Methods(http.MethodGet)
	r.HandleFunc("/room/{id}/ws", s.handleRoomSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.AssetsDir)))
	return r
}

// Run serves until the listener fails. TLS is used when both cert and
// key are configured.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:    s.cfg.ListenOn,
		Handler: s.Router(),
	}
	s.log.Info().Str("addr", s.cfg.ListenOn).Msg("serving")
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		return srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	}
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.IndexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleListing returns the public rooms plus their occupancy.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	payload, err := s.registry.Listing()
	if err != nil {
		s.log.Error().Err(err).Msg("couldn't serialize room listing")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleRoomSpace returns how many rooms can still be created, as
// plain text.
func (s *Server) handleRoomSpace(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "%d", s.registry.Space())
}

// handleCreateRoom validates the creation form and redirects to the
// new room's page.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.FormSize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	width, werr := strconv.Atoi(r.PostFormValue("bwidth"))
	height, herr := strconv.Atoi(r.PostFormValue("bheight"))
	ratioNum, nerr := strconv.Atoi(r.PostFormValue("mineratio-n"))
	ratioDenom, derr := strconv.Atoi(r.PostFormValue("mineratio-d"))
	if werr != nil || herr != nil || nerr != nil || derr != nil ||
		width < 1 || height < 1 || ratioNum < 0 || ratioDenom < 1 {
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	playerCap := config.DefaultPlayerCap
	if limit, err := strconv.Atoi(r.PostFormValue("limit")); err == nil && limit > 0 {
		playerCap = limit
	}

	conf := game.RoomConf{
		Name:      r.PostFormValue("rname"),
		PlayerCap: playerCap,
		Public:    r.PostFormValue("public") == "on",
		Board: game.BoardConf{
			Width:               width,
			Height:              height,
			MineRatio:           [2]int{ratioNum, ratioDenom},
			AlwaysSafeFirstMove: r.PostFormValue("allsafe1move") == "on",
			RevealedBorders:     r.PostFormValue("rborders") == "on",
			RevealOnLose:        r.PostFormValue("revealonlose") == "on",
			NumTileReveal:       r.PostFormValue("numtilereveal") != "off",
		},
	}

	room, err := s.registry.Create(conf)
	switch err {
	case nil:
	case registry.ErrBoardTooBig:
		http.Error(w, "Board too big", http.StatusBadRequest)
		return
	case registry.ErrNoRoomSlots:
		http.Error(w, "No more room slots", http.StatusBadRequest)
		return
	default:
		s.log.Error().Err(err).Msg("couldn't create room")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "./room/"+room.ID)
	w.WriteHeader(http.StatusSeeOther)
}

// handleRoomPage serves the room page for live rooms.
func (s *Server) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.registry.Get(id); !ok {
		http.Error(w, "No such room", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, s.cfg.RoomPage)
}

// handleRoomSocket upgrades the connection and hands it to the room.
// A full room closes the socket immediately after the upgrade.
func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	room, ok := s.registry.Get(id)
	if !ok {
		s.log.Info().Str("room", id).Str("peer", r.RemoteAddr).Msg("conn into inexistent room")
		http.Error(w, "No such room", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.log.Info().Str("room", id).Str("peer", ws.RemoteAddr().String()).Msg("incoming connection")

	if room.Players.Count() >= room.Conf.PlayerCap {
		ws.Close()
		return
	}

	c := newClient(ws, room, s.cfg.InboundPacketSize, s.log)
	go c.run()
}

var _ game.Conn = (*client)(nil)
