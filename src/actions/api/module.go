package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/stake-plus/bountyboard/src/actions/core"
	"github.com/stake-plus/bountyboard/src/bounty"
	sharedconfig "github.com/stake-plus/bountyboard/src/data/config"
)

var _ core.Module = (*Module)(nil)

// Module serves the HTTP API.
type Module struct {
	config *sharedconfig.APIConfig
	server *http.Server
}

func NewModule(cfg *sharedconfig.APIConfig, engine *bounty.Engine, dispatcher Dispatcher) (*Module, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("api: jwt secret not configured")
	}
	return &Module{
		config: cfg,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           New(cfg, engine, dispatcher),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Name implements actions.Module.
func (m *Module) Name() string { return "api" }

func (m *Module) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", m.server.Addr, err)
	}
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api: http: %v", err)
		}
	}()
	log.Printf("api: listening on %s", m.server.Addr)
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.server.Shutdown(shutCtx); err != nil {
		log.Printf("api: shutdown: %v", err)
	}
}
