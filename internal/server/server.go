// Package server implements the language server: it keeps the open
// documents in step with the client and answers formatting requests.
package server

import (
	"fmt"
	"leptosls/internal/cache"
	"leptosls/internal/config"
	"leptosls/internal/format"
	"leptosls/internal/scheduler"
	"leptosls/internal/store"
	"leptosls/internal/syntax"
	"os"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const name = "leptosls"

var log = commonlog.GetLogger("leptosls.server")

type Server struct {
	handler   *protocol.Handler
	documents *store.Store
	version   string

	mu        sync.RWMutex
	config    config.Config
	trees     *syntax.Trees
	formatter format.Formatter
	cache     cache.Cache
	schedule  *scheduler.Scheduler

	// set by options
	fixedFormatter format.Formatter
	exit           func(code int)
	shutdown       bool
}

type Option func(*Server)

// WithFormatter replaces the configured external formatter.
func WithFormatter(f format.Formatter) Option {
	return func(s *Server) { s.fixedFormatter = f }
}

// WithVersion sets the version reported to clients.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithExit replaces os.Exit for the exit notification.
func WithExit(exit func(code int)) Option {
	return func(s *Server) { s.exit = exit }
}

// New creates a server using cfg until the client's initialization
// options say otherwise.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		documents: store.New(),
		version:   "(dev)",
		exit:      os.Exit,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = &protocol.Handler{
		Initialize:                  s.initialize,
		Initialized:                 s.initialized,
		Shutdown:                    s.shutdownHandler,
		Exit:                        s.exitHandler,
		SetTrace:                    s.setTrace,
		TextDocumentDidOpen:         s.textDocumentDidOpen,
		TextDocumentDidChange:       s.textDocumentDidChange,
		TextDocumentDidSave:         s.textDocumentDidSave,
		TextDocumentDidClose:        s.textDocumentDidClose,
		TextDocumentFormatting:      s.textDocumentFormatting,
		TextDocumentRangeFormatting: s.textDocumentRangeFormatting,
	}

	if err := s.configure(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the protocol handler table.
func (s *Server) Handler() *protocol.Handler {
	return s.handler
}

// Documents returns the store of open documents.
func (s *Server) Documents() *store.Store {
	return s.documents
}

// Config returns the configuration in effect.
func (s *Server) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// RunStdio serves the protocol on stdin and stdout.
func (s *Server) RunStdio(debug bool) error {
	return glspserver.NewServer(s.handler, name, debug).RunStdio()
}

// RunTCP serves the protocol on address.
func (s *Server) RunTCP(address string, debug bool) error {
	return glspserver.NewServer(s.handler, name, debug).RunTCP(address)
}

// configure builds the syntax, formatting and cache components for cfg and
// swaps them in, closing the previous ones.
func (s *Server) configure(cfg config.Config) error {
	trees, err := syntax.NewTrees(cfg.Macros)
	if err != nil {
		return fmt.Errorf("invalid macros: %w", err)
	}

	c := openCache(cfg)

	formatter := s.fixedFormatter
	if formatter == nil {
		cmd := &format.Command{
			Name:    cfg.Formatter.Command,
			Args:    cfg.Formatter.Args,
			Timeout: cfg.FormatTimeout(),
		}
		formatter = &format.Cached{Formatter: cmd, Cache: c, Salt: cmd.String()}
	}

	schedule := scheduler.NewScheduler(4)
	schedule.RunScheduler()
	if cfg.PruneInterval() > 0 && cfg.CacheTTL() > 0 {
		ttl := cfg.CacheTTL()
		prune := scheduler.Task{
			Name: "Prune Format Cache",
			Execute: func() error {
				n, err := c.Prune(time.Now().Add(-ttl))
				if err != nil {
					return err
				}
				if n > 0 {
					log.Infof("pruned %d format cache entries", n)
				}
				return nil
			},
		}
		if err := schedule.SchedulePeriodicTask(cfg.PruneInterval(), prune); err != nil {
			log.Errorf("failed to schedule cache pruning: %v", err)
		}
	}

	s.mu.Lock()
	oldTrees, oldCache, oldSchedule := s.trees, s.cache, s.schedule
	s.config = cfg
	s.trees = trees
	s.formatter = formatter
	s.cache = c
	s.schedule = schedule
	s.mu.Unlock()

	closeComponents(oldTrees, oldCache, oldSchedule)
	return nil
}

func openCache(cfg config.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return cache.NewMemory()
	}
	path, err := cfg.CachePath()
	if err != nil {
		log.Warningf("format cache unavailable, using memory: %v", err)
		return cache.NewMemory()
	}
	c, err := cache.NewSQLite(path)
	if err != nil {
		log.Warningf("format cache unavailable, using memory: %v", err)
		return cache.NewMemory()
	}
	log.Infof("format cache at %s", path)
	return c
}

func closeComponents(trees *syntax.Trees, c cache.Cache, schedule *scheduler.Scheduler) {
	if schedule != nil {
		schedule.StopScheduler()
	}
	if trees != nil {
		trees.Close()
	}
	if c != nil {
		if err := c.Close(); err != nil {
			log.Errorf("failed to close format cache: %v", err)
		}
	}
}

// Close releases every component. The server must not be used afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	trees, c, schedule := s.trees, s.cache, s.schedule
	s.trees, s.cache, s.schedule = nil, nil, nil
	s.mu.Unlock()

	closeComponents(trees, c, schedule)
}

type components struct {
	config    config.Config
	trees     *syntax.Trees
	formatter format.Formatter
}

func (s *Server) components() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.trees == nil {
		return components{}, fmt.Errorf("server is shut down")
	}
	return components{config: s.config, trees: s.trees, formatter: s.formatter}, nil
}
