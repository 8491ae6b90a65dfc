package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dcrodman/epchat/internal/chat"
	"github.com/dcrodman/epchat/internal/core"
	"github.com/dcrodman/epchat/internal/core/auth"
	"github.com/dcrodman/epchat/internal/core/data"
	"github.com/dcrodman/epchat/internal/core/debug"
)

// Controller is the main entrypoint for the chat server. It's responsible for
// initializing any shared resources (such as the database and logging),
// defining the server, and launching it.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	db     *gorm.DB
	server *chat.Server
}

// Start runs the chat server until ctx is cancelled. Errors setting up the
// logger, credential store, or listening socket are returned before the server
// starts accepting connections.
func (c *Controller) Start(ctx context.Context) error {
	defer c.Shutdown()

	var err error
	// Set up the logger, which will be used by everything else.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.Enabled {
		debug.StartUtilities(c.logger, c.Config.Debugging.PprofPort)
	}

	verifier, err := c.credentials()
	if err != nil {
		c.logger.Error(err)
		return err
	}

	c.server = &chat.Server{
		Name:        "CHAT",
		Config:      c.Config,
		Logger:      c.logger,
		Credentials: verifier,
	}
	if err := c.server.Init(ctx); err != nil {
		c.logger.Errorf("error initializing chat server: %v", err)
		return fmt.Errorf("error initializing chat server: %w", err)
	}
	return c.server.Run(ctx)
}

// credentials builds the verifier logins are checked against.
func (c *Controller) credentials() (auth.Verifier, error) {
	var verifier auth.Verifier
	switch strings.ToLower(c.Config.Credentials.Source) {
	case "database":
		db, err := data.Initialize(c.Config)
		if err != nil {
			return nil, fmt.Errorf("error initializing database: %w", err)
		}
		c.db = db
		verifier = &auth.AccountVerifier{DB: db, Logger: c.logger}
	case "file":
		verifier = &auth.FileVerifier{Path: c.Config.Credentials.File, Logger: c.logger}
	default:
		return nil, fmt.Errorf("unsupported credential source: %s", c.Config.Credentials.Source)
	}

	if ttl := c.Config.Credentials.CacheTTL; ttl > 0 {
		c.logger.Infof("caching successful logins for %v", ttl)
		verifier = auth.NewCachingVerifier(verifier, ttl)
	}
	return verifier, nil
}

// Shutdown releases the resources the controller opened.
func (c *Controller) Shutdown() {
	if c.db != nil {
		if err := data.Shutdown(c.db); err != nil && c.logger != nil {
			c.logger.Errorf("error closing database: %v", err)
		}
		c.db = nil
	}
	if c.logger != nil {
		c.logger.Info("shut down")
	}
}
