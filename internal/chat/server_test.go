package chat

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dcrodman/epchat/internal/core"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(username, password string) bool {
	want, ok := v[username]
	return ok && want == password
}

var testAccounts = staticVerifier{
	"alice": "secret",
	"bob":   "hunter2",
	"carol": "letmein",
}

func testConfig(t *testing.T, capacity int) *core.Config {
	t.Helper()
	cfg, err := core.LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("error loading config: %v", err)
	}
	cfg.Hostname = "127.0.0.1"
	cfg.Port = 0
	cfg.MaxConnections = capacity
	return cfg
}

func testLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// newBareServer returns a server with its tables set up but no sockets.
func newBareServer(t *testing.T, capacity int) *Server {
	t.Helper()
	logger, _ := testLogger()
	cfg := testConfig(t, capacity)
	return &Server{
		Name:        "TEST",
		Config:      cfg,
		Logger:      logger,
		Credentials: testAccounts,
		now:         time.Now,
		table:       newTable(capacity, cfg.Chat.ReceiveBufferSize, cfg.Chat.MaxBacklogBytes),
		roster:      newRoster(),
		stalled:     make(map[int]struct{}),
	}
}

func TestServer_InitRequiresCollaborators(t *testing.T) {
	s := &Server{Config: testConfig(t, 4)}
	if err := s.Init(context.Background()); err == nil {
		t.Fatal("Init() without a logger or verifier should fail")
	}
}

func TestServer_RunBeforeInit(t *testing.T) {
	logger, _ := testLogger()
	s := &Server{Config: testConfig(t, 4), Logger: logger, Credentials: testAccounts}
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run() before Init() should fail")
	}
}
