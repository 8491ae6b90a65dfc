package core

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to the chat
// server and its tools.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Port on which the server will listen for connections.
	Port int `mapstructure:"port"`
	// Total number of connection table slots, including the one reserved for
	// the listening socket.
	MaxConnections int `mapstructure:"max_connections"`

	Chat struct {
		// Size in bytes of each connection's receive buffer.
		ReceiveBufferSize int `mapstructure:"receive_buffer_size"`
		// Longest accepted login or private message target name, in bytes.
		MaxNameLength int `mapstructure:"max_name_length"`
		// Split each read drain into newline terminated lines instead of
		// treating the whole drain as one message.
		LineFraming bool `mapstructure:"line_framing"`
		// Upper bound on bytes queued for a peer that is not reading.
		MaxBacklogBytes int `mapstructure:"max_backlog_bytes"`
	} `mapstructure:"chat"`

	Reactor struct {
		// Maximum number of ready descriptors returned by one wait.
		MaxEvents int `mapstructure:"max_events"`
		// How long a single wait may block before the loop services the
		// sweeper and shutdown checks.
		PollTimeout time.Duration `mapstructure:"poll_timeout"`
	} `mapstructure:"reactor"`

	Sweeper struct {
		// Connections armed for longer than this without activity are evicted.
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
		// Number of table slots inspected per loop iteration.
		Window int `mapstructure:"window"`
	} `mapstructure:"sweeper"`

	Credentials struct {
		// Where logins are verified. Options: database, file
		Source string `mapstructure:"source"`
		// Plaintext "name password" file used when Source is file.
		File string `mapstructure:"file"`
		// How long successful verifications are cached. Zero disables the cache.
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"credentials"`

	Database struct {
		// Options: sqlite, postgres
		Engine string `mapstructure:"engine"`
		// SQLite database file.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to Name.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Logging struct {
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"logging"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		Enabled bool `mapstructure:"enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "EPCHAT"

var defaults = map[string]interface{}{
	"hostname":                           "0.0.0.0",
	"port":                               8000,
	"max_connections":                    1024,
	"chat.receive_buffer_size":           8192,
	"chat.max_name_length":               31,
	"chat.line_framing":                  false,
	"chat.max_backlog_bytes":             64 * 1024,
	"reactor.max_events":                 1024,
	"reactor.poll_timeout":               "200ms",
	"sweeper.idle_timeout":               "600s",
	"sweeper.window":                     100,
	"credentials.source":                 "database",
	"credentials.file":                   "user.txt",
	"credentials.cache_ttl":              "0s",
	"database.engine":                    "sqlite",
	"database.filename":                  "epchat.db",
	"database.port":                      5432,
	"database.sslmode":                   "disable",
	"logging.log_level":                  "info",
	"debugging.pprof_port":               4000,
	"debugging.enabled":                  false,
	"debugging.database_logging_enabled": false,
}

// LoadConfig reads config.yaml from configPath, applying defaults for any
// missing keys and EPCHAT_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envVarPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, sweeper.idle_timeout can be set using: EPCHAT_SWEEPER_IDLE_TIMEOUT
	for _, k := range v.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := v.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("error binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config object: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects limits the server can't operate with.
func (c *Config) Validate() error {
	switch {
	case c.MaxConnections < 2:
		return fmt.Errorf("max_connections must be at least 2, got %d", c.MaxConnections)
	case c.Chat.ReceiveBufferSize <= 0:
		return fmt.Errorf("chat.receive_buffer_size must be positive, got %d", c.Chat.ReceiveBufferSize)
	case c.Chat.MaxNameLength <= 0:
		return fmt.Errorf("chat.max_name_length must be positive, got %d", c.Chat.MaxNameLength)
	case c.Reactor.MaxEvents <= 0:
		return fmt.Errorf("reactor.max_events must be positive, got %d", c.Reactor.MaxEvents)
	case c.Reactor.PollTimeout < time.Millisecond:
		return fmt.Errorf("reactor.poll_timeout must be at least 1ms, got %v", c.Reactor.PollTimeout)
	case c.Sweeper.Window <= 0:
		return fmt.Errorf("sweeper.window must be positive, got %d", c.Sweeper.Window)
	}
	return nil
}

// ListenAddress returns the host:port pair the server binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}
