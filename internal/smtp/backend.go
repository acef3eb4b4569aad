package smtp

import (
	"crypto/tls"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/paperboy/internal/config"
	"github.com/welldanyogia/paperboy/internal/logger"
	"github.com/welldanyogia/paperboy/internal/repository"
)

// Security limits
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// Backend implements the go-smtp Backend interface. Accepted messages are
// spooled raw for the inbox poller.
type Backend struct {
	spool     repository.InboundRepository
	domains   map[string]bool
	onSpooled func(id uint)
	maxSize   int64
	logger    *slog.Logger
	security  *logger.SecurityLogger
}

// BackendConfig holds configuration for the SMTP backend
type BackendConfig struct {
	Spool repository.InboundRepository
	// AcceptedDomains restricts recipients. Empty accepts every domain.
	AcceptedDomains []string
	// MaxMessageSize bounds the DATA payload. Defaults to DefaultMaxMessageSize.
	MaxMessageSize int64
	// OnSpooled is called after a message has been stored
	OnSpooled func(id uint)
	Logger    *slog.Logger
	// Security records rejected recipients and oversized messages
	Security *logger.SecurityLogger
}

// NewBackend creates a new SMTP backend
func NewBackend(cfg *BackendConfig) *Backend {
	domains := make(map[string]bool, len(cfg.AcceptedDomains))
	for _, d := range cfg.AcceptedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains[d] = true
		}
	}
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		spool:     cfg.Spool,
		domains:   domains,
		onSpooled: cfg.OnSpooled,
		maxSize:   maxSize,
		logger:    log.With("component", "smtp"),
		security:  cfg.Security,
	}
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	addr := c.Conn().RemoteAddr().String()
	b.logger.Debug("new SMTP connection", slog.String("remote_addr", addr))
	s := NewSession(b)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	s.remote = addr
	return s, nil
}

// accepts reports whether mail for domain is taken
func (b *Backend) accepts(domain string) bool {
	return len(b.domains) == 0 || b.domains[domain]
}

// ServerConfig holds security configuration for the SMTP server
type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// NewServerConfig derives the listener settings from the application config.
// The greeting domain is the first accepted domain, or localhost.
func NewServerConfig(cfg *config.Config) *ServerConfig {
	domain := "localhost"
	if len(cfg.AcceptedDomains) > 0 {
		domain = cfg.AcceptedDomains[0]
	}
	return &ServerConfig{
		Addr:          ":" + strconv.Itoa(cfg.SMTPPort),
		Domain:        domain,
		AllowInsecure: !cfg.IsProduction(),
	}
}

// NewSecureServer creates a new SMTP server with security settings
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = cfg.Addr
	s.Domain = cfg.Domain

	// Set message size limit
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	} else {
		s.MaxMessageBytes = DefaultMaxMessageSize
	}

	// Set recipient limit
	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	} else {
		s.MaxRecipients = DefaultMaxRecipients
	}

	// Set timeouts
	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	} else {
		s.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	} else {
		s.WriteTimeout = DefaultWriteTimeout
	}

	s.AllowInsecureAuth = cfg.AllowInsecure

	if cfg.TLSConfig != nil {
		s.TLSConfig = cfg.TLSConfig
	}

	// Set max line length to prevent buffer overflow attacks
	s.MaxLineLength = DefaultMaxLineLength

	return s
}
