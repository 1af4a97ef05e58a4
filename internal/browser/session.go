// =============================================================================
// Line-Item Autofill - Browser Session
// =============================================================================
//
// Owns the connection to Chrome. Two modes:
//
//   - attach: ControlURL points at a running Chrome started with
//     --remote-debugging-port (the operator's own logged-in browser). The
//     session never closes that browser.
//   - launch: no ControlURL, a Chrome is launched through the rod launcher
//     and torn down on Close.
//
// =============================================================================

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrFormNotFound means no open tab matches the form and no form URL is
// configured to open one.
var ErrFormNotFound = errors.New("host form page not found")

// Config holds browser connection settings.
type Config struct {
	// ControlURL is a DevTools endpoint: ws://... or http://host:port.
	ControlURL string

	// Bin is the Chrome binary used when launching. Empty lets rod find or
	// download one.
	Bin string

	Headless bool

	// FormURL is opened in a new tab when no existing tab matches URLContains.
	FormURL string

	// URLContains selects the form tab among the open pages.
	URLContains string

	NavigationTimeoutMs int
}

// DefaultConfig returns launch-mode defaults.
func DefaultConfig() Config {
	return Config{NavigationTimeoutMs: 30000}
}

// NavigationTimeout returns the page load timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Session is a live connection to Chrome.
type Session struct {
	cfg      Config
	browser  *rod.Browser
	launcher *launcher.Launcher
	log      *zap.Logger
}

// Open connects to Chrome, attaching when cfg.ControlURL is set and launching
// otherwise.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{cfg: cfg, log: log}

	controlURL := cfg.ControlURL
	if controlURL != "" {
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("resolve control url %s: %w", controlURL, err)
		}
		controlURL = resolved
		log.Info("attaching to chrome", zap.String("control_url", controlURL))
	} else {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = u
		log.Info("launched chrome", zap.Bool("headless", cfg.Headless))
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b
	return s, nil
}

// FormPage returns the tab holding the host form. An open tab whose URL
// contains cfg.URLContains wins; otherwise cfg.FormURL is opened.
func (s *Session) FormPage(ctx context.Context) (*rod.Page, error) {
	if s.cfg.URLContains != "" {
		pages, err := s.browser.Pages()
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		for _, p := range pages {
			info, err := p.Info()
			if err != nil {
				continue
			}
			if strings.Contains(info.URL, s.cfg.URLContains) {
				s.log.Info("using open form tab", zap.String("url", info.URL))
				return p.Context(ctx), nil
			}
		}
	}

	if s.cfg.FormURL == "" {
		return nil, ErrFormNotFound
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: s.cfg.FormURL})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.cfg.FormURL, err)
	}
	page = page.Context(ctx)
	if err := page.Timeout(s.cfg.NavigationTimeout()).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load %s: %w", s.cfg.FormURL, err)
	}
	s.log.Info("opened form tab", zap.String("url", s.cfg.FormURL))
	return page, nil
}

// Close releases the session. A launched Chrome is shut down; an attached one
// is left running.
func (s *Session) Close() error {
	if s.launcher == nil {
		return nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
}
