// Package main implements the SSH server that serves the COD order form.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	gossh "golang.org/x/crypto/ssh"

	"github.com/thomas/codform-terminal/internal/auth"
	"github.com/thomas/codform-terminal/internal/cache"
	"github.com/thomas/codform-terminal/internal/config"
	"github.com/thomas/codform-terminal/internal/logger"
	"github.com/thomas/codform-terminal/internal/metrics"
	"github.com/thomas/codform-terminal/internal/storefront"
	"github.com/thomas/codform-terminal/internal/tui"
)

type ctxKey string

const shopKey ctxKey = "shop"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	lg, err := logger.New("codssh", cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal("failed to create logger", "err", err)
	}

	if err := ensureHostKey(lg, cfg.SSHHostKeyPath); err != nil {
		lg.Fatal("failed to ensure host key", "err", err)
	}

	// Load allowlist if in allowlist mode
	var allowlist auth.Allowlist
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		allowlist, err = auth.LoadAllowlist(cfg.AllowlistPath)
		if err != nil {
			if errors.Is(err, auth.ErrAllowlistNotFound) {
				lg.Info("creating empty allowlist", "path", cfg.AllowlistPath)
				if err := auth.CreateEmptyAllowlist(cfg.AllowlistPath); err != nil {
					lg.Fatal("failed to create allowlist", "err", err)
				}
				lg.Info("add your SSH public key to the allowlist and restart")
				os.Exit(1)
			}
			lg.Fatal("failed to load allowlist", "err", err)
		}
		if len(allowlist) == 0 {
			lg.Warn("allowlist is empty, no connections will be accepted", "path", cfg.AllowlistPath)
		}
		lg.Info("loaded allowlist", "keys", len(allowlist))
	} else {
		lg.Warn("running in PUBLIC mode, anyone can connect")
	}

	mt := metrics.New()

	client := storefront.NewClient(cfg.StoreBaseURL,
		storefront.WithShop(cfg.ShopDomain),
		storefront.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		storefront.WithLogger(lg.WithPrefix("storefront")),
		storefront.WithMetrics(mt),
		storefront.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
	)

	bootstraps := cache.New[string, *storefront.Bootstrap](cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, bootstraps, cfg.CacheTTL)

	teaHandler := func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		shop := cfg.ShopDomain
		if v, ok := s.Context().Value(shopKey).(string); ok && v != "" {
			shop = v
		}

		shopClient := client.ForShop(shop)
		bs := loadBootstrap(s.Context(), lg, bootstraps, shopClient)
		session := tui.NewSession(shop, s.User(), bs, s.Command())

		sl := logger.ForSession(lg, session.ID, shop, s.User())
		sl.Info("session started", "mode", session.Mode, "remote", s.RemoteAddr().String())

		done := mt.SessionStarted(shop)
		go func() {
			<-s.Context().Done()
			done()
		}()

		model := tui.NewModel(shopClient, session,
			tui.WithLogger(sl),
			tui.WithMetrics(mt),
			tui.WithClipboard(s),
		)
		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(teaHandler),
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(lg.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})),
		),
	}

	// Add authentication based on mode
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			entry, ok := allowlist.Match(key)
			if !ok {
				return false
			}
			if entry.Shop != "" {
				ctx.SetValue(shopKey, entry.Shop)
			}
			return true
		}))
	} else {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return true
		}))
	}

	// Always disable password auth
	opts = append(opts, wish.WithPasswordAuth(func(ctx ssh.Context, password string) bool {
		return false
	}))

	server, err := wish.NewServer(opts...)
	if err != nil {
		lg.Fatal("failed to create SSH server", "err", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mt.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			lg.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("metrics server error", "err", err)
			}
		}()
	}

	lg.Info("starting SSH server",
		"addr", cfg.SSHAddr,
		"store", cfg.StoreBaseURL,
		"shop", cfg.ShopDomain,
		"auth", cfg.SSHAuthMode)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			lg.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Fatal("shutdown error", "err", err)
	}
}

// loadBootstrap returns the shop's cached bootstrap, fetching it on a miss.
// Failed fetches are not cached; the session gets the fallback config.
func loadBootstrap(ctx context.Context, lg *log.Logger, c *cache.Cache[string, *storefront.Bootstrap], client *storefront.Client) *storefront.Bootstrap {
	var fallback *storefront.Bootstrap
	bs, err := c.GetOrLoad(ctx, client.Shop(), func(ctx context.Context) (*storefront.Bootstrap, error) {
		b, err := client.FetchBootstrap(ctx)
		if err != nil {
			fallback = b
		}
		return b, err
	})
	if err != nil {
		lg.Warn("using fallback form config", "shop", client.Shop(), "err", err)
		if fallback == nil {
			fallback = storefront.DefaultBootstrap(client.Shop())
		}
		return fallback
	}
	return bs
}

func cleanupLoop(ctx context.Context, c *cache.Cache[string, *storefront.Bootstrap], every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// ensureHostKey generates an ED25519 host key if it doesn't exist.
func ensureHostKey(lg *log.Logger, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	lg.Info("generating new ED25519 host key", "path", path)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	sshPrivKey, err := gossh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(sshPrivKey), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	sshPubKey, err := gossh.NewPublicKey(pubKey)
	if err != nil {
		return fmt.Errorf("creating public key: %w", err)
	}

	if err := os.WriteFile(path+".pub", gossh.MarshalAuthorizedKey(sshPubKey), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}
