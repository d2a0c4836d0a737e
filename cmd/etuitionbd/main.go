// Command etuitionbd serves the demo shell: session store, route guard, and
// auth routes wired against the configured identity service and backend.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	etuition "github.com/Dipteskundu/eTuitionBd-sub000"
	"github.com/Dipteskundu/eTuitionBd-sub000/backend"
	"github.com/Dipteskundu/eTuitionBd-sub000/config"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp/idptest"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp/rest"
	"github.com/Dipteskundu/eTuitionBd-sub000/stores/fs"
	"github.com/Dipteskundu/eTuitionBd-sub000/web"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	tokens, err := fs.NewTokenStore(cfg.TokenPath, "etuitionbd")
	if err != nil {
		logger.Error("token store setup failed", "error", err)
		os.Exit(1)
	}

	var provider idp.Provider
	var adopt web.AdoptFunc
	if cfg.IdentityURL != "" {
		p := rest.New(cfg.IdentityURL)
		adopt = func(principal *idp.Principal, token *oauth2.Token) {
			p.AdoptSession(principal, token.RefreshToken)
		}
		provider = p
	} else {
		logger.Warn("no identity service configured; using in-memory provider")
		fake := idptest.NewFake()
		fake.Seed("student@etuitionbd.example", "password123", "Demo Student")
		adopt = func(principal *idp.Principal, token *oauth2.Token) {
			fake.Adopt(principal)
		}
		provider = fake
	}

	sync := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.RoleTimeout))
	roles := backend.NewRoleCache(sync, 128, 5*time.Minute)

	store := etuition.NewSessionStore(provider, sync, tokens,
		etuition.WithLogger(logger),
		etuition.WithRoleTimeout(cfg.RoleTimeout),
		etuition.WithRoleCache(roles))

	teardown, err := store.Initialize()
	if err != nil {
		logger.Error("session store init failed", "error", err)
		os.Exit(1)
	}
	defer teardown()

	opts := []web.Option{web.WithLogger(logger)}
	if cfg.GoogleClientID != "" {
		opts = append(opts, web.WithGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, adopt))
	}
	shell := web.New(store, etuition.DefaultPolicy(), opts...)

	logger.Info("listening", "addr", cfg.ListenAddr, "backend", cfg.BackendURL)
	if err := http.ListenAndServe(cfg.ListenAddr, shell.Handler()); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
