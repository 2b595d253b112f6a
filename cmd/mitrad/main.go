// Command mitrad runs the federation server: it loads configuration, opens
// the store, loads or generates this instance's signing keys, and wires the
// fetcher, agreement reconciler, delivery worker, and HTTP server together
// before serving until interrupted.
package main

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/klppl/mitra/internal/agreements"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/caip"
	"github.com/klppl/mitra/internal/config"
	"github.com/klppl/mitra/internal/crypto"
	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/handler"
	"github.com/klppl/mitra/internal/httpagent"
	"github.com/klppl/mitra/internal/jobqueue"
	"github.com/klppl/mitra/internal/periodic"
	"github.com/klppl/mitra/internal/server"
	"github.com/klppl/mitra/internal/store"
)

// softwareVersion mirrors internal/server's NodeInfo software.version.
const softwareVersion = "1.0.0"

// localSigner implements jobqueue.Signer for a single-tenant instance: every
// outbound delivery is signed with the one local actor's RSA key, whatever
// the sender recorded on the activity.
type localSigner struct {
	keyID string
	key   *rsa.PrivateKey
}

func (s *localSigner) SigningKey(actorID string) (string, *rsa.PrivateKey, bool) {
	if s.key == nil {
		return "", nil, false
	}
	return s.keyID, s.key, true
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := config.Load()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		slog.Error("migrate store", "error", err)
		os.Exit(1)
	}

	rsaKey, err := crypto.LoadOrGenerateRSAKeyPair(cfg.RSAPrivateKeyPath, cfg.RSAPublicKeyPath)
	if err != nil {
		slog.Error("load RSA key pair", "error", err)
		os.Exit(1)
	}

	localActorID := authority.LocalActorID(cfg.InstanceURL, cfg.LocalUsername)
	publicKeyID := localActorID + "#main-key"
	if existing, ok := st.GetActor(localActorID); !ok || existing.PublicKeyPEM != rsaKey.PublicPEM {
		if err := st.UpsertActor(store.ActorRecord{
			ID:           localActorID,
			IsLocal:      true,
			Username:     cfg.LocalUsername,
			Inbox:        localActorID + "/inbox",
			SharedInbox:  cfg.InstanceURL + "/inbox",
			FollowersURL: localActorID + "/followers",
			PublicKeyPEM: rsaKey.PublicPEM,
			PublicKeyID:  publicKeyID,
			ProfileJSON:  "{}",
		}); err != nil {
			slog.Error("seed local actor", "error", err)
			os.Exit(1)
		}
	}

	if cfg.PortableIdentitiesEnabled {
		if _, err := crypto.LoadOrGenerateEd25519KeyPair(cfg.Ed25519PrivateKeyPath); err != nil {
			slog.Error("load Ed25519 key pair", "error", err)
			os.Exit(1)
		}
	}

	agentCfg := httpagent.Config{
		SSRFProtectionEnabled: cfg.SSRFProtectionEnabled,
		ProxyURL:              cfg.ProxyURL,
		OnionProxyURL:         cfg.OnionProxyURL,
		I2PProxyURL:           cfg.I2PProxyURL,
		UserAgent:             cfg.UserAgent,
	}
	f := fetcher.New(agentCfg, cfg.InstanceURL, softwareVersion)

	chainID, err := caip.ParseChainID(cfg.MoneroChainID)
	if err != nil {
		slog.Error("parse MONERO_CHAIN_ID", "error", err)
		os.Exit(1)
	}
	proposals := &agreements.ConfigProposalLookup{
		Store:    st,
		Username: cfg.LocalUsername,
		ChainID:  chainID,
		Price:    cfg.SubscriptionPriceUnit,
	}
	addresses := &agreements.DeterministicAddressAllocator{Seed: rsaKey.Private.D.Bytes()}
	reconciler := &agreements.Reconciler{
		Store:       st,
		Proposals:   proposals,
		Addresses:   addresses,
		InstanceURL: cfg.InstanceURL,
	}

	worker := &jobqueue.Worker{
		Store:             st,
		Agent:             agentCfg,
		Signer:            &localSigner{keyID: publicKeyID, key: rsaKey.Private},
		UserAgent:         cfg.UserAgent,
		IsInstancePrivate: cfg.IsInstancePrivate,
		Concurrency:       cfg.APFederationConcurrency,
	}

	dispatcher := &handler.Dispatcher{
		Store:              st,
		Fetcher:            f,
		Deliverer:          worker,
		Agreements:         reconciler,
		InstanceURL:        cfg.InstanceURL,
		AutoApproveFollows: cfg.AutoApproveFollows,
	}

	srv := server.New(cfg, st, f, dispatcher, rsaKey)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx, cfg.DeliveryPollInterval)

	resyncer := &periodic.ActorResyncer{Store: st, Fetcher: f, Interval: cfg.ResyncInterval}
	go resyncer.Start(ctx)

	invoiceSweeper := &periodic.InvoiceTimeoutSweeper{Store: st, Interval: cfg.InvoiceSweepInterval, Deadline: cfg.InvoiceTimeoutDeadline}
	go invoiceSweeper.Start(ctx)

	srv.Start(ctx)
	slog.Info("shutdown complete")
}
