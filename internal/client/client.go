package client

import (
	"context"
	"fmt"

	"github.com/dealerlink/easysync/internal/config"
	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/images"
	"github.com/dealerlink/easysync/internal/store"
	"github.com/dealerlink/easysync/internal/syncer"
	"github.com/dealerlink/easysync/internal/transport"
	"github.com/dealerlink/easysync/internal/vault"
)

// Client provides the high-level API for EasySync operations.
type Client struct {
	Stock *syncer.StockEngine
	Leads *syncer.LeadEngine
	Store *store.Store
	Vault *vault.Vault
	API   transport.API

	config *config.Config
	logger *events.Logger
}

// New wires a full client from configuration: vault, store, transport,
// image storage and the two sync engines sharing one run guard.
func New(ctx context.Context, cfg *config.Config, logger *events.Logger) (*Client, error) {
	secrets, err := newVault(&cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}

	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}

	api := transport.NewClient(&cfg.API, cfg.Tokens.TTL, logger)

	blobStore, err := newBlobStore(ctx, &cfg.Images, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	downloader := images.NewDownloader(blobStore, cfg.Images.Timeout, logger)

	guard := syncer.NewGuard(cfg.Sync.RunLease)

	stockEngine := syncer.NewStockEngine(
		api,
		secrets,
		db,
		db,
		downloader,
		db,
		db,
		guard,
		logger,
	)
	leadEngine := syncer.NewLeadEngine(
		api,
		secrets,
		db,
		db,
		db,
		db,
		db,
		db,
		guard,
		logger,
	)

	return &Client{
		Stock:  stockEngine,
		Leads:  leadEngine,
		Store:  db,
		Vault:  secrets,
		API:    api,
		config: cfg,
		logger: logger,
	}, nil
}

// Close releases the client's resources.
func (c *Client) Close() error {
	return c.Store.Close()
}

func newVault(cfg *config.VaultConfig) (*vault.Vault, error) {
	if cfg.MasterKey != "" {
		return vault.NewFromBase64(cfg.MasterKey)
	}
	return vault.NewFromPassphrase(cfg.Passphrase, cfg.Salt)
}

func newBlobStore(ctx context.Context, cfg *config.ImagesConfig, logger *events.Logger) (images.BlobStore, error) {
	switch cfg.Backend {
	case "s3":
		return images.NewS3Store(ctx, cfg.Bucket, cfg.Prefix, logger)
	default:
		return images.NewLocalStore(cfg.Dir, logger)
	}
}
