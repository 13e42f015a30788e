package main

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/beatpage/internal/adapters/blob"
	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/internal/config"
	"github.com/okian/beatpage/internal/domain/types"
)

// checkID is read from the profiles collection; it never needs to exist.
const checkID = "__beatpage_check"

func runCheck(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Fprintf(out, "config ok: addr=%s store=%s archive=%s policy=%s\n",
		cfg.Addr, cfg.StoreDriver, cfg.BlobDriver, cfg.AddPolicy)

	store, err := repository.Open(ctx, cfg.StoreSettings())
	if err != nil {
		return fmt.Errorf("store %s unreachable: %w", cfg.StoreDriver, err)
	}
	defer func() { _ = store.Close() }()

	if _, _, err := store.ReadDocument(ctx, types.CollectionProfiles, checkID); err != nil {
		return fmt.Errorf("store %s read failed: %w", cfg.StoreDriver, err)
	}
	fmt.Fprintf(out, "store ok: %s\n", cfg.StoreDriver)

	archive, err := blob.Open(ctx, cfg.BlobSettings())
	if err != nil {
		return fmt.Errorf("archive %s unreachable: %w", cfg.BlobDriver, err)
	}
	if archive == nil {
		fmt.Fprintln(out, "archive disabled")
		return nil
	}
	fmt.Fprintf(out, "archive ok: %s\n", cfg.BlobDriver)
	return nil
}
