package bot

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pkdindustries/toolshack/internal/config"
	"pkdindustries/toolshack/internal/core"
)

const Version = "0.3.0"

// Run builds the system and runs every enabled frontend until ctx is
// cancelled or one of them fails.
func Run(ctx context.Context, cfg *config.Configuration) error {
	core.InitLogger(cfg.Bot.Verbose)
	defer zap.L().Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Bot.Verbose {
		cfg.PrintConfig()
	}

	sys, err := NewSystem(ctx, cfg, core.GetLogger())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, fe := range sys.Frontends {
		g.Go(func() error {
			return fe.Run(gctx)
		})
	}
	return g.Wait()
}
