package main

//  _              _       _                _
// | |_  ___   ___| | ___ | |__   __ _  ___| | __
// | __|/ _ \ / _ \ |/ __|| '_ \ / _' |/ __| |/ /
// | |_| (_) | (_) | |\__ \| | | | (_| | (__|   <
//  \__|\___/ \___/|_||___/|_| |_|\__,_|\___|_|\_\

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"pkdindustries/toolshack/internal/bot"
	"pkdindustries/toolshack/internal/config"
)

func main() {
	fmt.Printf("%s\n", bot.GetBanner(bot.Version))

	cmd := &cli.Command{
		Name:    "toolshack",
		Usage:   "a chat agent that calls tools for you",
		Version: bot.Version + " - http://github.com/pkdindustries/toolshack",
		Flags:   config.GetFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return bot.Run(ctx, config.NewConfiguration(c))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
