package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dcrodman/epchat/internal"
	"github.com/dcrodman/epchat/internal/core"
)

// ServerCommand runs the chat server until it receives SIGINT or SIGTERM.
func ServerCommand(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	// Bind the Controller to one top-level server context so that we can shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register a SIGTERM handler so that Ctrl-C will shut the server down gracefully.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go exitHandler(cancel, c)

	controller := &internal.Controller{Config: config}
	if err := controller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig reads the config from ConfigFlag and changes into that directory
// so that any relative paths in the config file will resolve.
func loadConfig() (*core.Config, error) {
	dir := ConfigFlag
	if dir == "" {
		dir = "."
	}
	config, err := core.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("error changing to config directory: %w", err)
	}
	return config, nil
}

// exitHandler cancels the server on the first signal and exits immediately on
// the second.
func exitHandler(cancelFn func(), c chan os.Signal) {
	<-c
	fmt.Println("waiting to shut down gracefully...")
	cancelFn()

	<-c
	fmt.Println("hard exiting (killed)")
	os.Exit(1)
}
