package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhad/askmydocs/internal/logger"
	cfgPkg "github.com/xhad/askmydocs/pkg/config"
	"github.com/xhad/askmydocs/server"
)

var (
	configPath string
	verbose    bool

	cfg *cfgPkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "askmydocs",
	Short: "Chat with your PDF and text documents using a local model",
	Long: `askmydocs indexes the PDF and text files in the data directory and answers
questions about them with a local Ollama model.

Run without a subcommand to start the web chat UI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	logger.SetVerbose(verbose)

	c, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := c.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
	}
	cfg = c
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a := newApp(cfg)
	srv, err := server.NewWSServer(server.Config{
		Addr:       cfg.Server.Addr,
		NewSession: a.newSession,
	})
	if err != nil {
		return err
	}

	color.Cyan("Chat UI available at http://localhost%s", displayAddr(cfg.Server.Addr))
	return srv.ListenAndServe(ctx)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return addr
}
