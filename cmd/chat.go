package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/xhad/askmydocs/pkg/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long: `Opens a terminal chat over the index. Type a question and press enter, or
use /upload <files...> to add PDF and text files. Ctrl+C quits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	sess, err := newApp(cfg).newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	stopSpinner := startSpinner("Loading index...")
	warning := sess.Start(ctx)
	stopSpinner()

	_, err = tea.NewProgram(tui.New(ctx, sess, warning), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
