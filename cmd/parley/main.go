package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Parley/internal/config"
)

var (
	flagServer       string
	flagLanguage     string
	flagTranslateKey string
	flagNegotiate    bool
	flagLogLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal client for a Parley translation room",
	Long: `parley joins a room on a Parley server. Every line typed on stdin is
treated as a finished transcript: it is translated and shared with the room.
Audio, translations and membership changes from other members are printed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.ApplyLogLevel(flagLogLevel)
	},
}

var createCmd = &cobra.Command{
	Use:   "create [room-id]",
	Short: "Create a room and wait for others to join",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) == 1 {
			room = args[0]
		}
		return runSession(cmd, room, true)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join an existing room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, args[0], false)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "ws://localhost:8080/api/ws/signal", "signaling endpoint")
	pf.StringVar(&flagLanguage, "lang", "sq-AL", "language you speak")
	pf.StringVar(&flagTranslateKey, "translate-key", os.Getenv("PARLEY_TRANSLATE_KEY"), "Cloud Translation API key; without it text is shared untranslated")
	pf.BoolVar(&flagNegotiate, "negotiate", false, "open a WebRTC audio connection to every peer")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(createCmd, joinCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
