package main

import (
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long: `Opens one conversation on Stdin/Stdout. Markdown replies are rendered when
Stdout is a terminal. Use --headless or --json when piping.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		headless, _ := cmd.Flags().GetBool("headless")
		jsonMode, _ := cmd.Flags().GetBool("json")

		eng, err := parley.New(engineOptions(cfg, logger)...)
		if err != nil {
			return err
		}

		runner := &parley.Runner{
			Input:    os.Stdin,
			Output:   os.Stdout,
			Headless: headless,
			JSON:     jsonMode,
		}

		if !headless && !jsonMode {
			var render func(string) (string, error)
			fd := int(os.Stdout.Fd())
			if term.IsTerminal(fd) {
				width, _, err := term.GetSize(fd)
				if err != nil || width <= 0 {
					width = 80
				}
				render, err = tui.NewRenderer(width)
				if err != nil {
					logger.Warn("markdown rendering disabled", "err", err)
				}
				tui.PrintBanner(os.Stdout)
			} else {
				render, err = tui.NewPlainRenderer(80)
				if err != nil {
					logger.Warn("markdown rendering disabled", "err", err)
				}
			}
			runner.Renderer = render
		}

		return runner.Run(cmd.Context(), eng)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("headless", false, "No banner or prompts, raw replies")
	chatCmd.Flags().Bool("json", false, "Write one JSON reply per line")
}
