package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/stagegate/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the engine in the terminal",
	Long: `Starts an interactive conversation. Each reply is the response the engine
selected; --status also prints the stage and the mandated action.
Mandated searches and bookings run through the configured providers after
confirmation (or automatically with --headless).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		headless, _ := cmd.Flags().GetBool("headless")

		a, err := setup(cmd, !jsonMode && !headless)
		if err != nil {
			return err
		}
		defer a.rt.Close()

		opts := cli.ChatOptions{JSON: jsonMode, Headless: headless}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Status, _ = cmd.Flags().GetBool("status")
		opts.In = cmd.InOrStdin()
		opts.Out = cmd.OutOrStdout()

		return cli.RunChat(cmd.Context(), a.rt, opts, a.logger)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to create or resume (random when empty)")
	chatCmd.Flags().Bool("fresh", false, "Discard the session before starting")
	chatCmd.Flags().Bool("status", true, "Print the stage and action under each reply")
	chatCmd.Flags().Bool("headless", false, "Auto-approve mandated actions")
	chatCmd.Flags().Bool("json", false, "Read and write JSON Lines")
}
