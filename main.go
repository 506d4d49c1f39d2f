package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "video-playbook",
		Short: "Generate process playbooks from screen recordings",
		Long: `video-playbook watches a recorded support session with a multimodal model,
writes down the process the speakers followed as a timestamped playbook, and
has the model rate each playbook against the video.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "video-playbook version %s\n", version)
			}
		},
	}
}
