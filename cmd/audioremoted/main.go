package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/audioremote/audioremoted"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "audioremoted",
	Short: "Audio remote-control daemon",
	Long:  `audioremoted exposes microphone mute and output volume over a local HTTP webhook API for Shortcuts, browsers and a video-call browser extension.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return audioremoted.Main(cfgFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("audioremoted %s\n", audioremoted.Version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running daemon's mute state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := audioremoted.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/status", cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("daemon not reachable: %w", err)
		}
		defer resp.Body.Close()

		var status struct {
			Muted bool `json:"muted"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("decode status response: %w", err)
		}
		if status.Muted {
			fmt.Println("microphone: muted")
		} else {
			fmt.Println("microphone: live")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
