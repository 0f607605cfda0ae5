// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected by ParseArgs.
const (
	CommandVisualize = "visualize"
	CommandAnalyze   = "analyze"
	CommandSnapshot  = "snapshot"
	CommandLive      = "live"
	CommandList      = "list"
	CommandSessions  = "sessions"
)

// Options is everything the command line selects. Zero values leave the
// loaded configuration untouched.
type Options struct {
	Command string
	File    string

	ConfigPath string
	Verbose    bool
	FFTSize    int
	Layout     string

	// visualize
	NoLoop bool

	// analyze
	Store     bool
	StorePath string

	// snapshot
	At     time.Duration
	Output string

	// live
	DeviceID  int
	DeviceSet bool
	Record    bool
	Pick      bool
	WebSocket bool
	UDP       bool

	// list
	Interactive bool
}

// ParseArgs parses os.Args. It returns nil options when cobra handled the
// invocation itself (--help, --version).
func ParseArgs() (*Options, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Options, error) {
	buildInfo := build.GetBuildInfo()
	options := &Options{}
	ran := false

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file]",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			options.Command = CommandVisualize
			options.File = args[0]
			ran = true
			return nil
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Flags().BoolVar(&options.NoLoop, "no-loop", false,
		"Pause at the end of the track instead of looping")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run a file through the pipeline offline and print a summary",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandAnalyze
			options.File = args[0]
			ran = true
		},
	}
	analyzeCmd.Flags().BoolVar(&options.Store, "store", false,
		"Log every frame to the SQLite analysis store")
	analyzeCmd.Flags().StringVar(&options.StorePath, "db", "",
		"Analysis store path (default from config)")
	rootCmd.AddCommand(analyzeCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Render the frame at a playback position to PNG",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandSnapshot
			options.File = args[0]
			ran = true
		},
	}
	snapshotCmd.Flags().DurationVar(&options.At, "at", 0,
		"Playback position to render, e.g. 12s or 1m30s")
	snapshotCmd.Flags().StringVarP(&options.Output, "output", "o", "",
		"Output PNG (default <track>-<position>.png)")
	rootCmd.AddCommand(snapshotCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Analyse an input device and publish frames",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandLive
			options.DeviceSet = cmd.Flags().Changed("device")
			ran = true
		},
	}
	liveCmd.Flags().IntVarP(&options.DeviceID, "device", "d", -1,
		"Input device ID, -1 for the system default. Use 'list' to see available devices.")
	liveCmd.Flags().BoolVarP(&options.Record, "record", "r", false,
		"Record the input to WAV while analysing")
	liveCmd.Flags().BoolVar(&options.Pick, "pick", false,
		"Choose the input device and sample rate interactively")
	liveCmd.Flags().BoolVar(&options.WebSocket, "ws", false,
		"Serve frames over WebSocket regardless of config")
	liveCmd.Flags().BoolVar(&options.UDP, "udp", false,
		"Send level packets over UDP regardless of config")
	rootCmd.AddCommand(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
			ran = true
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Browse devices in the terminal UI")
	rootCmd.AddCommand(listCmd)

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List analyses logged to the store",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandSessions
			ran = true
		},
	}
	sessionsCmd.Flags().StringVar(&options.StorePath, "db", "",
		"Analysis store path (default from config)")
	rootCmd.AddCommand(sessionsCmd)

	// Shared configuration
	rootCmd.PersistentFlags().StringVar(&options.ConfigPath, "config", "",
		"Config file (default config.yaml or spectra.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")
	rootCmd.PersistentFlags().IntVar(&options.FFTSize, "fft-size", 0,
		"Transform size, a power of two")
	rootCmd.PersistentFlags().StringVar(&options.Layout, "layout", "",
		"Shape layout: grid, circular or log-horizontal")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}
	return options, nil
}
