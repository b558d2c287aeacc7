// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"specviz/internal/config"
)

// Options carries the parsed command line: the selected source, one-off
// commands, and analysis overrides (zero values mean "use the config").
type Options struct {
	ConfigPath string
	Command    string // "", "sessions" or "devices"

	// Source selection, mutually exclusive.
	FilePath string
	PID      int32
	ProcName string

	// Analysis overrides.
	Bins       int
	WindowSize int
	HopSize    int
	Scale      string
	Smoothing  float64

	// Recording and transport overrides.
	Record     bool
	RecordFile string
	WSAddr     string

	Verbose bool
}

// ParseArgs parses os.Args into Options via cobra.
func ParseArgs() (*Options, error) {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:           "specviz",
		Short:         "Live audio spectrum-curve analyzer",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List processes available as capture targets",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "sessions"
		},
	}
	rootCmd.AddCommand(sessionsCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices usable for loopback capture",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"Path to YAML config file (default: ./config.yaml if present)")

	// Source selection
	rootCmd.PersistentFlags().StringVarP(&opts.FilePath, "file", "f", "",
		"Audio file to play and visualize (mp3/wav/flac)")
	rootCmd.PersistentFlags().Int32VarP(&opts.PID, "pid", "p", 0,
		"Process ID to capture; use 'sessions' to list candidates")
	rootCmd.PersistentFlags().StringVar(&opts.ProcName, "name", "",
		"Display name for the capture target")

	// Analysis overrides
	rootCmd.PersistentFlags().IntVarP(&opts.Bins, "bins", "b", 0,
		"Number of display bins")
	rootCmd.PersistentFlags().IntVarP(&opts.WindowSize, "window", "w", 0,
		"FFT window size (power of two)")
	rootCmd.PersistentFlags().IntVar(&opts.HopSize, "hop", 0,
		"Samples between analysis cycles")
	rootCmd.PersistentFlags().StringVar(&opts.Scale, "scale", "",
		"Frequency mapping: linear, log or mel")
	rootCmd.PersistentFlags().Float64Var(&opts.Smoothing, "smoothing", 0,
		"Temporal smoothing factor in (0, 1]")

	// Recording and transport
	rootCmd.PersistentFlags().BoolVarP(&opts.Record, "record", "r", false,
		"Record the mono analysis feed to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&opts.RecordFile, "output", "o", "",
		"Recording output file (default: specviz-<timestamp>.wav)")
	rootCmd.PersistentFlags().StringVar(&opts.WSAddr, "ws", "",
		"Serve curves to renderers over WebSocket on this address (e.g. :8080)")

	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Apply layers the flag overrides onto cfg. Only explicitly set values
// (non-zero) replace the file/default configuration.
func (o *Options) Apply(cfg *config.Config) {
	if o.Bins > 0 {
		cfg.Analysis.Bins = o.Bins
	}
	if o.WindowSize > 0 {
		cfg.Analysis.WindowSize = o.WindowSize
	}
	if o.HopSize > 0 {
		cfg.Analysis.HopSize = o.HopSize
	}
	if o.Scale != "" {
		cfg.Analysis.Scale = o.Scale
	}
	if o.Smoothing > 0 {
		cfg.Analysis.Smoothing = o.Smoothing
	}
	if o.Record {
		cfg.Recording.Enabled = true
	}
	if o.RecordFile != "" {
		cfg.Recording.OutputFile = o.RecordFile
	}
	if o.WSAddr != "" {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddr = o.WSAddr
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
}
