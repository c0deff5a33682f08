// Package cli is the headless command-line surface of the generator. It
// drives the same workflow as the HTTP page and saves downloads to disk.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"qrgen/internal/engine/qr"
	"qrgen/internal/engine/workflow"
	"qrgen/internal/pkg/logger"
	"qrgen/internal/platform/config"
)

var errNoImage = errors.New("no QR code was produced")

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qrgen",
		Short: "Turn text into a QR code image",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	generateCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Generate a QR code and save it as a PNG",
		Args:  cobra.ArbitraryArgs,
		RunE:  GenerateHandler,
	}
	generateCmd.Flags().String("example", "", "Use a built-in sample (hello, json, url) as input")
	generateCmd.Flags().StringP("out", "o", ".", "Directory to save the image into")
	generateCmd.Flags().String("config", "", "Path to config file for encoder options")

	examplesCmd := &cobra.Command{
		Use:   "examples",
		Short: "List built-in sample inputs",
		Args:  cobra.NoArgs,
		RunE:  ExamplesHandler,
	}

	rootCmd.AddCommand(generateCmd, examplesCmd)

	return rootCmd
}

func GenerateHandler(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Logging)

	wf := workflow.New(qr.NewEncoder(),
		workflow.WithID("cli"),
		workflow.WithOptions(qr.Options{
			Width:  cfg.Encoder.Width,
			Margin: cfg.Encoder.Margin,
			Dark:   cfg.Encoder.DarkColor,
			Light:  cfg.Encoder.LightColor,
		}),
		workflow.WithFilename(cfg.Encoder.DownloadFilename),
		workflow.WithLogger(logger.Component("cli")),
	)

	example, _ := cmd.Flags().GetString("example")
	if example != "" {
		sample, ok := workflow.ExampleByName(example)
		if !ok {
			return fmt.Errorf("unknown example %q (available: %s)", example, strings.Join(workflow.ExampleNames(), ", "))
		}
		wf.LoadExample(sample)
	} else {
		wf.SetInput(strings.Join(args, " "))
	}

	task := wf.RequestGeneration(cmd.Context())
	if task == nil {
		return errors.New("nothing to encode: input is empty")
	}
	task.Wait(cmd.Context())

	out, _ := cmd.Flags().GetString("out")
	saved, err := wf.RequestDownload(cmd.Context(), workflow.FileSaver{Dir: out})
	if err != nil {
		return err
	}
	if !saved {
		return errNoImage
	}

	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(out, cfg.Encoder.DownloadFilename))
	return nil
}

func ExamplesHandler(cmd *cobra.Command, args []string) error {
	for _, name := range workflow.ExampleNames() {
		sample, _ := workflow.ExampleByName(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", name, sample)
	}
	return nil
}
