package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	assetfs "assetserve/internal/asset/fs"
	"assetserve/internal/codec"
	"assetserve/internal/engine"
	"assetserve/internal/server"
)

func newGraphCmd() *cobra.Command {
	var (
		configPath string
		root       string
		entry      string
		format     string
	)
	cmd := &cobra.Command{
		Use:          "graph",
		Short:        "Print the assets reachable from the entry asset",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				cfg.Root = root
			}
			if cmd.Flags().Changed("entry") {
				cfg.Entry = entry
			}

			fsys, err := assetfs.New(cfg.Root)
			if err != nil {
				return err
			}
			e := engine.New(engine.WithMaxConcurrency(cfg.Engine.MaxConcurrency))
			defer e.Close()

			srv := server.New(server.Config{RootPath: fsys.Root(), Root: fsys.Entry(cfg.Entry)}, e)
			graph, err := srv.Graph(cmd.Context())
			if err != nil {
				return fmt.Errorf("build graph: %w", err)
			}
			return exporter.Export(graph, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file")
	cmd.Flags().StringVarP(&root, "root", "r", "", "document root directory")
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "entry asset relative to the root")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: "+strings.Join(codec.Formats(), ", "))
	return cmd
}
