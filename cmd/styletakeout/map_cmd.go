package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nettybun/styletakeout"
	"github.com/nettybun/styletakeout/internal/takeout"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show which source file each short name stands for",
	Long: `Read the side-car map written next to the stylesheet and list every
short name (such as button+0) with the source path it abbreviates.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := buildConfig()
		entries, err := takeout.ReadShortNameMap(takeout.SidecarPath(cfg.OutputPath()))
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if !asJSON {
			return styletakeout.WriteShortNameTable(cmd.OutOrStdout(), entries)
		}

		names := make([]styletakeout.JSONShortName, 0, len(entries))
		for _, entry := range entries {
			names = append(names, styletakeout.JSONShortName{Name: entry.Name, Path: entry.Path})
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(names); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
		return nil
	},
}

func init() {
	f := mapCmd.Flags()
	f.String("root", styletakeout.DefaultConfig().Root, "Project root")
	f.String("output-file", styletakeout.DefaultConfig().OutputFile, "Stylesheet path; the map is read from <output-file>.map.json")
	f.Bool("json", false, "Print the map as JSON")
}
