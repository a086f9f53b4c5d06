package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/archive"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/validate"
)

func newCheckCmd(root *rootFlags) *cobra.Command {
	var archivePath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "校验归档文件中的每个条目",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if archivePath == "" {
				cfg, err := loadConfig(cmd, root)
				if err != nil {
					return err
				}
				archivePath = cfg.Archive.Path
			}
			return checkArchive(cmd.OutOrStdout(), archivePath)
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "归档文件路径，默认取配置")
	return cmd
}

func checkArchive(w io.Writer, path string) error {
	res := archive.Load(path)
	switch {
	case res.Missing:
		return fmt.Errorf("%s: 归档文件不存在", path)
	case res.Recovered:
		return fmt.Errorf("%s: 归档文件损坏: %s", path, res.Reason)
	}

	bad := 0
	for i, e := range res.History {
		vr := validate.Validate(e)
		switch {
		case !vr.OK():
			bad++
			fmt.Fprintf(w, "✗ [%d] %s %v\n", i, e.ID, vr.Err())
		case vr.DroppedGlossary > 0 || vr.DroppedDescriptions:
			fmt.Fprintf(w, "! [%d] %s glossary dropped=%d descriptions dropped=%t\n", i, e.ID, vr.DroppedGlossary, vr.DroppedDescriptions)
		default:
			fmt.Fprintf(w, "✓ [%d] %s %s\n", i, e.ID, e.Titles.JA)
		}
	}
	fmt.Fprintf(w, "%d entries, %d invalid, %d undecodable\n", len(res.History), bad, res.Dropped)

	if bad > 0 || res.Dropped > 0 {
		return fmt.Errorf("%s: %d invalid, %d undecodable", path, bad, res.Dropped)
	}
	return nil
}
