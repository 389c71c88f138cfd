package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"contentblocker/adblock"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
)

var forceUpdate bool

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "查看拦截分类和列表文件",
	Args:  cobra.NoArgs,
	RunE:  runLists,
}

var listsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "从配置的远程地址更新列表文件",
	Args:  cobra.NoArgs,
	RunE:  runListsUpdate,
}

func init() {
	rootCmd.AddCommand(listsCmd)
	listsCmd.AddCommand(listsUpdateCmd)

	listsUpdateCmd.Flags().BoolVarP(&forceUpdate, "force", "f", false, "忽略 ETag 和修改时间，强制下载")
}

func runLists(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.ListsDir(path)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOGGLE\tENABLED\tLIST\tSIZE\tSOURCE")

	for _, c := range adblock.Categories() {
		size := "missing"
		if fi, sErr := os.Stat(filepath.Join(dir, c.ListName()+".json")); sErr == nil {
			size = datasize.ByteSize(fi.Size()).HumanReadable()
		}

		source := cfg.Lists.Sources[c.ListName()]
		if source == "" {
			source = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\t%s\n", c, c.Toggle(), c.Enabled(cfg.Blocking), c.ListName(), size, source)
	}

	return tw.Flush()
}

func runListsUpdate(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	updater, err := newUpdater(cfg, cfg.ListsDir(path))
	if err != nil {
		return err
	}
	if updater == nil {
		return fmt.Errorf("no list sources configured in %s", path)
	}

	res, err := updater.Update(cmd.Context(), forceUpdate)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "updated: %v\nnot modified: %v\n", res.Updated, res.NotModified)

	failed := make([]string, 0, len(res.Failed))
	for name := range res.Failed {
		failed = append(failed, name)
	}
	slices.Sort(failed)
	for _, name := range failed {
		fmt.Fprintf(out, "failed %s: %s\n", name, res.Failed[name])
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d lists failed to update", len(failed))
	}

	return nil
}
