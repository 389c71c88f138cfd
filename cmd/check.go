package main

import (
	"encoding/json"
	"fmt"

	"contentblocker/adblock"
	"contentblocker/blocklist"

	"github.com/spf13/cobra"
)

var (
	checkLists []string
	checkJSON  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <resource-url> [main-document-url]",
	Short: "判断单个请求是否会被拦截",
	Long: `使用已启用的列表（或 --list 指定的列表）判断资源请求的拦截结果。
未指定主文档 URL 时将资源本身视为主文档。`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSliceVarP(&checkLists, "list", "l", nil, "使用的列表名，可重复")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "以 JSON 输出")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	resourceURL := args[0]
	mainDocumentURL := resourceURL
	if len(args) == 2 {
		mainDocumentURL = args[1]
	}

	names := checkLists
	if len(names) == 0 {
		names = adblock.EnabledLists(cfg.Blocking)
	}

	compiler := &blocklist.Compiler{
		Loader:       listLoader(cfg, path),
		MatchTimeout: cfg.MatchTimeout(),
	}
	list, err := compiler.Compile(cmd.Context(), names)
	if err != nil {
		return err
	}

	res := blocklist.Match(list, resourceURL, mainDocumentURL)
	out := cmd.OutOrStdout()

	if checkJSON {
		view := map[string]interface{}{
			"url":               resourceURL,
			"main_document_url": mainDocumentURL,
			"verdict":           res.Verdict.String(),
		}
		if res.Rule != nil {
			view["list"] = res.Rule.List
			view["rule_index"] = res.Rule.Index
			view["filter"] = res.Rule.Filter
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(view)
	}

	if res.Rule == nil {
		_, err = fmt.Fprintf(out, "%s\n", res.Verdict)
		return err
	}

	_, err = fmt.Fprintf(out, "%s by %s #%d: %s\n", res.Verdict, res.Rule.List, res.Rule.Index, res.Rule.Filter)

	return err
}
