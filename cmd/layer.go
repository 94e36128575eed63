package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/mme/internal/primtext"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/session"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var force bool

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing stage file")
	rootCmd.AddCommand(initCmd, exportCmd, importCmd, queryCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a demo stage (a chair with two materials) to the stage file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.Stage); err == nil && !force {
			return fmt.Errorf("%s exists (use --force)", cfg.Stage)
		}
		s, err := demoStage(cfg.DefaultPrim, cfg.ViewportUI)
		if err != nil {
			return err
		}
		if err := saveStage(s, cfg.Stage); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfg.Stage)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [path...]",
	Short: "Print prim subtrees as portable text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStage(cfg.Stage)
		if err != nil {
			return err
		}
		paths := make([]scene.Path, 0, len(args))
		for _, a := range args {
			p, err := scene.ParsePath(a)
			if err != nil {
				return err
			}
			paths = append(paths, p)
		}
		text, err := primtext.Export(s, paths)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file] [destination]",
	Short: "Instantiate exported text under a prim",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		dest, err := scene.ParsePath(args[1])
		if err != nil {
			return err
		}
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			return primtext.ImportText(sess.Host, string(data), dest)
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [jsonpath]",
	Short: "Run a JSONPath query over the stage document",
	Long: `Run a JSONPath query over the stage rendered as a document tree.
Each prim is {path, name, type, attributes, relationships, children}.

  mme query '$..children[?(@.type == "Mesh")].path'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStage(cfg.Stage)
		if err != nil {
			return err
		}
		x, err := jp.ParseString(args[0])
		if err != nil {
			return fmt.Errorf("invalid jsonpath '%s': %w", args[0], err)
		}
		for _, r := range x.Get(scene.Document(s)) {
			fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(r, &oj.Options{Sort: true}))
		}
		return nil
	},
}
