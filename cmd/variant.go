package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/agentic-research/mme/internal/host"
	"github.com/agentic-research/mme/internal/scene"
	"github.com/agentic-research/mme/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd, addCmd, enableCmd, deleteCmd, renameCmd, bindCmd, selectMaterialCmd, viewportUICmd)
}

// focus selects arg so the observer brings its owning object into the
// shell. Actions then run against sess.Shell.Object().
func focus(sess *session.Session, arg string) error {
	p, err := scene.ParsePath(arg)
	if err != nil {
		return err
	}
	if err := sess.Select(p); err != nil {
		return err
	}
	if sess.Shell.Object() == "" {
		return fmt.Errorf("%s does not resolve to an object", p)
	}
	return nil
}

var showCmd = &cobra.Command{
	Use:   "show [object]",
	Short: "Show the variants of the object owning a prim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), false, func(sess *session.Session) error {
			return focus(sess, args[0])
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add [object]",
	Short: "Capture the current bindings into a new variant and activate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			if err := focus(sess, args[0]); err != nil {
				return err
			}
			_, err := sess.Shell.AddVariant()
			return err
		})
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable [object] [variant]",
	Short: "Activate a variant, or the original bindings when no variant is named",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			if err := focus(sess, args[0]); err != nil {
				return err
			}
			return sess.Shell.EnableVariant(name)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [object] [variant]",
	Short: "Delete a variant folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			if err := focus(sess, args[0]); err != nil {
				return err
			}
			return sess.Shell.DeleteVariant(args[1])
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [object] [variant] [display name]",
	Short: "Change a variant's display name",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			if err := focus(sess, args[0]); err != nil {
				return err
			}
			return sess.Shell.RenameVariant(args[1], args[2])
		})
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind [mesh] [material]",
	Short: "Bind a material as a user edit; the active variant absorbs it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), true, func(sess *session.Session) error {
			_, err := sess.Host.Execute(host.CmdBindMaterial, host.Args{
				"prim_path":     args[0],
				"material_path": args[1],
			})
			return err
		})
	},
}

var selectMaterialCmd = &cobra.Command{
	Use:   "select-material [mesh]",
	Short: "Print the material bound to a mesh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(io.Discard, false, func(sess *session.Session) error {
			mesh, err := scene.ParsePath(args[0])
			if err != nil {
				return err
			}
			if err := sess.Shell.SelectMaterial(mesh); err != nil {
				return err
			}
			for _, p := range sess.Host.Selection() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		})
	},
}

var viewportUICmd = &cobra.Command{
	Use:   "viewport-ui [on|off]",
	Short: "Read or set the global viewport overlay toggle",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), len(args) == 1, func(sess *session.Session) error {
			if len(args) == 1 {
				on, err := parseOnOff(args[0])
				if err != nil {
					return err
				}
				if err := sess.Shell.SetViewportUI(on); err != nil {
					return err
				}
			}
			sess.Shell.ShowDefault()
			return nil
		})
	},
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("want on or off, got %q", s)
	}
	return b, nil
}
