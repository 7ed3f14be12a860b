package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voxbar/internal/action"
	"voxbar/internal/ipc"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:           "voxbar-ctl",
	Short:         "Control a running voxbar daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var queryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Ask the assistant something",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.ControlMessage{Cmd: ipc.CmdQuery, Text: strings.Join(args, " ")})
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <n>",
	Short: "Pick option n (starting at 1) of the choices on screen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid option %q", args[0])
		}
		return send(ipc.ControlMessage{Cmd: ipc.CmdSelect, Index: n - 1})
	},
}

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Dismiss the current response and stop speaking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.ControlMessage{Cmd: ipc.CmdAbandon})
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List pending reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.ControlMessage{Cmd: ipc.CmdReminders})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon version and state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.ControlMessage{Cmd: ipc.CmdStatus})
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all reminders and custom actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("refusing to reset without --yes")
		}
		return send(ipc.ControlMessage{Cmd: ipc.CmdReset})
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Manage custom actions",
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.ControlMessage{Cmd: ipc.CmdActions})
	},
}

var (
	actionTrigger string
	actionSteps   []string
)

var actionsAddCmd = &cobra.Command{
	Use:     "add --trigger <phrase> --step <kind>=<value>...",
	Short:   "Add a custom action",
	Example: `  voxbar-ctl actions add --trigger "start work" --step speak="On it" --step open_url=https://example.com`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseSteps(actionSteps)
		if err != nil {
			return err
		}
		a := action.CustomAction{Trigger: actionTrigger, Steps: steps}.Normalize()
		if err := a.Validate(); err != nil {
			return err
		}
		return send(ipc.ControlMessage{Cmd: ipc.CmdActionAdd, Action: &a})
	},
}

var actionsRemoveCmd = &cobra.Command{
	Use:   "rm <n>",
	Short: "Remove custom action n (starting at 1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid action %q", args[0])
		}
		return send(ipc.ControlMessage{Cmd: ipc.CmdActionRemove, Index: n - 1})
	},
}

// parseSteps reads kind=value pairs in order.
func parseSteps(raw []string) ([]action.Step, error) {
	steps := make([]action.Step, 0, len(raw))
	for _, r := range raw {
		kind, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("step %q is not kind=value", r)
		}
		steps = append(steps, action.Step{Kind: action.Kind(strings.TrimSpace(kind)), Value: value})
	}
	return steps, nil
}

func init() {
	actionsAddCmd.Flags().StringVarP(&actionTrigger, "trigger", "t", "", "Phrase that runs the action")
	actionsAddCmd.Flags().StringArrayVar(&actionSteps, "step", nil, "Step as kind=value, repeatable")
	_ = actionsAddCmd.MarkFlagRequired("trigger")
	actionsCmd.AddCommand(actionsListCmd, actionsAddCmd, actionsRemoveCmd)

	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocket(), "Control socket path")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the reset")
	rootCmd.AddCommand(queryCmd, selectCmd, abandonCmd, remindersCmd, statusCmd, resetCmd, actionsCmd)
}

func defaultSocket() string {
	if p := os.Getenv("VOXBAR_SOCKET"); p != "" {
		return p
	}
	return ipc.DefaultSocketPath()
}

func send(msg ipc.ControlMessage) error {
	r, err := ipc.Send(socketPath, msg)
	if err != nil {
		return fmt.Errorf("voxbar-daemon not running: %w", err)
	}
	if !r.OK {
		return errors.New(r.Error)
	}
	for _, line := range r.Lines {
		fmt.Println(line)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
