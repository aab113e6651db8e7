package main

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/runtime"
)

var showStore bool

var callCmd = &cobra.Command{
	Use:   "call MODULE EXPORT [ARGS...]",
	Short: "Call an exported function",
	Args:  cobra.MinimumNArgs(2),
	RunE:  callCommand,
}

func init() {
	callCmd.Flags().BoolVar(&showStore, "show-store", false, "List every stored entry after the call")
}

func callCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bytecode, err := readModule(args[0])
	if err != nil {
		return err
	}
	params, found, err := exportParams(ctx, bytecode, args[1])
	if err != nil {
		return err
	}
	var values []uint64
	if found {
		if values, err = parseArgs(params, args[2:]); err != nil {
			return err
		}
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	out, err := s.call(ctx, bytecode, args[1], values)
	if err != nil {
		fmt.Println(color.Red.Sprint("FAILED"), err)
		return fmt.Errorf("call %s failed", args[1])
	}
	printOutcome(out)

	if showStore {
		return printStore(s)
	}
	return nil
}

// exportParams compiles the module once to learn the parameter types of name.
// Unknown exports are reported later by the runtime with its own error.
func exportParams(ctx context.Context, bytecode []byte, name string) ([]api.ValueType, bool, error) {
	eng := engine.New(ctx, nil)
	defer eng.Close(ctx)

	mod, err := eng.Compile(ctx, bytecode)
	if err != nil {
		return nil, false, err
	}
	defer mod.Close(ctx)

	def, ok := mod.Function(name)
	if !ok {
		return nil, false, nil
	}
	return def.ParamTypes(), true, nil
}

func printOutcome(out *runtime.Outcome) {
	for _, v := range out.DebugOutput() {
		fmt.Println(color.Gray.Sprint("print"), v)
	}
	for _, addr := range out.Commits() {
		fmt.Println(color.Cyan.Sprint("commit"), addr)
	}
	fmt.Println(color.Green.Sprint("result"), out.Result())
}

func printStore(s *session) error {
	addrs, err := s.store.Entries()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d entries\n", color.Bold.Sprint("store"), len(addrs))
	for _, addr := range addrs {
		e, _, err := s.store.Get(addr)
		if err != nil {
			return err
		}
		fmt.Printf("  %s %s %q\n", addr, color.Yellow.Sprint(e.Type), e.Content)
	}
	return nil
}
