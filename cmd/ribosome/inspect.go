package main

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/host"
	"github.com/wippyai/ribosome/wasm"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect MODULE",
	Short: "List a module's imports and exports",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectCommand,
}

func inspectCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bytecode, err := readModule(args[0])
	if err != nil {
		return err
	}

	eng := engine.New(ctx, nil)
	defer eng.Close(ctx)

	mod, err := eng.Compile(ctx, bytecode)
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	if !mod.HasMemory(config.MemoryName) {
		fmt.Println(color.Red.Sprintf("no memory exported as %q, calls will fail", config.MemoryName))
	}
	if mod.StartStripped() {
		fmt.Println(color.Yellow.Sprint("start section present, it will not run"))
	}

	fmt.Println(color.Bold.Sprint("imports"))
	if len(mod.Imports()) == 0 {
		fmt.Println("  (none)")
	}
	for _, imp := range mod.Imports() {
		label := fmt.Sprintf("%s.%s", imp.Module, imp.Name)
		if imp.Kind != wasm.KindFunc {
			fmt.Printf("  %s %s %s\n", color.Red.Sprint("✗"), label, wasm.KindName(imp.Kind))
			continue
		}
		sig := host.Signature{Params: imp.Params, Results: imp.Results}
		if _, err := host.Resolve(imp.Module, imp.Name, sig); err != nil {
			fmt.Printf("  %s %s %s\n    %s\n", color.Red.Sprint("✗"), label, sig, err)
			continue
		}
		fmt.Printf("  %s %s %s\n", color.Green.Sprint("✓"), label, sig)
	}

	fmt.Println(color.Bold.Sprint("exports"))
	for _, exp := range mod.Exports() {
		if exp.Kind != wasm.KindFunc {
			fmt.Printf("  %s %s\n", exp.Name, color.Gray.Sprint(wasm.KindName(exp.Kind)))
			continue
		}
		def, _ := mod.Function(exp.Name)
		sig := host.Signature{Params: def.ParamTypes(), Results: def.ResultTypes()}
		fmt.Printf("  %s %s\n", exp.Name, color.Cyan.Sprint(sig))
	}
	return nil
}
