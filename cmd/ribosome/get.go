package main

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/wippyai/ribosome/action"
	"github.com/wippyai/ribosome/state"
)

var getCmd = &cobra.Command{
	Use:   "get ADDRESS...",
	Short: "Print stored entries by address",
	Long:  "get reads entries from the state store. It is mostly useful with --store goleveldb,\nwhere entries outlive the call that committed them.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  getCommand,
}

func getCommand(cmd *cobra.Command, args []string) error {
	addrs := make([]action.Address, len(args))
	for i, arg := range args {
		addr, err := action.ParseAddress(arg)
		if err != nil {
			return err
		}
		addrs[i] = addr
	}

	store, err := state.NewStore(state.Backend(storeKind), storeDir)
	if err != nil {
		return err
	}
	defer store.Close()

	missing := 0
	for _, addr := range addrs {
		e, ok, err := store.Get(addr)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s %s\n", addr, color.Red.Sprint("not found"))
			missing++
			continue
		}
		fmt.Printf("%s %s %q\n", addr, color.Yellow.Sprint(e.Type), e.Content)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d entries not found", missing, len(addrs))
	}
	return nil
}
