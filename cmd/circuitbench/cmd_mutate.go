package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"circuitbench/internal/mutate"
)

var mutateFlags struct {
	seed     int64
	mode     string
	modality string
}

var mutateCmd = &cobra.Command{
	Use:   "mutate <file>",
	Short: "Apply randomization or fault injection to an artifact for inspection",
	Args:  cobra.ExactArgs(1),
	RunE:  runMutate,
}

func init() {
	f := mutateCmd.Flags()
	f.Int64Var(&mutateFlags.seed, "seed", 42, "Mutation seed")
	f.StringVar(&mutateFlags.mode, "mode", "randomize", "Mutation mode (randomize, bug)")
	f.StringVar(&mutateFlags.modality, "modality", "spice_netlist", "Artifact modality (spice_netlist, casIR, cascode)")
}

func runMutate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	text := string(data)

	switch mutateFlags.mode {
	case "randomize":
		if mutateFlags.modality != "spice_netlist" {
			return fmt.Errorf("randomize supports spice_netlist only, got %q", mutateFlags.modality)
		}
		fmt.Fprint(cmd.OutOrStdout(), mutate.RandomizeSpice(text, mutateFlags.seed, mutate.DefaultOptions()))
		fmt.Fprintln(cmd.OutOrStdout())
	case "bug":
		mutated, fault, err := mutate.InjectFault(text, mutateFlags.modality, mutateFlags.seed)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), mutated)
		fmt.Fprintln(cmd.OutOrStdout())
		if fault == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no eligible fault site; artifact unchanged")
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "fault: %s %s %s -> %s\n",
				fault.Grammar, fault.Site, fault.Before, fault.After)
		}
	default:
		return fmt.Errorf("unknown mode %q", mutateFlags.mode)
	}
	return nil
}
