package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/spf13/cobra"
)

type contractSummary struct {
	Entity     string   `json:"entity"`
	Operations []string `json:"operations"`
	FieldCount int      `json:"field_count"`
	Invariants []string `json:"invariants,omitempty"`
}

type contractDetail struct {
	Entity     string             `json:"entity"`
	Operation  string             `json:"operation"`
	Contract   string             `json:"contract"`
	Fields     []schema.FieldInfo `json:"fields"`
	Invariants []string           `json:"invariants"`
}

func newContractsCmd() *cobra.Command {
	var (
		output string
		entity string
		op     string
	)

	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List entity contracts, or describe one with --entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			output = strings.ToLower(strings.TrimSpace(output))
			if output != "text" && output != "json" {
				return withCode(exitFailure, fmt.Errorf("unsupported --output %q (expected text|json)", output))
			}
			out := cmd.OutOrStdout()

			if strings.TrimSpace(entity) != "" {
				detail, err := describeContract(entity, op)
				if err != nil {
					return withCode(exitFailure, err)
				}
				if output == "json" {
					return writeJSON(out, detail)
				}
				return writeContractDetail(out, detail)
			}

			summaries, err := listContracts()
			if err != nil {
				return withCode(exitFailure, err)
			}
			if output == "json" {
				return writeJSON(out, summaries)
			}
			return writeContractList(out, summaries)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|json")
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Describe the fields of one entity")
	cmd.Flags().StringVar(&op, "op", "base", "Operation variant to describe: base|create|update|response")
	return cmd
}

func listContracts() ([]contractSummary, error) {
	list := entities.Entities()
	out := make([]contractSummary, 0, len(list))
	for _, e := range list {
		c, err := entities.Build(e, schema.OpBase)
		if err != nil {
			return nil, err
		}
		ops := entities.Operations(e)
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = string(op)
		}
		out = append(out, contractSummary{
			Entity:     string(e),
			Operations: names,
			FieldCount: len(c.Fields),
			Invariants: c.InvariantNames(),
		})
	}
	return out, nil
}

func describeContract(name, opName string) (*contractDetail, error) {
	e, err := entities.ParseEntity(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("invalid --entity: %w", err)
	}
	op, err := schema.ParseOperation(strings.ToLower(strings.TrimSpace(opName)))
	if err != nil {
		return nil, fmt.Errorf("invalid --op: %w", err)
	}
	c, err := entities.Build(e, op)
	if err != nil {
		return nil, err
	}
	return &contractDetail{
		Entity:     string(e),
		Operation:  string(op),
		Contract:   c.Name,
		Fields:     c.Describe(),
		Invariants: c.InvariantNames(),
	}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return withCode(exitFailure, fmt.Errorf("failed to encode output: %w", err))
	}
	return nil
}

func writeContractList(w io.Writer, summaries []contractSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tOPERATIONS\tFIELDS\tINVARIANTS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", s.Entity, strings.Join(s.Operations, ","), s.FieldCount, len(s.Invariants))
	}
	return tw.Flush()
}

func writeContractDetail(w io.Writer, d *contractDetail) error {
	fmt.Fprintf(w, "%s (%s)\n\n", d.Contract, d.Operation)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tCONSTRAINTS")
	writeFieldRows(tw, "", d.Fields)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(d.Invariants) > 0 {
		fmt.Fprintf(w, "\nInvariants: %s\n", strings.Join(d.Invariants, ", "))
	}
	return nil
}

func writeFieldRows(w io.Writer, prefix string, fields []schema.FieldInfo) {
	for _, f := range fields {
		name := prefix + f.Name
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, f.Kind, strings.Join(f.Constraints, ", "))
		if len(f.Fields) > 0 {
			writeFieldRows(w, name+".", f.Fields)
		}
	}
}
