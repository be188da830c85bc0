package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/spf13/cobra"
)

type validateFlags struct {
	entity string
	op     string
	file   string
	output string
}

// recordResult is one output line of the validate command.
type recordResult struct {
	Index    int                    `json:"index"`
	Valid    bool                   `json:"valid"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Computed map[string]interface{} `json:"computed,omitempty"`
}

func newValidateCmd() *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate JSON records against an entity contract",
		Long: `Reads a JSON object, a JSON array of objects or newline-delimited JSON from
--file (or stdin) and validates every record against the contract of --entity.
Prints one line per record and exits 1 when any record is rejected.`,
		Example: `  dpvalidate validate --entity users --op create --file new_users.ndjson
  cat part.json | dpvalidate validate --entity parts_inventory -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := entities.ParseEntity(strings.TrimSpace(flags.entity))
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("invalid --entity: %w", err))
			}
			op, err := schema.ParseOperation(strings.ToLower(strings.TrimSpace(flags.op)))
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("invalid --op: %w", err))
			}
			jsonOutput := false
			switch strings.ToLower(strings.TrimSpace(flags.output)) {
			case "", "text":
			case "json":
				jsonOutput = true
			default:
				return withCode(exitFailure, fmt.Errorf("unsupported --output %q (expected text|json)", flags.output))
			}

			contract, err := entities.Build(entity, op)
			if err != nil {
				return withCode(exitFailure, err)
			}

			in, closeIn, err := openInput(cmd, flags.file)
			if err != nil {
				return withCode(exitFailure, err)
			}
			defer closeIn()

			records, err := readRecords(in)
			if err != nil {
				return withCode(exitFailure, err)
			}

			engine := schema.NewEngine()
			results := validateRecords(engine, contract, op, records)

			rejected := 0
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for _, res := range results {
				if !res.Valid {
					rejected++
				}
				if jsonOutput {
					if err := enc.Encode(res); err != nil {
						return withCode(exitFailure, fmt.Errorf("failed to encode result: %w", err))
					}
					continue
				}
				writeRecordLine(out, res)
			}

			slog.Info("[Validate] Records checked",
				"entity", entity,
				"operation", op,
				"records", len(results),
				"rejected", rejected)
			if rejected > 0 {
				return withCode(exitFailure, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.entity, "entity", "e", "", "Entity (table) name, e.g. users")
	cmd.Flags().StringVar(&flags.op, "op", "base", "Operation: base|create|update|response")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "-", `Input file ("-" reads stdin)`)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Output format: text|json")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, f.Close, nil
}

// readRecords accepts a JSON array of objects or a stream of objects, one
// per line or concatenated.
func readRecords(r io.Reader) ([]map[string]interface{}, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no records in input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []map[string]interface{}
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return records, nil
	}

	var records []map[string]interface{}
	for {
		var rec map[string]interface{}
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid JSON at record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func validateRecords(engine *schema.Engine, contract *schema.Contract, op schema.Operation, records []map[string]interface{}) []recordResult {
	results := make([]recordResult, 0, len(records))
	for i, rec := range records {
		res := recordResult{Index: i + 1}
		if rec == nil {
			res.Errors = []string{"record must be a JSON object"}
			results = append(results, res)
			continue
		}

		out, err := engine.ValidateOp(contract, op, rec)
		if err != nil {
			var multi *schema.MultiValidationError
			if errors.As(err, &multi) {
				res.Errors = multi.Messages()
			} else {
				res.Errors = []string{err.Error()}
			}
			results = append(results, res)
			continue
		}

		res.Valid = true
		res.Warnings = out.Warnings
		if op == schema.OpResponse {
			res.Computed = entities.Computed(out.Value, engine.Now())
		}
		results = append(results, res)
	}
	return results
}

func writeRecordLine(w io.Writer, res recordResult) {
	if res.Valid {
		fmt.Fprintf(w, "record %d: valid", res.Index)
		if len(res.Warnings) > 0 {
			fmt.Fprintf(w, " (warnings: %s)", strings.Join(res.Warnings, "; "))
		}
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "record %d: invalid: %s\n", res.Index, strings.Join(res.Errors, "; "))
}
