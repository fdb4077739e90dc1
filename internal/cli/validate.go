package cli

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/synth"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema-file>",
	Short: "Check a schema file and print a sample record",
	Long: `Validate loads a schema, checks its structure and generates one sample
record so unsupported field types are caught before a full run.

Examples:
  datasynth validate orders.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	schema, err := LoadSchema(args[0])
	if err != nil {
		return err
	}
	if err := schema.Validate(); err != nil {
		pterm.Error.Println(err)
		return err
	}
	if unknown := schema.UnknownTypes(); len(unknown) > 0 {
		supported := make([]string, len(model.ValidFieldTypes))
		for i, t := range model.ValidFieldTypes {
			supported[i] = string(t)
		}
		pterm.Warning.Printf("supported types: %s\n", strings.Join(supported, ", "))
		err := fmt.Errorf("unsupported field types: %s", strings.Join(unknown, ", "))
		pterm.Error.Println(err)
		return err
	}
	schema.Normalize()

	sample, err := synth.GenerateRecord(synth.NewSource(1), schema.Fields, nil)
	if err != nil {
		pterm.Error.Println(err)
		return err
	}

	pterm.Success.Printf("%s: %d fields\n", schema.TableName, len(schema.Fields))
	pterm.Println(fieldTable(schema, sample))
	return nil
}

func fieldTable(schema *model.TableSchema, sample model.Record) string {
	data := pterm.TableData{{"Field", "Type", "Mode", "Sample"}}
	for _, f := range schema.Fields {
		data = append(data, []string{f.Name, string(f.Type), string(f.Mode), fmt.Sprint(sampleCell(sample.Get(f.Name)))})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return ""
	}
	return out
}
