package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/datasynth/api/internal/app"
	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/pipeline"
	"github.com/datasynth/api/internal/sink"
)

var (
	genSchema  string
	genCount   int
	genFormat  string
	genStorage []string
	genOut     string
	genSeed    uint64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate records from a schema file",
	Long: `Generate synthesizes records in parallel chunks and persists them to the
requested sinks.

Examples:
  datasynth generate --schema orders.yaml --count 2500
  datasynth generate -s orders.json -n 100000 --format all --storage relational,object_store
  datasynth generate -s orders.yaml -n 10 --seed 42`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genSchema, "schema", "s", "", "schema file (.yaml, .yml or .json)")
	generateCmd.Flags().IntVarP(&genCount, "count", "n", 1000, "number of records")
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "csv", "output format: csv, json, parquet, both or all")
	generateCmd.Flags().StringSliceVar(&genStorage, "storage", nil, "storage options: file, relational, object_store, document, both, all")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "output directory (defaults to storage.output_dir)")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0, "random seed (0 picks one)")
	_ = generateCmd.MarkFlagRequired("schema")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	schema, err := LoadSchema(genSchema)
	if err != nil {
		return err
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	if genCount <= 0 {
		return &errs.ValidationError{Field: "count", Message: "count must be positive"}
	}
	format := model.OutputFormat(strings.ToLower(genFormat))
	switch format {
	case model.OutputFormatCSV, model.OutputFormatJSON, model.OutputFormatParquet, model.OutputFormatBoth, model.OutputFormatAll:
	default:
		return &errs.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", genFormat)}
	}
	storage, err := parseStorage(genStorage)
	if err != nil {
		return err
	}
	if genOut != "" {
		cfg.Storage.OutputDir = genOut
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends := &app.Backends{}
	if needsBackends(storage) {
		backends = app.OpenBackends(ctx, cfg, log)
		defer backends.Close(context.Background())
	}
	runner := app.Runner(cfg, backends.Coordinator(cfg), log)

	seed := genSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	chunks := len(pipeline.PlanChunks(genCount, cfg.Generation.ChunkSize))
	bar, err := pterm.DefaultProgressbar.
		WithTotal(genCount).
		WithTitle(fmt.Sprintf("Generating %s", schema.TableName)).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	done := 0
	tracker := pipeline.NewTracker(genCount, chunks, func(p model.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Current > done {
			bar.Add(p.Current - done)
			done = p.Current
		}
		if p.Message != "" {
			bar.UpdateTitle(p.Message)
		}
	})

	result, err := runner.Run(ctx, pipeline.Job{
		Schema:       *schema,
		RecordCount:  genCount,
		OutputFormat: format,
		Storage:      storage,
		Seed:         seed,
	}, tracker)
	_, _ = bar.Stop()
	if err != nil {
		pterm.Error.Println(errs.Describe(err))
		return err
	}

	printResult(result)
	return nil
}

func parseStorage(values []string) (model.StorageOptions, error) {
	var out model.StorageOptions
	for _, v := range values {
		opt := model.StorageOption(strings.ToLower(strings.TrimSpace(v)))
		valid := false
		for _, known := range model.ValidStorageOptions {
			if opt == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, &errs.ValidationError{Field: "storage", Message: fmt.Sprintf("unknown storage option %q", v)}
		}
		out = append(out, opt)
	}
	return out, nil
}

func needsBackends(storage model.StorageOptions) bool {
	return storage.Wants(model.StorageRelational) || storage.Wants(model.StorageObjectStore) ||
		storage.Wants(model.StorageDocument)
}

func printResult(result *model.GenerationResult) {
	pterm.Success.Printf("Generated %d records in %d chunks (%dms, seed %d)\n",
		result.RecordsGenerated, result.ProcessingDetails.TotalChunks,
		result.ProcessingDetails.DurationMs, result.ProcessingDetails.Seed)

	data := pterm.TableData{{"Sink", "Status", "Detail"}}
	for _, r := range result.StorageResults {
		detail := ""
		if r.Error != nil {
			detail = *r.Error
		} else if len(r.Detail) > 0 {
			detail = fmt.Sprint(r.Detail)
		}
		data = append(data, []string{string(r.Sink), string(r.Status), detail})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if result.Preview.SampleCSV != "" {
		pterm.Println()
		pterm.DefaultSection.Println("Sample")
		pterm.Println(result.Preview.SampleCSV)
	}
}

// sampleCell renders a value the way it lands in CSV output.
func sampleCell(v any) string {
	return sink.FormatCell(v)
}
