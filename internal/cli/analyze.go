package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expediente/internal/expediente/analysis"
	"expediente/internal/expediente/chain"
	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
	"expediente/pkg/requestcontext"
)

type analyzeOptions struct {
	asOf         string
	returnPolicy string
	parallel     int
}

// fileResult pairs an input path with its analysis.
type fileResult struct {
	File   string           `json:"file"`
	Result *analysis.Result `json:"result"`
}

func newAnalyzeCommand(a *app) *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze expediente JSON files",
		Long: `Each FILE holds one expediente: either {"files": [...]} or a bare array of OCR'd documents.
Expedientes are analyzed in parallel and printed as JSON in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "reference date (YYYY-MM-DD or DD/MM/YYYY); default today")
	cmd.Flags().StringVar(&opts.returnPolicy, "return-policy", "", "allow-ping-pong or reject-ping-pong")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", runtime.NumCPU(), "expedientes analyzed at once")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, paths []string, opts analyzeOptions) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	asOf, err := a.referenceDate(opts.asOf)
	if err != nil {
		return err
	}
	var policy chain.ReturnPolicy
	if opts.returnPolicy != "" {
		if policy, err = chain.ParseReturnPolicy(opts.returnPolicy); err != nil {
			return err
		}
	}

	// One clock reading for the whole batch.
	ctx := requestcontext.WithTime(cmd.Context(), time.Now())
	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if opts.parallel > 0 {
		g.SetLimit(opts.parallel)
	}
	for i, path := range paths {
		g.Go(func() error {
			files, err := readExpediente(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res, err := svc.Analyze(ctx, analysis.Request{Files: files, AsOf: asOf, ReturnPolicy: policy})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = fileResult{File: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		err = enc.Encode(results[0].Result)
	} else {
		err = enc.Encode(results)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Result.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d expedientes could not be analyzed", failed, len(results))
	}
	return nil
}

// referenceDate resolves the flag, then the configured pin. Zero means the
// request time.
func (a *app) referenceDate(flag string) (time.Time, error) {
	if flag != "" {
		t, ok := dates.Parse(flag)
		if !ok {
			return time.Time{}, fmt.Errorf("invalid --as-of date %q", flag)
		}
		return t, nil
	}
	return a.cfg.AsOf()
}

func readExpediente(path string) ([]models.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var files []models.RawDocument
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
		return files, nil
	}
	var body struct {
		Files []models.RawDocument `json:"files"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse expediente: %w", err)
	}
	return body.Files, nil
}
