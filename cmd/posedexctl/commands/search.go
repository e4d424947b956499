package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	posedex "github.com/kailas-cloud/posedex/pkg/sdk"
)

type searchOpts struct {
	sketch   string
	text     string
	k        int
	lambda   float64
	detector bool
	out      string
}

func newSearchCmd(g *globals) *cobra.Command {
	o := &searchOpts{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the corpus with a sketch and a description",
		Long: `Search ranks corpus images by fused pose and text similarity.

Examples:
  posedexctl search --sketch pose.png --text "dancer leaping"
  posedexctl search --sketch pose.png --text "runner" --k 10 --lambda 0.7 --out results/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&o.sketch, "sketch", "", "sketch image file (required)")
	cmd.Flags().StringVar(&o.text, "text", "", "text description (required)")
	cmd.Flags().IntVar(&o.k, "k", 10, "number of results, clamped to [1, 100] by the server")
	cmd.Flags().Float64Var(&o.lambda, "lambda", 0.5, "pose weight in [0, 1]")
	cmd.Flags().BoolVar(&o.detector, "detector", true, "run the person box detector before keypoints")
	cmd.Flags().StringVar(&o.out, "out", "", "directory to write result images to")
	_ = cmd.MarkFlagRequired("sketch")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func runSearch(cmd *cobra.Command, g *globals, o *searchOpts) error {
	sketch, err := os.ReadFile(o.sketch)
	if err != nil {
		return fmt.Errorf("reading sketch: %w", err)
	}
	client, err := g.client()
	if err != nil {
		return err
	}

	req := posedex.SearchRequest{Sketch: sketch, Text: o.text}
	if cmd.Flags().Changed("k") {
		req.K = posedex.Int(o.k)
	}
	if cmd.Flags().Changed("lambda") {
		req.Lambda = posedex.Float64(o.lambda)
	}
	if cmd.Flags().Changed("detector") {
		req.UseBBoxDetector = posedex.Bool(o.detector)
	}

	res, err := client.Search(cmd.Context(), req)
	if err != nil {
		return describeAPIError(err)
	}

	if o.out != "" {
		if err := writeHits(o.out, res.Results); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if g.json {
		type row struct {
			Path  string  `json:"path"`
			Score float64 `json:"score"`
		}
		rows := make([]row, len(res.Results))
		for i, h := range res.Results {
			rows[i] = row{Path: h.Path, Score: h.Score}
		}
		return printJSON(out, map[string]any{"results": rows, "skipped": res.Skipped, "missed": res.Missed})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tPATH")
	for i, h := range res.Results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\n", i+1, h.Score, h.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if res.Skipped > 0 || res.Missed > 0 {
		fmt.Fprintf(out, "\n%d entries skipped (missing vectors), %d results missed (unreadable images)\n",
			res.Skipped, res.Missed)
	}
	return nil
}

// writeHits stores each result image under dir as <rank>_<base name>.
func writeHits(dir string, hits []posedex.Hit) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for i, h := range hits {
		name := fmt.Sprintf("%02d_%s", i+1, filepath.Base(filepath.FromSlash(h.Path)))
		if err := os.WriteFile(filepath.Join(dir, name), h.Image, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// describeAPIError adds a hint for the failures an operator can act on.
func describeAPIError(err error) error {
	switch {
	case errors.Is(err, posedex.ErrNoSubjectDetected):
		return fmt.Errorf("%w (hint: try --detector=false for tight sketches)", err)
	case errors.Is(err, posedex.ErrCorpus):
		return fmt.Errorf("%w (hint: check the server corpus with 'posedexctl corpus stats')", err)
	case errors.Is(err, posedex.ErrTransport):
		return fmt.Errorf("%w (hint: check the inference services with 'posedexctl health')", err)
	default:
		return err
	}
}
