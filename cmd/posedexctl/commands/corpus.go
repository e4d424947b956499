package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/posedex/internal/domain"
	corpusrepo "github.com/kailas-cloud/posedex/internal/repository/corpus"
	posedex "github.com/kailas-cloud/posedex/pkg/sdk"
)

func newCorpusCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect or reload the embedding corpus",
		Long: `Corpus subcommands read the served corpus through the server, or a local
corpus file when --file is given.`,
	}
	cmd.AddCommand(newCorpusStatsCmd(g), newCorpusInspectCmd(g), newCorpusReloadCmd(g))
	return cmd
}

func newCorpusStatsCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st posedex.CorpusStats
			if file != "" {
				s, err := corpusrepo.Load(file, g.logger())
				if err != nil {
					return err
				}
				cs := s.Stats()
				st = posedex.CorpusStats{
					Entries:         cs.Entries,
					Comparable:      cs.Comparable,
					MissingPose:     cs.MissingPose,
					MissingSemantic: cs.MissingSemantic,
					Invalid:         cs.Invalid,
					PoseDims:        cs.PoseDims,
					SemanticDims:    cs.SemanticDims,
					Metadata:        s.Metadata(),
				}
			} else {
				client, err := g.client()
				if err != nil {
					return err
				}
				if st, err = client.Corpus(cmd.Context()); err != nil {
					return err
				}
			}
			return printStats(cmd.OutOrStdout(), g.json, st)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a local corpus file instead of the server")
	return cmd
}

func newCorpusInspectCmd(g *globals) *cobra.Command {
	var (
		file    string
		vectors bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Show one corpus entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var e posedex.Entry
			if file != "" {
				s, err := corpusrepo.Load(file, g.logger())
				if err != nil {
					return err
				}
				ce, ok := s.Get(id)
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
				}
				pd, sd := s.Dims()
				e = posedex.Entry{
					ID:           ce.ID,
					HasPose:      len(ce.Pose) > 0,
					HasSemantic:  len(ce.Semantic) > 0,
					PoseDims:     pd,
					SemanticDims: sd,
				}
				if vectors {
					e.Pose, e.Semantic = ce.Pose, ce.Semantic
				}
			} else {
				client, err := g.client()
				if err != nil {
					return err
				}
				if e, err = client.Entry(cmd.Context(), id, vectors); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if g.json {
				return printJSON(out, e)
			}
			fmt.Fprintf(out, "id:        %s\n", e.ID)
			fmt.Fprintf(out, "pose:      %s\n", presence(e.HasPose, e.PoseDims))
			fmt.Fprintf(out, "semantic:  %s\n", presence(e.HasSemantic, e.SemanticDims))
			if vectors {
				fmt.Fprintf(out, "pose_embedding: %v\nclip_embedding: %v\n", e.Pose, e.Semantic)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a local corpus file instead of the server")
	cmd.Flags().BoolVar(&vectors, "vectors", false, "print the raw vectors")
	return cmd
}

func newCorpusReloadCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Make the server re-read its corpus file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			st, err := client.ReloadCorpus(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), g.json, st)
		},
	}
}

func printStats(w io.Writer, asJSON bool, st posedex.CorpusStats) error {
	if asJSON {
		return printJSON(w, st)
	}
	fmt.Fprintf(w, "entries:           %d\n", st.Entries)
	fmt.Fprintf(w, "comparable:        %d\n", st.Comparable)
	fmt.Fprintf(w, "missing pose:      %d\n", st.MissingPose)
	fmt.Fprintf(w, "missing semantic:  %d\n", st.MissingSemantic)
	fmt.Fprintf(w, "invalid vectors:   %d\n", st.Invalid)
	fmt.Fprintf(w, "pose dims:         %d\n", st.PoseDims)
	fmt.Fprintf(w, "semantic dims:     %d\n", st.SemanticDims)
	if m := st.Metadata; m != nil {
		fmt.Fprintf(w, "crawl:             %d images, %d ok, %d failed, %d without a person\n",
			m.TotalImages, m.Successful, m.Failed, m.NoPersonDetected)
	}
	return nil
}

func presence(ok bool, dims int) string {
	if !ok {
		return "missing"
	}
	return fmt.Sprintf("%d dims", dims)
}
