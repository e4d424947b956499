package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	posedex "github.com/kailas-cloud/posedex/pkg/sdk"
)

func newPoseCmd(g *globals) *cobra.Command {
	var detector bool
	cmd := &cobra.Command{
		Use:   "pose <image>",
		Short: "Extract the pose from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			client, err := g.client()
			if err != nil {
				return err
			}
			var useDetector *bool
			if cmd.Flags().Changed("detector") {
				useDetector = posedex.Bool(detector)
			}

			p, err := client.ExtractPose(cmd.Context(), img, useDetector)
			if err != nil {
				return describeAPIError(err)
			}

			out := cmd.OutOrStdout()
			if g.json {
				return printJSON(out, p)
			}
			if !p.Detected {
				fmt.Fprintln(out, p.Message)
				return nil
			}
			fmt.Fprintf(out, "image %dx%d, %d keypoints, %d-dim embedding\n",
				p.Shape[1], p.Shape[0], len(p.Keypoints), len(p.Embedding))
			fmt.Fprint(out, formatKeypoints(p.Keypoints))
			return nil
		},
	}
	cmd.Flags().BoolVar(&detector, "detector", true, "run the person box detector before keypoints")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatKeypoints(kp map[string][2]float32) string {
	var b strings.Builder
	names := sortedKeys(kp)
	for _, n := range names {
		p := kp[n]
		fmt.Fprintf(&b, "  %-16s %8.1f %8.1f\n", n, p[0], p[1])
	}
	return b.String()
}
