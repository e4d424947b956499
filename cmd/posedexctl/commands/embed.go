package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newEmbedCmd(g *globals) *cobra.Command {
	var (
		image     string
		normalize bool
	)
	cmd := &cobra.Command{
		Use:   "embed [text...]",
		Short: "Embed texts or an image into the semantic space",
		Long: `Embed prints semantic vectors as JSON, one per text argument, or a single
vector for --image.

Examples:
  posedexctl embed "a dancer" "a runner"
  posedexctl embed --image photo.jpg --normalize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (image == "") == (len(args) == 0) {
				return errors.New("provide either text arguments or --image")
			}
			client, err := g.client()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if image != "" {
				data, err := os.ReadFile(image)
				if err != nil {
					return fmt.Errorf("reading image: %w", err)
				}
				vec, err := client.EmbedImage(cmd.Context(), data, normalize)
				if err != nil {
					return describeAPIError(err)
				}
				return printJSON(out, vec)
			}

			vecs, err := client.EmbedTexts(cmd.Context(), args, normalize)
			if err != nil {
				return describeAPIError(err)
			}
			return printJSON(out, vecs)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file to embed")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "L2-normalize the vectors")
	return cmd
}
