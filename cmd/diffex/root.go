// diffex is the differential expression CLI: analyze fits and ranks a
// microarray study, crosscheck validates the two fit routes against each
// other, synth generates a study with known effects.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"diffex/internal"
)

var rootCmd = &cobra.Command{
	Use:   "diffex",
	Short: "Differential expression analysis for microarray studies",
	Long: "Diffex fits a linear model to every probeset of an expression matrix,\n" +
		"moderates the variance estimates by pooling across probesets, and ranks\n" +
		"probesets by evidence of differential expression.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(crosscheckCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.Version = internal.Version
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
