// Command taxonflow converts source taxonomic datasets into Darwin Core
// style checklists. A control table lists the datasets to convert; every
// row names a job from the registry and supplies the configuration for
// one dataset, and each job runs as a processing graph in its own
// subcontext.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taxonflow",
	Short: "Convert taxonomic datasets into Darwin Core checklists",
	Long: `taxonflow runs a batch of dataset conversions driven by a control table.

Every row of the control table (sources.csv by default) names a job from
the registry plus the settings for one dataset: the directory it lives
in, extra configuration folders, and default values the job's nodes read
at run time. Jobs are processing graphs whose nodes read tabular files,
repair taxonomic structure, and write Darwin Core style outputs; rows
the graph cannot process are recovered as CSV files in the work
directory rather than lost.

Examples:
  taxonflow --base /data/taxonomy                 # run every control row
  taxonflow --base /data/taxonomy --only ala,col  # run two datasets
  taxonflow --verbose --dump                      # keep every intermediate`,
	RunE:         runRoot,
	SilenceUsage: true,
}

func init() {
	addFlags(rootCmd)
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("base", "d", ".", "base directory anchoring input, output and work")
	flags.StringP("input", "i", "", "input directory (defaults to the base directory)")
	flags.StringP("output", "o", "", "output directory (defaults to base/output)")
	flags.StringP("work", "w", "", "work directory (defaults to base/work)")
	flags.StringSliceP("config-dirs", "c", nil, "extra directories searched for input and configuration files")
	flags.StringP("sources", "s", "sources.csv", "control table naming the datasets to convert")
	flags.StringSlice("only", nil, "run only the control rows with these ids")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Bool("log-json", false, "JSON log encoding instead of console")
	flags.Bool("dump", false, "write every node's outputs to the work directory")
	flags.BoolP("clear-work", "x", false, "empty the work directory before running")
	flags.Int("report-every", 0, "progress report interval in rows")
	flags.String("settings", "", "YAML settings file; explicit flags override it")
	flags.String("metrics-push", "", "Pushgateway base URL to deliver run metrics to")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
