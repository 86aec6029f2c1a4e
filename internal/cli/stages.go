package cli

import (
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgingest/internal/services"
)

var downloadCmd = &cobra.Command{
	Use:   string(services.StageDownload),
	Short: "Download the dataset and write it as header-less CSV",
	Long: `Downloads the source CSV, drops its header line and writes the remaining
rows as UTF-8 CSV to the dataset file, replacing any previous copy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, services.StageDownload)
	},
}

var uploadS3Cmd = &cobra.Command{
	Use:   string(services.StageUploadS3),
	Short: "Upload the dataset file to s3://AWS_BUCKET/CANDIDATE_ID/",
	Long: `Uploads the dataset file to the bucket under the tenant prefix, replacing
the previous object, and waits until the object can be read back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, services.StageUploadS3)
	},
}

var uploadDBCmd = &cobra.Command{
	Use:   string(services.StageUploadDB),
	Short: "Import the uploaded object into the tenant table",
	Long: `Creates the tenant schema and table if needed, truncates the table and runs
aws_s3.table_import_from_s3 for the uploaded object, all in one transaction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, services.StageUploadDB)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd, uploadS3Cmd, uploadDBCmd)
}
