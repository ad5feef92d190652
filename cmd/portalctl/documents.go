package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"claims-portal/internal/config"
	"claims-portal/internal/storage"
)

func newDocumentsCmd() *cobra.Command {
	docs := &cobra.Command{
		Use:   "documents",
		Short: "Manage claim documents kept in S3",
	}
	docs.AddCommand(newDocumentsListCmd(), newDocumentsPurgeCmd())
	return docs
}

func openS3(cmd *cobra.Command) (*storage.S3Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Driver != "s3" {
		return nil, fmt.Errorf("storage driver is %q; documents are only listed for s3", cfg.Storage.Driver)
	}
	return storage.NewS3FromConfig(cmd.Context(), storage.S3Options{
		Bucket:     cfg.Storage.Bucket,
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Region:     cfg.Storage.Region,
		Endpoint:   cfg.Storage.Endpoint,
		Profile:    cfg.AWS.Profile,
		PresignTTL: cfg.PresignTTL(),
	})
}

func newDocumentsListCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openS3(cmd)
			if err != nil {
				return err
			}
			prefix := svc.OwnerPrefix(owner)
			objects, err := svc.ListObjects(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var total uint64
			for _, o := range objects {
				modified := ""
				if o.LastModified != nil {
					modified = humanize.Time(*o.LastModified)
				}
				fmt.Fprintf(out, "%-9s %-16s s3://%s/%s\n", humanize.Bytes(uint64(o.Size)), modified, svc.Bucket(), o.Key)
				total += uint64(o.Size)
			}
			fmt.Fprintf(out, "%d objects, %s\n", len(objects), humanize.Bytes(total))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only documents uploaded by this user id")
	return cmd
}

func newDocumentsPurgeCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "purge <user-id>",
		Short: "Delete every document uploaded by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return fmt.Errorf("user id is required")
			}
			if !confirm {
				return fmt.Errorf("refusing to delete without --yes")
			}
			svc, err := openS3(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			n, err := svc.DeletePrefix(cmd.Context(), svc.OwnerPrefix(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s objects in %s\n", humanize.Comma(int64(n)), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm deletion")
	return cmd
}
