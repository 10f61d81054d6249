package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dbailuk/arcgis-automation/internal/config"
	"github.com/dbailuk/arcgis-automation/internal/logger"
	"github.com/dbailuk/arcgis-automation/internal/portal"
	"github.com/dbailuk/arcgis-automation/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	publishItemID      string
	publishServiceName string
)

// publishCmd publishes configured shapefile items as feature services.
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish portal shapefiles as feature services",
	Long: `publish runs the publish-reconcile workflow for every configured
item: any same-named feature service owned by the current user is deleted
first and the deletion is confirmed by polling, then the item is published
and metadata, service settings and the sharing level are applied.

Items come from the publish.items list in the configuration, or a single
item can be given with --item-id and --service-name.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishItemID, "item-id", "", "portal item ID to publish (overrides configured items)")
	publishCmd.Flags().StringVar(&publishServiceName, "service-name", "", "service name for --item-id")
}

func runPublish(cmd *cobra.Command, args []string) error {
	client, err := connectPortal(cmd.Context())
	if err != nil {
		return err
	}

	requests, err := buildPublishRequests()
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return fmt.Errorf("nothing to publish: configure publish.items or pass --item-id")
	}

	opts := reconcile.Options{
		PollInterval:  config.Instance.Publish.PollInterval,
		DeleteTimeout: config.Instance.Publish.DeleteTimeout,
	}
	reconciler := reconcile.New(client, opts, logger.Logger)

	results := reconciler.RunAll(cmd.Context(), requests)

	published := 0
	for _, res := range results {
		switch res.Outcome {
		case reconcile.OutcomePublished:
			published++
			fmt.Printf("published: %s (%s)\n", res.Request.ServiceName, res.Service.URL)
		default:
			fmt.Printf("%s: %s: %v\n", strings.ToLower(string(res.Outcome)), res.Request.ServiceName, res.Err)
		}
	}

	logger.LogInfo("Publishing process completed", map[string]interface{}{
		"requested": len(results),
		"published": published,
	})
	// Per-request failures are reported in the results, not as a command
	// error; only a dead portal session fails the command itself.
	return nil
}

// buildPublishRequests resolves the request list from flags or config.
func buildPublishRequests() ([]reconcile.Request, error) {
	meta := reconcile.Metadata{
		Description: config.Instance.Publish.Metadata.Description,
		Tags:        config.Instance.Publish.Metadata.Tags,
		Categories:  config.Instance.Publish.Metadata.Categories,
	}
	shareLevel := portal.ParseShareLevel(config.Instance.Publish.DefaultShareLevel)

	if publishItemID != "" {
		if publishServiceName == "" {
			return nil, fmt.Errorf("--service-name is required with --item-id")
		}
		return []reconcile.Request{{
			ItemID:      publishItemID,
			ServiceName: publishServiceName,
			Metadata:    meta,
			ShareLevel:  shareLevel,
		}}, nil
	}

	var requests []reconcile.Request
	for _, item := range config.Instance.Publish.Items {
		name := item.ServiceName
		if name == "" {
			// Fall back to the item ID with any file extension stripped,
			// mirroring the original default of the source title.
			name = strings.TrimSuffix(item.ItemID, filepath.Ext(item.ItemID))
		}
		requests = append(requests, reconcile.Request{
			ItemID:      item.ItemID,
			ServiceName: name,
			Metadata:    meta,
			ShareLevel:  shareLevel,
		})
	}
	return requests, nil
}
