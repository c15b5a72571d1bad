package catalog

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// Имена артефактов в кэш-бакете.
const (
	CleanedCSVName = "longdan_inventory_clean.csv"
	SummaryName    = "longdan_inventory_summary.json"
	ImageIndexName = "longdan_image_index.json"
)

// ArtifactStore — часть объектного хранилища, нужная для выгрузки артефактов.
type ArtifactStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// ArtifactPaths — локальные пути трех артефактов прогона.
type ArtifactPaths struct {
	CleanedCSV string
	Summary    string
	ImageIndex string
}

// ArtifactKey — ключ артефакта под префиксом.
func ArtifactKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ExportArtifacts выгружает артефакты в кэш-бакет, создав его при необходимости.
// Существующие объекты перезаписываются.
func ExportArtifacts(ctx context.Context, store ArtifactStore, bucket, prefix string, paths ArtifactPaths) error {
	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	uploads := []struct {
		local       string
		name        string
		contentType string
	}{
		{paths.CleanedCSV, CleanedCSVName, "text/csv"},
		{paths.Summary, SummaryName, "application/json"},
		{paths.ImageIndex, ImageIndexName, "application/json"},
	}

	for _, u := range uploads {
		data, err := os.ReadFile(u.local)
		if err != nil {
			return fmt.Errorf("read artifact: %w", err)
		}
		key := ArtifactKey(prefix, u.name)
		if err := store.UploadFile(ctx, bucket, key, data, u.contentType); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		utils.Info("Artifact uploaded", "bucket", bucket, "key", key, "bytes", len(data))
	}
	return nil
}
