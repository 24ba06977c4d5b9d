package catalog

import (
	"fmt"
	"os"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
)

// ExportParquet writes the items of b to a Parquet file at path, stamping
// every row with the items version. It returns the number of rows written.
func ExportParquet(path string, b *Bundle) (int, error) {
	rows := make([]model.CatalogItemRow, len(b.Items))
	for i, it := range b.Items {
		rows[i] = normalize.ToItemRow(it, b.Versions.Items)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	writer := goparquet.NewGenericWriter[model.CatalogItemRow](f)
	if _, err := writer.Write(rows); err != nil {
		return 0, fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close writer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync output: %w", err)
	}
	return len(rows), nil
}
