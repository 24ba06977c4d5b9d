package model

// CatalogItemRow mirrors the Parquet schema for a catalog item file.
// Multi-clause fields hold one clause per line.
type CatalogItemRow struct {
	Code         string   `parquet:"code"`
	Title        string   `parquet:"title"`
	Description  *string  `parquet:"description,optional"`
	Eligibility  *string  `parquet:"eligibility,optional"`
	Restrictions *string  `parquet:"restrictions,optional"`
	Category     *string  `parquet:"category,optional"`
	ScheduleFee  *float64 `parquet:"schedule_fee,optional"`
	Version      *string  `parquet:"catalog_version,optional"`
}

// ItemColumns returns the ordered column names for COPY into catalog.items.
func ItemColumns() []string {
	return []string{
		"version_id",
		"position",
		"code",
		"title",
		"description",
		"eligibility",
		"restrictions",
		"category",
		"schedule_fee_cents",
	}
}
