package sql

import (
	"embed"
)

// Migrations holds the schema DDL, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/select_active_items.sql
var SelectActiveItems string

//go:embed queries/select_active_rules.sql
var SelectActiveRules string

//go:embed queries/select_active_version.sql
var SelectActiveVersion string

//go:embed queries/register_version.sql
var RegisterVersion string

//go:embed queries/lookup_version.sql
var LookupVersion string

//go:embed queries/update_version_status.sql
var UpdateVersionStatus string

//go:embed queries/insert_rule.sql
var InsertRule string

//go:embed queries/deactivate_older_versions.sql
var DeactivateOlderVersions string

//go:embed queries/activate_version.sql
var ActivateVersion string

//go:embed queries/delete_inactive_versions.sql
var DeleteInactiveVersions string

//go:embed queries/delete_version_items.sql
var DeleteVersionItems string

//go:embed queries/delete_version_rules.sql
var DeleteVersionRules string
