package store

const SystemSettingSchemaVersionName = "schema_version"

type SystemSetting struct {
	Name  string
	Value string
}
