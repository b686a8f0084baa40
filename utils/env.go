package utils

var (
	HTTP_PORT          = GetEnvOrDefault("HTTP_PORT", "8080")
	SHUTDOWN_SLEEP_SEC = GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)

	// ROW_FLATTENER_LEGACY_NESTED_KEYS keys nested struct children under the parent field name
	ROW_FLATTENER_LEGACY_NESTED_KEYS = GetEnvOrDefault("ROW_FLATTENER_LEGACY_NESTED_KEYS", "0") == "1"

	PARQUET_PARALLELISM  = GetEnvOrDefaultInt("PARQUET_PARALLELISM", 4)
	MAX_ROWS_PER_REQUEST = GetEnvOrDefaultInt("MAX_ROWS_PER_REQUEST", 10_000)
)
