package services

// SQL for session setup and the bulk import. Identifiers are interpolated
// with pgx.Identifier.Sanitize after validation; values are always bound.

const (
	queryCreateSchema  = `CREATE SCHEMA IF NOT EXISTS %s`
	querySetSearchPath = `SET search_path TO %s`

	// queryAdvisoryLock serializes runs for one tenant table until the
	// transaction ends.
	// Parameter $1: lock name (schema.table)
	queryAdvisoryLock = `SELECT pg_advisory_xact_lock(hashtext($1))`

	queryCreateTable = `
		CREATE TABLE IF NOT EXISTS %s (
			customer_id    INT PRIMARY KEY NOT NULL,
			gender         CHAR(6),
			age            SMALLINT,
			annual_income  SMALLINT,
			spending_score SMALLINT
		)
	`

	queryTruncateTable = `TRUNCATE TABLE %s RESTART IDENTITY`

	// queryImportFromS3 pulls the object into the table server-side.
	// Parameters: $1 table, $2 COPY options, $3 bucket, $4 key, $5 region
	queryImportFromS3 = `
		SELECT aws_s3.table_import_from_s3(
			$1::text, ''::text, $2::text, $3::text, $4::text, $5::text
		)
	`

	queryCountRows = `SELECT count(*) FROM %s`
)
