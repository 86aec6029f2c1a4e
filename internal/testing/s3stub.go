package testing

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// s3ImportStub installs a stand-in for the RDS aws_s3 extension. Object
// bodies are read from aws_s3.fixture_object instead of a bucket; every
// non-empty line is split on commas and inserted with empty fields as NULL.
const s3ImportStub = `
CREATE SCHEMA IF NOT EXISTS aws_s3;

CREATE TABLE IF NOT EXISTS aws_s3.fixture_object (
	obj_bucket text NOT NULL,
	obj_key    text NOT NULL,
	body       text NOT NULL,
	PRIMARY KEY (obj_bucket, obj_key)
);

CREATE OR REPLACE FUNCTION aws_s3.table_import_from_s3(
	table_name  text,
	column_list text,
	options     text,
	bucket      text,
	file_path   text,
	region      text
) RETURNS text
LANGUAGE plpgsql AS $fn$
DECLARE
	content  text;
	row_line text;
	imported bigint := 0;
BEGIN
	SELECT o.body INTO content
	FROM aws_s3.fixture_object o
	WHERE o.obj_bucket = $4 AND o.obj_key = $5;

	IF NOT FOUND THEN
		RAISE EXCEPTION 'HTTP 404. Requested file does not exist.';
	END IF;

	FOREACH row_line IN ARRAY regexp_split_to_array(content, E'\n') LOOP
		CONTINUE WHEN row_line = '';
		EXECUTE format('INSERT INTO %s VALUES (%s)', $1, (
			SELECT string_agg(quote_nullable(NULLIF(f.val, '')), ',' ORDER BY f.pos)
			FROM unnest(string_to_array(row_line, ',')) WITH ORDINALITY AS f(val, pos)
		));
		imported := imported + 1;
	END LOOP;

	RETURN format('%s rows imported into relation "%s" from file %s of %s bytes',
		imported, $1, $5, octet_length(content));
END
$fn$;
`

// InstallS3ImportStub creates the stand-in aws_s3.table_import_from_s3 in the
// database behind pool.
func InstallS3ImportStub(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), s3ImportStub); err != nil {
		t.Fatalf("Failed to install aws_s3 stub: %v", err)
	}
}

// PutFixtureObject stores body as the object bucket/key for the stub.
func PutFixtureObject(t *testing.T, pool *pgxpool.Pool, bucket, key, body string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO aws_s3.fixture_object (obj_bucket, obj_key, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (obj_bucket, obj_key) DO UPDATE SET body = EXCLUDED.body
	`, bucket, key, body)
	if err != nil {
		t.Fatalf("Failed to store fixture object %s/%s: %v", bucket, key, err)
	}
}

// DeleteFixtureObject removes bucket/key so the next import of it fails.
func DeleteFixtureObject(t *testing.T, pool *pgxpool.Pool, bucket, key string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`DELETE FROM aws_s3.fixture_object WHERE obj_bucket = $1 AND obj_key = $2`, bucket, key)
	if err != nil {
		t.Fatalf("Failed to delete fixture object %s/%s: %v", bucket, key, err)
	}
}
