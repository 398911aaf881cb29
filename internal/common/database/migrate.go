// internal/common/database/migrate.go
package database

import (
	"context"
	"fmt"
)

// Schema statements are idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS job_listings (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		role TEXT NOT NULL,
		slug TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		employment_type TEXT NOT NULL DEFAULT 'full_time',
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		published_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		views BIGINT NOT NULL DEFAULT 0,
		applications BIGINT NOT NULL DEFAULT 0,
		tags TEXT[] NOT NULL DEFAULT '{}',
		qualifications TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		company JSONB NOT NULL DEFAULT '{}',
		location JSONB NOT NULL DEFAULT '{}',
		salary JSONB NOT NULL DEFAULT '{}',
		experience JSONB NOT NULL DEFAULT '{}',
		custom_sections JSONB NOT NULL DEFAULT '[]',
		media JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Sparse uniqueness: listings without a slug never collide.
	`CREATE UNIQUE INDEX IF NOT EXISTS job_listings_slug_key
		ON job_listings (slug) WHERE slug IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_job_listings_status ON job_listings (status)`,
	`CREATE INDEX IF NOT EXISTS idx_job_listings_published ON job_listings (is_published, status)`,
	`CREATE INDEX IF NOT EXISTS idx_job_listings_expires_at ON job_listings (expires_at)`,

	// job_listing_id is intentionally not a foreign key: listings may be
	// deleted while their applications are retained for review history.
	`CREATE TABLE IF NOT EXISTS applications (
		id UUID PRIMARY KEY,
		job_listing_id UUID NOT NULL,
		candidate_name TEXT NOT NULL,
		candidate_email TEXT NOT NULL,
		candidate_phone TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'submitted',
		responses JSONB NOT NULL DEFAULT '[]',
		form_snapshot JSONB NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		rating INTEGER,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT applications_candidate_email_job_listing_id_key
			UNIQUE (candidate_email, job_listing_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_applications_job_listing ON applications (job_listing_id)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_job_status ON applications (job_listing_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_candidate_email ON applications (candidate_email)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_submitted_at ON applications (submitted_at)`,
}

// Migrate bootstraps the schema on startup.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
