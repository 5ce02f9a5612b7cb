package store

const Schema = `
CREATE TABLE IF NOT EXISTS sources (
	name TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	requires_capability TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 100,
	timeout_sec INTEGER NOT NULL DEFAULT 15,
	rate_limit REAL NOT NULL DEFAULT 0,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	use_proxy BOOLEAN NOT NULL DEFAULT 0,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Append-only: rows are never updated
CREATE TABLE IF NOT EXISTS download_attempts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	doi TEXT NOT NULL,
	source_name TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	failure_category TEXT NOT NULL DEFAULT '',
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	file_size_bytes INTEGER NOT NULL DEFAULT 0,
	pdf_url TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_project ON download_attempts(project_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_attempts_doi ON download_attempts(doi);
CREATE INDEX IF NOT EXISTS idx_attempts_source ON download_attempts(source_name, failure_category);

CREATE TABLE IF NOT EXISTS source_performance (
	source_name TEXT PRIMARY KEY,
	total_attempts INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	avg_response_time_ms REAL NOT NULL DEFAULT 0,
	success_rate REAL NOT NULL DEFAULT 0,
	last_success_at DATETIME,
	last_failure_at DATETIME
);

CREATE TABLE IF NOT EXISTS publisher_patterns (
	doi_prefix TEXT NOT NULL,
	publisher_name TEXT NOT NULL DEFAULT '',
	successful_source TEXT NOT NULL,
	url_pattern TEXT NOT NULL DEFAULT '',
	success_count INTEGER NOT NULL DEFAULT 0,
	last_success_at DATETIME NOT NULL,
	PRIMARY KEY (doi_prefix, successful_source)
);

CREATE TABLE IF NOT EXISTS retry_queue (
	project_id TEXT NOT NULL,
	doi TEXT NOT NULL,
	failure_category TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	next_retry_at DATETIME NOT NULL,
	last_attempted_at DATETIME NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project_id, doi)
);

CREATE INDEX IF NOT EXISTS idx_retry_next ON retry_queue(next_retry_at);

CREATE TABLE IF NOT EXISTS batch_progress (
	project_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	current INTEGER NOT NULL DEFAULT 0,
	current_doi TEXT NOT NULL DEFAULT '',
	current_source TEXT NOT NULL DEFAULT '',
	downloaded TEXT NOT NULL DEFAULT '[]',   -- JSON array
	needs_upload TEXT NOT NULL DEFAULT '[]', -- JSON array
	retrying TEXT NOT NULL DEFAULT '[]',     -- JSON array
	errors TEXT NOT NULL DEFAULT '[]',       -- JSON array
	project_dir TEXT NOT NULL DEFAULT '',
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	dois TEXT NOT NULL DEFAULT '[]', -- JSON array, ordered
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);
`
