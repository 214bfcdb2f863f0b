package store

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	stage            TEXT NOT NULL DEFAULT 'active',
	arr              REAL NOT NULL DEFAULT 0,
	health_score     INTEGER,
	segment          TEXT NOT NULL DEFAULT '',
	renewal_date     TEXT,
	contracted_seats INTEGER NOT NULL DEFAULT 0,
	api_limit        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS usage_metrics (
	customer_id  TEXT NOT NULL,
	date         TEXT NOT NULL,
	active_users INTEGER NOT NULL DEFAULT 0,
	api_calls    INTEGER NOT NULL DEFAULT 0,
	login_count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (customer_id, date)
);

CREATE TABLE IF NOT EXISTS contracts (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active',
	start_date  TEXT NOT NULL,
	end_date    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_customer ON contracts (customer_id, status);

CREATE TABLE IF NOT EXISTS entitlements (
	contract_id   TEXT NOT NULL,
	position      INTEGER NOT NULL,
	type          TEXT NOT NULL,
	usage_current REAL NOT NULL DEFAULT 0,
	usage_limit   REAL NOT NULL DEFAULT 0,
	product_id    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contract_id, position)
);

CREATE TABLE IF NOT EXISTS products (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stakeholders (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	position    INTEGER NOT NULL DEFAULT 0,
	name        TEXT NOT NULL,
	role        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	sentiment   TEXT NOT NULL DEFAULT '',
	is_primary  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS meeting_analyses (
	id                  TEXT PRIMARY KEY,
	customer_id         TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	key_topics          TEXT NOT NULL DEFAULT '[]',
	expansion_signals   TEXT NOT NULL DEFAULT '[]',
	competitor_mentions TEXT NOT NULL DEFAULT '[]',
	analyzed_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meetings_customer ON meeting_analyses (customer_id, analyzed_at);

CREATE TABLE IF NOT EXISTS activities (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	occurred_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expansions (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	status      TEXT NOT NULL,
	amount      REAL NOT NULL DEFAULT 0,
	closed_at   TEXT NOT NULL DEFAULT ''
);
`
