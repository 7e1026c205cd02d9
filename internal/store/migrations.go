package store

const schema = `
CREATE TABLE IF NOT EXISTS brands (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    name             TEXT NOT NULL,
    domain           TEXT NOT NULL DEFAULT '',
    subdomain        TEXT NOT NULL DEFAULT '',
    auto_publish     BOOLEAN NOT NULL DEFAULT 0,
    visibility_score REAL NOT NULL DEFAULT 0,
    context          TEXT NOT NULL DEFAULT '{}',
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_brands_tenant ON brands(tenant_id);

CREATE TABLE IF NOT EXISTS queries (
    id                    TEXT PRIMARY KEY,
    brand_id              TEXT NOT NULL REFERENCES brands(id),
    text                  TEXT NOT NULL,
    type                  TEXT NOT NULL DEFAULT 'best_of',
    priority              INTEGER NOT NULL DEFAULT 50,
    auto_discovered       BOOLEAN NOT NULL DEFAULT 0,
    is_active             BOOLEAN NOT NULL DEFAULT 1,
    related_competitor_id TEXT NOT NULL DEFAULT '',
    current_status        TEXT NOT NULL DEFAULT 'pending',
    citation_streak       INTEGER NOT NULL DEFAULT 0,
    created_at            DATETIME NOT NULL,
    UNIQUE(brand_id, text)
);

CREATE INDEX IF NOT EXISTS idx_queries_brand ON queries(brand_id);

CREATE TABLE IF NOT EXISTS competitors (
    id              TEXT PRIMARY KEY,
    brand_id        TEXT NOT NULL REFERENCES brands(id),
    name            TEXT NOT NULL,
    domain          TEXT NOT NULL DEFAULT '',
    context         TEXT NOT NULL DEFAULT '{}',
    auto_discovered BOOLEAN NOT NULL DEFAULT 0,
    is_active       BOOLEAN NOT NULL DEFAULT 1,
    created_at      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_competitors_brand_name
    ON competitors(brand_id, name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS scan_results (
    id                    TEXT PRIMARY KEY,
    brand_id              TEXT NOT NULL REFERENCES brands(id),
    query_id              TEXT NOT NULL DEFAULT '',
    query_text            TEXT NOT NULL,
    query_type            TEXT NOT NULL DEFAULT 'best_of',
    scanned_at            DATETIME NOT NULL,
    brand_mentioned       BOOLEAN NOT NULL DEFAULT 0,
    brand_in_citations    BOOLEAN NOT NULL DEFAULT 0,
    is_first_citation     BOOLEAN NOT NULL DEFAULT 0,
    competitors_mentioned TEXT NOT NULL DEFAULT '[]',
    response_text         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scans_brand_time ON scan_results(brand_id, scanned_at);

CREATE TABLE IF NOT EXISTS memos (
    id               TEXT PRIMARY KEY,
    brand_id         TEXT NOT NULL REFERENCES brands(id),
    source_query_id  TEXT NOT NULL DEFAULT '',
    memo_type        TEXT NOT NULL,
    slug             TEXT NOT NULL,
    title            TEXT NOT NULL,
    content          TEXT NOT NULL,
    meta_description TEXT NOT NULL DEFAULT '',
    structured_data  TEXT NOT NULL DEFAULT '{}',
    sources          TEXT NOT NULL DEFAULT '[]',
    status           TEXT NOT NULL DEFAULT 'draft',
    published_at     DATETIME,
    version          INTEGER NOT NULL DEFAULT 1,
    last_verified_at DATETIME NOT NULL,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL,
    UNIQUE(brand_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_memos_brand_status ON memos(brand_id, status);

CREATE TABLE IF NOT EXISTS memo_versions (
    id            TEXT PRIMARY KEY,
    memo_id       TEXT NOT NULL REFERENCES memos(id),
    version       INTEGER NOT NULL,
    content       TEXT NOT NULL,
    change_reason TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memo_versions_memo ON memo_versions(memo_id);

CREATE TABLE IF NOT EXISTS alerts (
    id         TEXT PRIMARY KEY,
    brand_id   TEXT NOT NULL REFERENCES brands(id),
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL DEFAULT '',
    severity   TEXT NOT NULL DEFAULT 'info',
    data       TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_brand_time ON alerts(brand_id, created_at);

CREATE TABLE IF NOT EXISTS feed_events (
    id          TEXT PRIMARY KEY,
    brand_id    TEXT NOT NULL REFERENCES brands(id),
    type        TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    data        TEXT NOT NULL DEFAULT '{}',
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feed_events_brand_time ON feed_events(brand_id, created_at);

CREATE TABLE IF NOT EXISTS voice_quotes (
    id         TEXT PRIMARY KEY,
    brand_id   TEXT NOT NULL REFERENCES brands(id),
    author     TEXT NOT NULL DEFAULT '',
    role       TEXT NOT NULL DEFAULT '',
    text       TEXT NOT NULL,
    verified   BOOLEAN NOT NULL DEFAULT 0,
    is_active  BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voice_quotes_brand ON voice_quotes(brand_id);
`
