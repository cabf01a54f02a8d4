package store

const schema = `
CREATE TABLE IF NOT EXISTS route_lookups (
    address     TEXT NOT NULL,
    ref         TEXT NOT NULL,
    mode        TEXT NOT NULL,
    found       BOOLEAN NOT NULL DEFAULT 0,
    distance_km REAL NOT NULL DEFAULT 0,
    minutes     REAL NOT NULL DEFAULT 0,
    fetched_at  DATETIME NOT NULL,
    PRIMARY KEY (address, ref, mode)
);

CREATE INDEX IF NOT EXISTS idx_route_lookups_fetched ON route_lookups(fetched_at);

CREATE TABLE IF NOT EXISTS geocode_lookups (
    query      TEXT PRIMARY KEY,
    found      BOOLEAN NOT NULL DEFAULT 0,
    lat        REAL NOT NULL DEFAULT 0,
    lng        REAL NOT NULL DEFAULT 0,
    fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geocode_lookups_fetched ON geocode_lookups(fetched_at);
`
