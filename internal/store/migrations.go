package store

const schema = `
-- Scalar telemetry samples, append-only
CREATE TABLE IF NOT EXISTS samples (
    ts      INTEGER NOT NULL,
    family  TEXT    NOT NULL,
    entity  TEXT    NOT NULL,
    value   REAL    NOT NULL,
    PRIMARY KEY (family, entity, ts)
) WITHOUT ROWID;

-- Per-disk SMART readings, append-only
CREATE TABLE IF NOT EXISTS smart_samples (
    ts              INTEGER NOT NULL,
    disk            TEXT    NOT NULL,
    temperature     INTEGER NOT NULL,
    reallocated     INTEGER NOT NULL,
    pending         INTEGER NOT NULL,
    power_on_hours  INTEGER NOT NULL,
    health          TEXT    NOT NULL,
    PRIMARY KEY (disk, ts)
) WITHOUT ROWID;

-- Disk failure prediction audit trail, append-only
CREATE TABLE IF NOT EXISTS disk_predictions (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    ts                  INTEGER NOT NULL,
    disk                TEXT    NOT NULL,
    failure_probability REAL    NOT NULL,
    days_until_failure  INTEGER,
    confidence          REAL    NOT NULL,
    factors_json        TEXT    NOT NULL,
    recommended_action  TEXT    NOT NULL
);

-- Alert log (30d retention)
CREATE TABLE IF NOT EXISTS alert_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ts          INTEGER NOT NULL,
    alert_type  TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    message     TEXT    NOT NULL,
    severity    TEXT    NOT NULL
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);
CREATE INDEX IF NOT EXISTS idx_smart_ts ON smart_samples(ts);
CREATE INDEX IF NOT EXISTS idx_predictions_disk ON disk_predictions(disk, ts);
CREATE INDEX IF NOT EXISTS idx_alert_ts ON alert_log(ts);
`
