package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_stats",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_achievements",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_reference_tables",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// Migration 001: user stats and the per-user idempotency ledger.
const migration001Up = `
CREATE TABLE IF NOT EXISTS user_stats (
    user_id               TEXT PRIMARY KEY,
    total_xp              BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
    level                 INTEGER NOT NULL DEFAULT 1,
    lessons_completed     INTEGER NOT NULL DEFAULT 0 CHECK (lessons_completed >= 0),
    quizzes_completed     INTEGER NOT NULL DEFAULT 0 CHECK (quizzes_completed >= 0),
    songs_completed       INTEGER NOT NULL DEFAULT 0 CHECK (songs_completed >= 0),
    daily_goals_completed INTEGER NOT NULL DEFAULT 0 CHECK (daily_goals_completed >= 0),
    current_streak        INTEGER NOT NULL DEFAULT 0,
    longest_streak        INTEGER NOT NULL DEFAULT 0,
    last_active_date      TIMESTAMPTZ,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Leaderboard read path: (total_xp desc, user_id asc)
CREATE INDEX IF NOT EXISTS idx_user_stats_leaderboard
    ON user_stats (total_xp DESC, user_id ASC);

-- Consumed idempotency keys, one row per logical completion event.
CREATE TABLE IF NOT EXISTS processed_events (
    user_id      TEXT NOT NULL,
    event_key    TEXT NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, event_key)
);
`

const migration001Down = `
DROP TABLE IF EXISTS processed_events;
DROP TABLE IF EXISTS user_stats;
`

// Migration 002: achievement definitions, their triggers, and the award
// ledger. The ledger's primary key is the uniqueness constraint that makes
// TryAward safe under arbitrary concurrency.
const migration002Up = `
CREATE TABLE IF NOT EXISTS achievements (
    id                UUID PRIMARY KEY,
    title             TEXT NOT NULL,
    icon              TEXT NOT NULL DEFAULT '',
    xp_reward         INTEGER NOT NULL DEFAULT 0 CHECK (xp_reward >= 0),
    requirement_type  TEXT NOT NULL DEFAULT 'xp',
    requirement_value INTEGER NOT NULL DEFAULT 0,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Exactly one trigger per achievement; replacing a trigger is a
-- delete-then-insert, so the achievement_id is the primary key.
CREATE TABLE IF NOT EXISTS achievement_triggers (
    achievement_id UUID PRIMARY KEY REFERENCES achievements (id) ON DELETE CASCADE,
    trigger_type   TEXT NOT NULL CHECK (trigger_type IN ('global', 'lesson', 'quiz', 'material')),
    subject_id     TEXT,
    CHECK ((trigger_type = 'global') = (subject_id IS NULL))
);

CREATE TABLE IF NOT EXISTS award_records (
    user_id        TEXT NOT NULL,
    achievement_id UUID NOT NULL REFERENCES achievements (id) ON DELETE CASCADE,
    awarded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, achievement_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS award_records;
DROP TABLE IF EXISTS achievement_triggers;
DROP TABLE IF EXISTS achievements;
`

// Migration 003: level thresholds and reward rules, with a default seed
// so a fresh deployment hands out sane levels before an administrator
// tunes the tables.
const migration003Up = `
CREATE TABLE IF NOT EXISTS level_thresholds (
    level  INTEGER PRIMARY KEY,
    min_xp BIGINT NOT NULL UNIQUE CHECK (min_xp >= 0),
    max_xp BIGINT CHECK (max_xp IS NULL OR max_xp >= min_xp),
    label  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reward_rules (
    id          SERIAL PRIMARY KEY,
    action_type TEXT NOT NULL,
    xp_value    INTEGER NOT NULL CHECK (xp_value >= 0),
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- At most one active rule per action type.
CREATE UNIQUE INDEX IF NOT EXISTS idx_reward_rules_active
    ON reward_rules (action_type) WHERE is_active;

INSERT INTO level_thresholds (level, min_xp, max_xp, label) VALUES
    (1, 0, 99, 'Beginner'),
    (2, 100, 299, 'Student'),
    (3, 300, 699, 'Performer'),
    (4, 700, 1499, 'Soloist'),
    (5, 1500, NULL, 'Virtuoso')
ON CONFLICT (level) DO NOTHING;

INSERT INTO reward_rules (action_type, xp_value, is_active) VALUES
    ('lesson_completed', 50, TRUE),
    ('quiz_completed', 20, TRUE),
    ('song_completed', 30, TRUE),
    ('daily_goal_completed', 15, TRUE),
    ('daily_login', 5, TRUE)
ON CONFLICT DO NOTHING;
`

const migration003Down = `
DROP TABLE IF EXISTS reward_rules;
DROP TABLE IF EXISTS level_thresholds;
`
