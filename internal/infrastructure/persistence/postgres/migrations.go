// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: IDENTITY
// Users, the four fixed houses and the sorting quiz.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create identity tables
-- Version: 001

CREATE TABLE IF NOT EXISTS houses (
    id BIGINT PRIMARY KEY,
    name VARCHAR(50) NOT NULL,
    archetype VARCHAR(20) NOT NULL UNIQUE,
    description TEXT,
    color_primary VARCHAR(10),
    color_secondary VARCHAR(10),
    icon VARCHAR(50),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_archetype CHECK (archetype IN ('achiever', 'explorer', 'socializer', 'killer'))
);

INSERT INTO houses (id, name, archetype, description, color_primary, color_secondary, icon) VALUES
    (1, 'Achiever', 'achiever', 'Masters of completion and consistency', '#FFD700', '#1E3A5F', 'trophy'),
    (2, 'Explorer', 'explorer', 'Seekers of variety and discovery', '#20B2AA', '#1E3A5F', 'compass'),
    (3, 'Socializer', 'socializer', 'Champions of community and cooperation', '#DC143C', '#FFFFFF', 'users'),
    (4, 'Killer', 'killer', 'Hunters of rarity and competition', '#000000', '#39FF14', 'sword')
ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    steam_id VARCHAR(17) NOT NULL UNIQUE,
    username VARCHAR(100),
    avatar_url TEXT,
    profile_url TEXT,
    house_id BIGINT REFERENCES houses(id),
    general_points INTEGER NOT NULL DEFAULT 0,
    start_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_general_points CHECK (general_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_users_steam_id ON users(steam_id);
CREATE INDEX IF NOT EXISTS idx_users_house_id ON users(house_id) WHERE house_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_users_general_points ON users(general_points DESC);

CREATE TABLE IF NOT EXISTS quiz_questions (
    id BIGINT PRIMARY KEY,
    question TEXT NOT NULL,
    options JSONB NOT NULL,
    order_index INTEGER NOT NULL DEFAULT 0
);

INSERT INTO quiz_questions (id, question, options, order_index) VALUES
    (1, 'When starting a new game, what is your first instinct?', '[{"text":"Check achievement list and plan my route","house":"achiever"},{"text":"Explore every corner before progressing","house":"explorer"},{"text":"Find friends to play with","house":"socializer"},{"text":"Rush to beat my friends times","house":"killer"}]', 1),
    (2, 'A hidden achievement is revealed. You:', '[{"text":"Add it to my checklist immediately","house":"achiever"},{"text":"Love the mystery, will discover naturally","house":"explorer"},{"text":"Ask community for hints","house":"socializer"},{"text":"Race to get it before anyone else","house":"killer"}]', 2),
    (3, 'Your ideal gaming session is:', '[{"text":"Methodically crossing off achievements","house":"achiever"},{"text":"Trying a completely new genre","house":"explorer"},{"text":"Co-op night with friends","house":"socializer"},{"text":"Competitive ranked matches","house":"killer"}]', 3),
    (4, 'You see a game with 0.1% completion rate. You think:', '[{"text":"Challenge accepted, adding to backlog","house":"achiever"},{"text":"Interesting, what makes it so hard?","house":"explorer"},{"text":"Wonder if there is a group tackling it","house":"socializer"},{"text":"Perfect flex when I complete it","house":"killer"}]', 4),
    (5, 'Your Steam profile showcases:', '[{"text":"Perfect games counter","house":"achiever"},{"text":"Diverse game collection","house":"explorer"},{"text":"Friends list and groups","house":"socializer"},{"text":"Rare achievement showcase","house":"killer"}]', 5),
    (6, 'A game requires 200 hours for 100%. You:', '[{"text":"Plan it out, worth the completion","house":"achiever"},{"text":"Only if the journey is interesting","house":"explorer"},{"text":"Fun if playing with others","house":"socializer"},{"text":"Speed-run strategies exist?","house":"killer"}]', 6),
    (7, 'Your backlog has 100+ games. Priority goes to:', '[{"text":"Games closest to 100%","house":"achiever"},{"text":"Games I have not tried yet","house":"explorer"},{"text":"Games friends are playing","house":"socializer"},{"text":"Games with rare achievements","house":"killer"}]', 7),
    (8, 'Online achievements are:', '[{"text":"Annoying but necessary to complete","house":"achiever"},{"text":"Opportunity to meet new strategies","house":"explorer"},{"text":"Best part - playing with people!","house":"socializer"},{"text":"Where I prove my skill","house":"killer"}]', 8),
    (9, 'Your dream feature in an achievement tracker:', '[{"text":"Detailed completion statistics","house":"achiever"},{"text":"Discovery recommendations","house":"explorer"},{"text":"Friend activity feed","house":"socializer"},{"text":"Competitive leaderboards","house":"killer"}]', 9),
    (10, 'When you 100% a game, you feel:', '[{"text":"Satisfied - another one complete","house":"achiever"},{"text":"Ready for the next adventure","house":"explorer"},{"text":"Excited to share with friends","house":"socializer"},{"text":"Victorious - I conquered it","house":"killer"}]', 10)
ON CONFLICT (id) DO NOTHING;

CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_users_updated_at ON users;
CREATE TRIGGER update_users_updated_at
    BEFORE UPDATE ON users
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_users_updated_at ON users;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS quiz_questions;
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS houses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS
// Per-game progress rows and the unlock history the metric resolver reads.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create progress tables
-- Version: 002

CREATE TABLE IF NOT EXISTS user_games (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    app_id BIGINT NOT NULL,
    playtime_forever INTEGER NOT NULL DEFAULT 0,
    achievements_unlocked INTEGER NOT NULL DEFAULT 0,
    achievements_total INTEGER NOT NULL DEFAULT 0,
    completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    first_achievement_at TIMESTAMP WITH TIME ZONE,
    last_achievement_at TIMESTAMP WITH TIME ZONE,
    completed_at TIMESTAMP WITH TIME ZONE,
    synced_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, app_id),
    CONSTRAINT valid_completion CHECK (completion_percentage >= 0 AND completion_percentage <= 100)
);

CREATE INDEX IF NOT EXISTS idx_user_games_user ON user_games(user_id);
CREATE INDEX IF NOT EXISTS idx_user_games_completed ON user_games(user_id) WHERE completion_percentage = 100;

CREATE TABLE IF NOT EXISTS user_achievements (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    app_id BIGINT NOT NULL,
    api_name VARCHAR(255) NOT NULL,
    unlocked BOOLEAN NOT NULL DEFAULT FALSE,
    unlock_time TIMESTAMP WITH TIME ZONE,
    synced_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, app_id, api_name)
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_game ON user_achievements(user_id, app_id);
CREATE INDEX IF NOT EXISTS idx_user_achievements_unlock_time ON user_achievements(user_id, unlock_time DESC)
    WHERE unlocked AND unlock_time IS NOT NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS user_games;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: MEDALS AND SEASONS
// The medal catalog, the award ledger and both season point ledgers.
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create medal and season tables
-- Version: 003

CREATE TABLE IF NOT EXISTS seasons (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    start_date TIMESTAMP WITH TIME ZONE NOT NULL,
    end_date TIMESTAMP WITH TIME ZONE NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_season_window CHECK (end_date > start_date)
);

-- At most one active season.
CREATE UNIQUE INDEX IF NOT EXISTS idx_seasons_single_active ON seasons(is_active) WHERE is_active;

INSERT INTO seasons (name, start_date, end_date, is_active)
SELECT 'Season 1 - The Beginning', NOW(), NOW() + INTERVAL '3 months', TRUE
WHERE NOT EXISTS (SELECT 1 FROM seasons);

CREATE TABLE IF NOT EXISTS medal_definitions (
    id BIGSERIAL PRIMARY KEY,
    medal_key VARCHAR(50) NOT NULL UNIQUE,
    name VARCHAR(100) NOT NULL,
    description TEXT,
    icon VARCHAR(50),
    tier VARCHAR(10) NOT NULL DEFAULT 'base',
    points INTEGER NOT NULL DEFAULT 100,
    house_bonus VARCHAR(20),
    conditions JSONB,
    is_seasonal BOOLEAN NOT NULL DEFAULT FALSE,
    season_id BIGINT REFERENCES seasons(id),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_tier CHECK (tier IN ('base', 'silver', 'gold')),
    CONSTRAINT valid_points CHECK (points >= 0)
);

INSERT INTO medal_definitions (medal_key, name, description, icon, tier, points, conditions) VALUES
    ('graduation', 'Graduation', 'Complete 100% of achievements in a game', 'graduation_cap', 'base', 100,
     '{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100}]}'),
    ('rare_hunter', 'Rare Hunter', 'Complete a game with average rarity below 10%', 'diamond', 'gold', 500,
     '{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100},{"field":"average_rarity","operator":"<","value":10}]}'),
    ('speed_demon', 'Speed Demon', 'Complete 100% within 24 hours of first achievement', 'lightning', 'gold', 400,
     '{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100},{"field":"completion_hours","operator":"<=","value":24}]}'),
    ('marathon', 'Marathon', 'Complete 100% over 30+ different days', 'calendar', 'silver', 300,
     '{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100},{"field":"days_played","operator":">=","value":30}]}'),
    ('backlog_slayer', 'Backlog Slayer', 'Complete a game untouched for 6+ months', 'skull', 'silver', 200,
     '{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100},{"field":"months_dormant","operator":">=","value":6}]}')
ON CONFLICT (medal_key) DO NOTHING;

CREATE TABLE IF NOT EXISTS user_medals (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    medal_id BIGINT NOT NULL REFERENCES medal_definitions(id) ON DELETE CASCADE,
    app_id BIGINT NOT NULL,
    game_name VARCHAR(255),
    points_earned INTEGER NOT NULL DEFAULT 0,
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- At most one award per (user, medal, game); the award path relies on
    -- this constraint via INSERT ... ON CONFLICT DO NOTHING.
    UNIQUE(user_id, medal_id, app_id)
);

CREATE INDEX IF NOT EXISTS idx_user_medals_user ON user_medals(user_id, earned_at DESC);

CREATE TABLE IF NOT EXISTS season_points (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    season_id BIGINT NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
    points INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, season_id)
);

CREATE INDEX IF NOT EXISTS idx_season_points_board ON season_points(season_id, points DESC);

CREATE TABLE IF NOT EXISTS house_season_standings (
    id BIGSERIAL PRIMARY KEY,
    house_id BIGINT NOT NULL REFERENCES houses(id) ON DELETE CASCADE,
    season_id BIGINT NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
    total_points INTEGER NOT NULL DEFAULT 0,
    rank INTEGER,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(house_id, season_id)
);
`

const migration003Down = `
DROP TABLE IF EXISTS house_season_standings;
DROP TABLE IF EXISTS season_points;
DROP TABLE IF EXISTS user_medals;
DROP TABLE IF EXISTS medal_definitions;
DROP TABLE IF EXISTS seasons;
`
