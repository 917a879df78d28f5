package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	plan_type   TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_date  DATETIME NOT NULL,
	end_date    DATETIME NOT NULL,
	created_at  DATETIME NOT NULL,
	is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	plan_id       TEXT NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	target_date   DATETIME NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	unit          TEXT NOT NULL DEFAULT '',
	target_value  REAL NOT NULL DEFAULT 0,
	current_value REAL NOT NULL DEFAULT 0,
	memo          TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS progress_logs (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	date       DATETIME NOT NULL,
	status     TEXT NOT NULL,
	value      REAL,
	note       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_user_active ON plans(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_tasks_plan_id ON tasks(plan_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_progress_logs_task_id ON progress_logs(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);
CREATE INDEX IF NOT EXISTS idx_progress_logs_user_date ON progress_logs(user_id, date);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
