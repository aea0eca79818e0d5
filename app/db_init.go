package app

import (
	"github.com/fabricml/fabricml/fabric"

	"os"
	"path/filepath"
)

// Initialize the database on startup with cleanup operations.
// If init is true, we also first initialize the schema and populate certain tables.
func InitDB(init bool) {
	fname := "fabricml.sqlite3"
	if Config.InstanceID != "" {
		fname = "fabricml-" + Config.InstanceID + ".sqlite3"
	}
	openDB(fname)

	if init {
		db.Exec(`CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v TEXT
		)`)
		db.Exec(`CREATE TABLE IF NOT EXISTS models (
			id INTEGER PRIMARY KEY ASC,
			name TEXT,
			-- 'zoo' or 'custom'
			type TEXT,
			-- network description file
			graph TEXT,
			-- weights file
			weights TEXT
		)`)
		db.Exec(`CREATE TABLE IF NOT EXISTS deployments (
			id INTEGER PRIMARY KEY ASC,
			name TEXT,
			model_id INTEGER REFERENCES models(id),
			platform TEXT,
			-- directory where stage outputs land
			workspace TEXT
		)`)
		db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY ASC,
			name TEXT,
			-- e.g. 'deploy'
			type TEXT,
			-- how to process the job output and render the job
			op TEXT,
			metadata TEXT,
			start_time TIMESTAMP,
			state TEXT DEFAULT '',
			done INTEGER DEFAULT 0,
			error TEXT DEFAULT ''
		)`)

		// add missing zoo models
		for _, name := range fabric.ZooModels {
			var count int
			db.QueryRow("SELECT COUNT(*) FROM models WHERE type = 'zoo' AND name = ?", name).Scan(&count)
			if count > 0 {
				continue
			}
			graph, weights := fabric.ZooModelPaths(name)
			db.Exec(
				"INSERT INTO models (name, type, graph, weights) VALUES (?, 'zoo', ?, ?)",
				name, graph, weights,
			)
		}
	}

	if err := os.MkdirAll(filepath.Join(Config.DataDir, "deployments"), 0755); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(filepath.Join(Config.DataDir, "models"), 0755); err != nil {
		panic(err)
	}

	// now run some database cleanup steps

	// mark jobs that are still running as error
	db.Exec("UPDATE jobs SET error = 'terminated', done = 1 WHERE done = 0")
}
