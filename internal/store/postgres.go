package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/duskvault/backupd/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresStore persists sessions and logs to Postgres via database/sql
// and github.com/lib/pq, with schema managed by golang-migrate.
type PostgresStore struct {
	db *sql.DB

	mu        sync.Mutex
	currentID uuid.UUID // session id the next AppendLog call scopes to
}

// NewPostgresStore opens a connection to databaseURL and runs any pending
// migrations before returning.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres connection")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	srcDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, "load embedded migrations")
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "attach migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return errors.Wrap(err, "construct migrator")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

func (p *PostgresStore) SaveSession(s model.Session) error {
	dirsJSON, err := json.Marshal(s.Directories)
	if err != nil {
		return errors.Wrap(err, "marshal directories")
	}
	_, err = p.db.Exec(`
		INSERT INTO sessions (id, state, total_size, completed_size, start_time, dry_run, directories)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			total_size = EXCLUDED.total_size,
			completed_size = EXCLUDED.completed_size,
			dry_run = EXCLUDED.dry_run,
			directories = EXCLUDED.directories
	`, s.ID, s.State.String(), s.TotalSize, s.CompletedSize, s.StartTime, s.DryRun, dirsJSON)
	if err != nil {
		return errors.Wrap(model.ErrStorageWrite, err.Error())
	}
	p.mu.Lock()
	p.currentID = s.ID
	p.mu.Unlock()
	return nil
}

func (p *PostgresStore) LoadLatestSession() (*model.Session, error) {
	row := p.db.QueryRow(`
		SELECT id, state, total_size, completed_size, start_time, dry_run, directories
		FROM sessions ORDER BY created_at DESC LIMIT 1
	`)

	var (
		sv        model.Session
		stateStr  string
		dirsJSON  []byte
	)
	if err := row.Scan(&sv.ID, &stateStr, &sv.TotalSize, &sv.CompletedSize, &sv.StartTime, &sv.DryRun, &dirsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load latest session")
	}
	if err := sv.State.Parse(stateStr); err != nil {
		return nil, errors.Wrap(err, "parse session state")
	}
	if err := json.Unmarshal(dirsJSON, &sv.Directories); err != nil {
		return nil, errors.Wrap(err, "unmarshal directories")
	}

	logs, err := p.loadLogs(sv.ID)
	if err != nil {
		return nil, err
	}
	sv.Errors = logs

	p.mu.Lock()
	p.currentID = sv.ID
	p.mu.Unlock()
	return &sv, nil
}

func (p *PostgresStore) loadLogs(sessionID uuid.UUID) ([]model.LogEntry, error) {
	rows, err := p.db.Query(`SELECT timestamp, level, message, directory FROM logs WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "query logs")
	}
	defer rows.Close()

	var out []model.LogEntry
	for rows.Next() {
		var (
			e   model.LogEntry
			dir sql.NullString
		)
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Message, &dir); err != nil {
			return nil, errors.Wrap(err, "scan log row")
		}
		e.Directory = dir.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendLog scopes the entry to whichever session was most recently
// passed to SaveSession or returned by LoadLatestSession.
func (p *PostgresStore) AppendLog(entry model.LogEntry) error {
	p.mu.Lock()
	sessionID := p.currentID
	p.mu.Unlock()
	if sessionID == uuid.Nil {
		return errors.New("no active session to scope AppendLog to")
	}
	_, err := p.db.Exec(`INSERT INTO logs (session_id, timestamp, level, message, directory) VALUES ($1, $2, $3, $4, $5)`,
		sessionID, entry.Timestamp, entry.Level, entry.Message, nullableString(entry.Directory))
	if err != nil {
		return errors.Wrap(model.ErrStorageWrite, err.Error())
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
