package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mythos/internal/core"
)

// ErrNotFound is returned when a story does not exist.
var ErrNotFound = errors.New("not found")

// Store persists stories and the characters, plots and twists generated for them
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at dbPath
func NewStore(dbPath string) (*Store, error) {
	// Ensure data directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	storiesTable := `
	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT,
		genre TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`

	charactersTable := `
	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT,
		age TEXT,
		origin TEXT,
		motivation TEXT,
		description TEXT,
		backstory TEXT,
		traits TEXT,
		relationships TEXT,
		created_at DATETIME,
		FOREIGN KEY (story_id) REFERENCES stories (id) ON DELETE CASCADE
	);`

	plotsTable := `
	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL,
		title TEXT NOT NULL,
		structure_type TEXT,
		acts TEXT,
		branches TEXT,
		created_at DATETIME,
		FOREIGN KEY (story_id) REFERENCES stories (id) ON DELETE CASCADE
	);`

	twistsTable := `
	CREATE TABLE IF NOT EXISTS twists (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		impact TEXT,
		icon TEXT,
		created_at DATETIME,
		FOREIGN KEY (story_id) REFERENCES stories (id) ON DELETE CASCADE
	);`

	tables := []string{storiesTable, charactersTable, plotsTable, twistsTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateStory stores a new story and returns it with its generated ID
func (s *Store) CreateStory(ctx context.Context, title, content, genre string) (*core.Story, error) {
	now := time.Now().UTC()
	story := &core.Story{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Genre:     genre,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
	INSERT INTO stories (id, title, content, genre, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		story.ID, story.Title, story.Content, story.Genre, story.CreatedAt, story.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	return story, nil
}

// GetStory retrieves a story by ID
func (s *Store) GetStory(ctx context.Context, id string) (*core.Story, error) {
	query := `
	SELECT id, title, content, genre, created_at, updated_at
	FROM stories
	WHERE id = ?`

	var story core.Story
	var content, genre sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&story.ID,
		&story.Title,
		&content,
		&genre,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("story %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan story: %w", err)
	}

	story.Content = content.String
	story.Genre = genre.String
	return &story, nil
}

// ListStories returns all stories, most recently updated first
func (s *Store) ListStories(ctx context.Context) ([]core.Story, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, title, content, genre, created_at, updated_at
	FROM stories
	ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stories []core.Story
	for rows.Next() {
		var story core.Story
		var content, genre sql.NullString
		if err := rows.Scan(&story.ID, &story.Title, &content, &genre, &story.CreatedAt, &story.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		story.Content = content.String
		story.Genre = genre.String
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

// StoryContext loads the characters, plots and twists already attached to a story
func (s *Store) StoryContext(ctx context.Context, storyID string) (core.StoryContext, error) {
	var sc core.StoryContext

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, traits, motivation FROM characters WHERE story_id = ? ORDER BY created_at`, storyID)
	if err != nil {
		return sc, fmt.Errorf("failed to load characters: %w", err)
	}
	err = scanAll(rows, func() error {
		var c core.CharacterContext
		var description, traits, motivation sql.NullString
		if err := rows.Scan(&c.Name, &description, &traits, &motivation); err != nil {
			return err
		}
		c.Description, c.Traits, c.Motivation = description.String, traits.String, motivation.String
		sc.Characters = append(sc.Characters, c)
		return nil
	})
	if err != nil {
		return sc, fmt.Errorf("failed to scan characters: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT title, acts FROM plots WHERE story_id = ? ORDER BY created_at`, storyID)
	if err != nil {
		return sc, fmt.Errorf("failed to load plots: %w", err)
	}
	err = scanAll(rows, func() error {
		var p core.PlotContext
		var acts sql.NullString
		if err := rows.Scan(&p.Title, &acts); err != nil {
			return err
		}
		p.Acts = acts.String
		sc.Plots = append(sc.Plots, p)
		return nil
	})
	if err != nil {
		return sc, fmt.Errorf("failed to scan plots: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT title, description FROM twists WHERE story_id = ? ORDER BY created_at`, storyID)
	if err != nil {
		return sc, fmt.Errorf("failed to load twists: %w", err)
	}
	err = scanAll(rows, func() error {
		var t core.TwistContext
		var description sql.NullString
		if err := rows.Scan(&t.Title, &description); err != nil {
			return err
		}
		t.Description = description.String
		sc.Twists = append(sc.Twists, t)
		return nil
	})
	if err != nil {
		return sc, fmt.Errorf("failed to scan twists: %w", err)
	}

	return sc, nil
}

func scanAll(rows *sql.Rows, scan func() error) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveCharacter attaches a generated character to a story and returns its ID
func (s *Store) SaveCharacter(ctx context.Context, storyID string, c core.Character) (string, error) {
	id := uuid.NewString()
	query := `
	INSERT INTO characters
	(id, story_id, name, role, age, origin, motivation, description, backstory, traits, relationships, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := s.attach(ctx, storyID, query,
		id, storyID, c.Name, c.Role, c.Age, c.Origin, c.Motivation,
		c.Description, c.Backstory, c.Traits, c.Relationships, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save character: %w", err)
	}
	return id, nil
}

// SavePlot attaches a generated plot to a story and returns its ID
func (s *Store) SavePlot(ctx context.Context, storyID string, p core.Plot) (string, error) {
	id := uuid.NewString()
	query := `
	INSERT INTO plots (id, story_id, title, structure_type, acts, branches, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	err := s.attach(ctx, storyID, query,
		id, storyID, p.Title, p.StructureType, p.Acts, p.Branches, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	return id, nil
}

// SaveTwist attaches a generated plot twist to a story and returns its ID
func (s *Store) SaveTwist(ctx context.Context, storyID string, t core.PlotTwist) (string, error) {
	id := uuid.NewString()
	query := `
	INSERT INTO twists (id, story_id, title, description, category, impact, icon, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	err := s.attach(ctx, storyID, query,
		id, storyID, t.Title, t.Description, t.Category, t.Impact, t.Icon, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save twist: %w", err)
	}
	return id, nil
}

// attach runs an insert for a story's child row and bumps the story's
// updated_at in the same transaction
func (s *Store) attach(ctx context.Context, storyID, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE stories SET updated_at = ? WHERE id = ?`, time.Now().UTC(), storyID); err != nil {
		return fmt.Errorf("failed to update story timestamp: %w", err)
	}
	return tx.Commit()
}

// Stats represents store statistics
type Stats struct {
	StoryCount     int
	CharacterCount int
	PlotCount      int
	TwistCount     int
	Size           int64
	LastUpdated    time.Time
}

// GetStats returns statistics about the store
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		table  string
		target *int
	}{
		{"stories", &stats.StoryCount},
		{"characters", &stats.CharacterCount},
		{"plots", &stats.PlotCount},
		{"twists", &stats.TwistCount},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.target); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", strings.TrimSuffix(c.table, "s"), err)
		}
	}

	// Database file size
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.Size = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}
