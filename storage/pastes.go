package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Paste represents a single paste attempt with its outcome
type Paste struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
	CharacterCount int       `json:"characterCount"`
	TargetApp      string    `json:"targetApp"`
	FocusRestored  bool      `json:"focusRestored"`
	KeystrokeSent  bool      `json:"keystrokeSent"`
	LatencyMs      int64     `json:"latencyMs"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
}

// SavePaste saves a paste to the database
func (db *DB) SavePaste(p *Paste) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	query := `
		INSERT INTO pastes (
			timestamp, source, character_count, target_app,
			focus_restored, keystroke_sent, latency_ms, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		p.Timestamp.UTC().Format(timeLayout), p.Source, p.CharacterCount, p.TargetApp,
		p.FocusRestored, p.KeystrokeSent, p.LatencyMs, nullString(p.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to save paste: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetPastes retrieves pastes with pagination, newest first
func (db *DB) GetPastes(limit, offset int) ([]Paste, error) {
	query := `
		SELECT
			id, timestamp, source, character_count, target_app,
			focus_restored, keystroke_sent, latency_ms, error_message
		FROM pastes
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query pastes: %w", err)
	}
	defer rows.Close()

	var pastes []Paste
	for rows.Next() {
		var p Paste
		var ts string
		var errorMessage sql.NullString

		err := rows.Scan(
			&p.ID, &ts, &p.Source, &p.CharacterCount, &p.TargetApp,
			&p.FocusRestored, &p.KeystrokeSent, &p.LatencyMs, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paste: %w", err)
		}

		p.Timestamp, err = time.ParseInLocation(timeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse paste timestamp: %w", err)
		}

		if errorMessage.Valid {
			p.ErrorMessage = errorMessage.String
		}

		pastes = append(pastes, p)
	}

	return pastes, rows.Err()
}

// GetPasteCount returns the total number of recorded pastes
func (db *DB) GetPasteCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pastes").Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
