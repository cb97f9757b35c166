package storage

import (
	"fmt"
)

// DailyStats represents paste statistics for a single day
type DailyStats struct {
	Date          string `json:"date"`
	TotalPastes   int    `json:"totalPastes"`
	TotalChars    int    `json:"totalChars"`
	AutoPasted    int    `json:"autoPasted"`
	ClipboardOnly int    `json:"clipboardOnly"`
}

// SourceStats represents statistics grouped by paste source
type SourceStats struct {
	Source       string  `json:"source"`
	TotalPastes  int     `json:"totalPastes"`
	TotalChars   int     `json:"totalChars"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalPastes     int     `json:"totalPastes"`
	TotalChars      int     `json:"totalChars"`
	FocusRestored   int     `json:"focusRestored"`
	AutoPasted      int     `json:"autoPasted"`
	FailureCount    int     `json:"failureCount"`
	AvgLatencyMs    float64 `json:"avgLatencyMs"`
	MaxLatencyMs    int64   `json:"maxLatencyMs"`
	DistinctTargets int     `json:"distinctTargets"`
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_pastes,
			COALESCE(SUM(character_count), 0) as total_chars,
			SUM(CASE WHEN keystroke_sent = 1 THEN 1 ELSE 0 END) as auto_pasted,
			SUM(CASE WHEN keystroke_sent = 0 THEN 1 ELSE 0 END) as clipboard_only
		FROM pastes
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.TotalPastes, &s.TotalChars, &s.AutoPasted, &s.ClipboardOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetSourceStats retrieves statistics grouped by source for the last N days
func (db *DB) GetSourceStats(days int) ([]SourceStats, error) {
	query := `
		SELECT
			source,
			COUNT(*) as total_pastes,
			COALESCE(SUM(character_count), 0) as total_chars,
			AVG(latency_ms) as avg_latency_ms
		FROM pastes
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY source
		ORDER BY total_pastes DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query source stats: %w", err)
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var s SourceStats
		err := rows.Scan(&s.Source, &s.TotalPastes, &s.TotalChars, &s.AvgLatencyMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_pastes,
			COALESCE(SUM(character_count), 0) as total_chars,
			COALESCE(SUM(CASE WHEN focus_restored = 1 THEN 1 ELSE 0 END), 0) as focus_restored,
			COALESCE(SUM(CASE WHEN keystroke_sent = 1 THEN 1 ELSE 0 END), 0) as auto_pasted,
			COALESCE(SUM(CASE WHEN error_message IS NOT NULL THEN 1 ELSE 0 END), 0) as failure_count,
			COALESCE(AVG(latency_ms), 0) as avg_latency_ms,
			COALESCE(MAX(latency_ms), 0) as max_latency_ms,
			COUNT(DISTINCT NULLIF(target_app, '')) as distinct_targets
		FROM pastes
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, days).Scan(
		&stats.TotalPastes,
		&stats.TotalChars,
		&stats.FocusRestored,
		&stats.AutoPasted,
		&stats.FailureCount,
		&stats.AvgLatencyMs,
		&stats.MaxLatencyMs,
		&stats.DistinctTargets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
