package journal

import (
	"encoding/json"
	"os"
)

// ExportJSON writes every journaled event to a JSON file, oldest first.
func (j *Journal) ExportJSON(path string) error {
	rows, err := j.db.Query(
		`SELECT event_id, type, container, scope, path, dep, version, error, timestamp
		 FROM events ORDER BY id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
