package settings

import (
	"encoding/json"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/ordergrid/ordergrid/internal/models"
)

var (
	snapshotMu sync.RWMutex
	snapshot   map[string]json.RawMessage
)

// ReplaceDBConfig swaps the in-memory settings snapshot.
func ReplaceDBConfig(values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		copied[key] = append(json.RawMessage(nil), value...)
	}
	snapshotMu.Lock()
	snapshot = copied
	snapshotMu.Unlock()
}

// DBConfigValue returns the raw JSON value for a settings key from the
// current snapshot.
func DBConfigValue(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	value, ok := snapshot[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), value...), true
}

// LoadSnapshot reads every settings row and replaces the in-memory
// snapshot. Call it at startup and after any settings write.
func LoadSnapshot(conn *gorm.DB) error {
	var rows []models.Setting
	if errFind := conn.Find(&rows).Error; errFind != nil {
		return errFind
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	ReplaceDBConfig(values)
	return nil
}

// SiteName returns the configured site name, falling back to the
// default.
func SiteName() string {
	raw, ok := DBConfigValue(SiteNameKey)
	if !ok {
		return DefaultSiteName
	}
	var name string
	if errUnmarshal := json.Unmarshal(raw, &name); errUnmarshal != nil {
		return DefaultSiteName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultSiteName
	}
	return name
}
