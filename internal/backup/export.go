package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agendapastoral/backend/internal/store"
)

// ErrInvalidFile reports a structurally invalid import document.
var ErrInvalidFile = errors.New("invalid backup file")

// exportFile is the on-disk interchange format. Timestamp is unix
// milliseconds; importers reject files where it is not numeric or deviceId is
// not a string.
type exportFile struct {
	Metadata     exportMetadata  `json:"metadata"`
	Appointments json.RawMessage `json:"appointments"`
	Pastors      json.RawMessage `json:"pastors"`
	Settings     json.RawMessage `json:"settings"`
}

type exportMetadata struct {
	Timestamp     json.RawMessage `json:"timestamp"`
	DeviceID      json.RawMessage `json:"deviceId"`
	SchemaVersion int             `json:"schemaVersion"`
	UserID        string          `json:"userId,omitempty"`
}

// Export serializes one snapshot as a downloadable file.
func (s *Store) Export(ctx context.Context, id int64) ([]byte, error) {
	var row snapshotRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, store.ErrNotFound
		}
		return nil, store.Persistence("backup read", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(decrypt(decompress(row.Payload)), &bundle); err != nil {
		return nil, store.Persistence("backup decode", err)
	}

	doc := map[string]any{
		"metadata": map[string]any{
			"timestamp":     row.CreatedAt.UnixMilli(),
			"deviceId":      row.DeviceID,
			"schemaVersion": row.SchemaVersion,
			"userId":        row.UserID,
		},
		"appointments": bundle.Appointments,
		"pastors":      bundle.Pastors,
		"settings":     bundle.Settings,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import validates an exported file structurally and stores its content as a
// new snapshot. Nothing is persisted when validation fails.
func (s *Store) Import(ctx context.Context, data []byte) (int64, error) {
	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := validateExport(file); err != nil {
		return 0, err
	}

	var bundle Bundle
	if err := json.Unmarshal(file.Appointments, &bundle.Appointments); err != nil {
		return 0, fmt.Errorf("%w: appointments: %w", ErrInvalidFile, err)
	}
	if err := json.Unmarshal(file.Pastors, &bundle.Pastors); err != nil {
		return 0, fmt.Errorf("%w: pastors: %w", ErrInvalidFile, err)
	}
	if err := json.Unmarshal(file.Settings, &bundle.Settings); err != nil {
		return 0, fmt.Errorf("%w: settings: %w", ErrInvalidFile, err)
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return 0, store.Persistence("backup encode", err)
	}
	raw = compress(encrypt(raw))

	row := snapshotRow{
		CreatedAt:     s.now().UTC(),
		DeviceID:      s.deviceID,
		SchemaVersion: SchemaVersion,
		Payload:       raw,
		Size:          len(raw),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return 0, store.Persistence("backup insert", err)
	}
	if err := s.prune(ctx); err != nil {
		s.log.Warn("backup prune failed", slog.Any("err", err))
	}
	return row.ID, nil
}

func validateExport(file exportFile) error {
	var problems []string
	if !isJSONArray(file.Appointments) {
		problems = append(problems, "appointments must be an array")
	}
	if !isJSONArray(file.Pastors) {
		problems = append(problems, "pastors must be an array")
	}
	if !isJSONObject(file.Settings) {
		problems = append(problems, "settings must be an object")
	}
	if !isJSONNumber(file.Metadata.Timestamp) {
		problems = append(problems, "metadata.timestamp must be a number")
	}
	if !isJSONString(file.Metadata.DeviceID) {
		problems = append(problems, "metadata.deviceId must be a string")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFile, strings.Join(problems, "; "))
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool  { return firstByte(raw) == '[' }
func isJSONObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }
func isJSONString(raw json.RawMessage) bool { return firstByte(raw) == '"' }

func isJSONNumber(raw json.RawMessage) bool {
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0
	}
	return trimmed[0]
}
