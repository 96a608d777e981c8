package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-panel/internal/config"
	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// Field names of the snapshot document.
const (
	fieldEntryID   = "entry_id"
	fieldKeyword   = "status"
	fieldChangedAt = "changed_at"
)

// Repository defines persistence operations for the panel status.
type Repository interface {
	Load(ctx context.Context, entryID string) (domain.Status, error)
	Save(ctx context.Context, entryID string, status domain.Status) error
}

// FileRepository persists the panel status to a JSON file on disk.
// The document is a google.protobuf.Struct encoded with protojson.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the state file does not exist yet
	// or belongs to another entry.
	ErrNotFound = errors.New("state not found")

	errMalformed = errors.New("malformed state document")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the status of entryID from disk.
func (r *FileRepository) Load(_ context.Context, entryID string) (domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Status{}, ErrNotFound
		}

		return domain.Status{}, fmt.Errorf("read state file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return domain.Status{}, fmt.Errorf("decode state file: %w", err)
	}

	fields := document.GetFields()
	if fields[fieldEntryID].GetStringValue() != entryID {
		return domain.Status{}, ErrNotFound
	}

	return fromStruct(&document)
}

// Save writes the status of entryID to disk.
func (r *FileRepository) Save(_ context.Context, entryID string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, err := toStruct(entryID, status)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	return writeFileAtomic(r.path, data)
}

// writeFileAtomic replaces path with data through a temporary file in the same
// directory, so readers see either the old or the new document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}

	tmpPath := tmp.Name()

	//nolint:errcheck // Best effort, fails once the file was renamed.
	defer os.Remove(tmpPath)

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write state file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync state file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	if err = os.Chmod(tmpPath, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// fromStruct converts the stored document into the domain Status model.
func fromStruct(document *structpb.Struct) (domain.Status, error) {
	fields := document.GetFields()

	keyword, ok := fields[fieldKeyword].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return domain.Status{}, fmt.Errorf("%w: missing %s", errMalformed, fieldKeyword)
	}

	status := domain.Status{Keyword: keyword.StringValue}

	if raw := fields[fieldChangedAt].GetStringValue(); raw != "" {
		changedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Status{}, fmt.Errorf("%w: %w", errMalformed, err)
		}

		status.ChangedAt = changedAt
	}

	return status, nil
}

// toStruct converts the domain Status model into the stored document.
func toStruct(entryID string, status domain.Status) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldEntryID: entryID,
		fieldKeyword: status.Keyword,
	}

	if !status.ChangedAt.IsZero() {
		fields[fieldChangedAt] = status.ChangedAt.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(fields)
}
