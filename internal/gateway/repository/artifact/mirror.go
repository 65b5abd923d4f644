package artifact

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"appforge/internal/archive"
	"appforge/internal/types"
)

// AppPrefix is the key prefix for a record's mirrored files.
func AppPrefix(id int64) string {
	return "apps/" + strconv.FormatInt(id, 10)
}

// WriteBundles puts every file under prefix and returns how many were written.
func WriteBundles(ctx context.Context, store Store, prefix string, files []types.FileBundle) (int, error) {
	n := 0
	for _, f := range files {
		p, ok := archive.SafePath(f.Path)
		if !ok {
			continue
		}
		if err := store.Put(ctx, prefix, p, []byte(f.Content)); err != nil {
			return n, fmt.Errorf("put %s: %w", p, err)
		}
		n++
	}
	return n, nil
}

// Mirror copies completed records' files to a Store keyed by record id.
type Mirror struct {
	store  Store
	logger zerolog.Logger
}

func NewMirror(store Store, logger zerolog.Logger) *Mirror {
	return &Mirror{store: store, logger: logger.With().Str("component", "artifact_mirror").Logger()}
}

func (m *Mirror) Save(ctx context.Context, id int64, files []types.FileBundle) error {
	n, err := WriteBundles(ctx, m.store, AppPrefix(id), files)
	if err != nil {
		return fmt.Errorf("mirror app %d: %w", id, err)
	}
	m.logger.Debug().Int64("app_id", id).Int("files", n).Msg("mirrored files")
	return nil
}

func (m *Mirror) Remove(ctx context.Context, id int64) error {
	if err := m.store.Remove(ctx, AppPrefix(id)); err != nil {
		return fmt.Errorf("remove mirror of app %d: %w", id, err)
	}
	return nil
}
