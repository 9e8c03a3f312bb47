package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

type ThemeRepository struct {
	db *sql.DB
}

func NewThemeRepository(db *sql.DB) *ThemeRepository {
	return &ThemeRepository{db: db}
}

const themeColumns = `id, name, description, keywords, document_ids, confidence, metadata, version, created_at, updated_at`

func (r *ThemeRepository) Create(ctx context.Context, theme *domain.Theme) error {
	keywords, documentIDs, metadata, err := marshalThemeJSON(theme.Keywords, theme.DocumentIDs, theme.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO themes (`+themeColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		theme.ID, theme.Name, theme.Description, keywords, documentIDs,
		theme.Confidence, metadata, theme.Version, theme.CreatedAt, theme.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert theme: %w", err)
	}
	return nil
}

func (r *ThemeRepository) GetByID(ctx context.Context, id string) (*domain.Theme, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+themeColumns+`
FROM themes
WHERE id = $1
`, id)

	theme, err := scanTheme(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get theme", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan theme: %w", err)
	}
	return &theme, nil
}

func (r *ThemeRepository) List(ctx context.Context) ([]domain.Theme, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+themeColumns+`
FROM themes
ORDER BY updated_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Theme, 0)
	for rows.Next() {
		theme, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme row: %w", err)
		}
		out = append(out, theme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}
	return out, nil
}

// Update applies the patch only when the stored version still matches
// expectedVersion; the version bump happens in the same statement. Zero
// rows affected means either a stale version or a missing row, and a
// follow-up existence check tells the two apart.
func (r *ThemeRepository) Update(ctx context.Context, id string, patch domain.ThemePatch, expectedVersion int) (*domain.Theme, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := applyPatch(*current, patch)

	keywords, documentIDs, metadata, err := marshalThemeJSON(merged.Keywords, merged.DocumentIDs, merged.Metadata)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE themes
SET name = $3, description = $4, keywords = $5, document_ids = $6, confidence = $7, metadata = $8, version = version + 1, updated_at = $9
WHERE id = $1 AND version = $2
`, id, expectedVersion, merged.Name, merged.Description, keywords, documentIDs, merged.Confidence, metadata, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update theme: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update theme rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.WrapError(domain.ErrVersionConflict, "update theme",
			fmt.Errorf("id=%s expected version %d", id, expectedVersion))
	}
	return r.GetByID(ctx, id)
}

func (r *ThemeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete theme rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete theme", fmt.Errorf("id=%s", id))
	}
	return nil
}

func applyPatch(theme domain.Theme, patch domain.ThemePatch) domain.Theme {
	if patch.Name != nil {
		theme.Name = *patch.Name
	}
	if patch.Description != nil {
		theme.Description = *patch.Description
	}
	if patch.Keywords != nil {
		theme.Keywords = *patch.Keywords
	}
	if patch.DocumentIDs != nil {
		theme.DocumentIDs = *patch.DocumentIDs
	}
	if patch.Confidence != nil {
		theme.Confidence = *patch.Confidence
	}
	if patch.Metadata != nil {
		theme.Metadata = *patch.Metadata
	}
	return theme
}

func marshalThemeJSON(keywords, documentIDs []string, metadata map[string]string) ([]byte, []byte, []byte, error) {
	if keywords == nil {
		keywords = []string{}
	}
	if documentIDs == nil {
		documentIDs = []string{}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal keywords: %w", err)
	}
	documentIDsJSON, err := json.Marshal(documentIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal document ids: %w", err)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return keywordsJSON, documentIDsJSON, metadataJSON, nil
}

func scanTheme(row rowScanner) (domain.Theme, error) {
	var theme domain.Theme
	var keywordsRaw, documentIDsRaw, metadataRaw []byte
	err := row.Scan(
		&theme.ID,
		&theme.Name,
		&theme.Description,
		&keywordsRaw,
		&documentIDsRaw,
		&theme.Confidence,
		&metadataRaw,
		&theme.Version,
		&theme.CreatedAt,
		&theme.UpdatedAt,
	)
	if err != nil {
		return domain.Theme{}, err
	}
	if err := json.Unmarshal(keywordsRaw, &theme.Keywords); err != nil {
		return domain.Theme{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal(documentIDsRaw, &theme.DocumentIDs); err != nil {
		return domain.Theme{}, fmt.Errorf("unmarshal document ids: %w", err)
	}
	if err := json.Unmarshal(metadataRaw, &theme.Metadata); err != nil {
		return domain.Theme{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return theme, nil
}
