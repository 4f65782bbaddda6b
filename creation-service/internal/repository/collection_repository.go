package repository

import (
	"context"
	"errors"
	"fmt"

	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/promotion"
	"nicepods-server/shared/interfaces"
	sharedModels "nicepods-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ promotion.CollectionStore = (*PgCollectionRepository)(nil)

const (
	insertCollectionQuery = `
        INSERT INTO collections (owner_id, title, description, is_public, cover_image_url)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	insertCollectionItemsQuery = `
        INSERT INTO collection_items (collection_id, pod_id, position)
        SELECT $1, item.pod_id, item.position::int - 1
        FROM UNNEST($2::bigint[]) WITH ORDINALITY AS item(pod_id, position)`

	deleteCollectionQuery = `DELETE FROM collections WHERE id = $1`

	getCollectionQuery = `
        SELECT id, owner_id, title, description, is_public, cover_image_url, created_at
        FROM collections WHERE id = $1`

	listCollectionItemsQuery = `
        SELECT collection_id, pod_id, position
        FROM collection_items WHERE collection_id = $1
        ORDER BY position`
)

// PgCollectionRepository хранит коллекции и их элементы.
// Каждый метод - отдельная запись: атомарность пары обеспечивает координатор компенсацией.
type PgCollectionRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgCollectionRepository создает репозиторий коллекций.
func NewPgCollectionRepository(db interfaces.DBTX, logger *zap.Logger) *PgCollectionRepository {
	return &PgCollectionRepository{db: db, logger: logger.Named("PgCollectionRepo")}
}

// InsertCollection создает заголовок коллекции и возвращает его ID.
func (r *PgCollectionRepository) InsertCollection(ctx context.Context, ownerID uuid.UUID, header models.CollectionHeader) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, insertCollectionQuery,
		ownerID, header.Title, header.Description, header.IsPublic, header.CoverImageURL,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert collection: %w", err)
	}
	return id, nil
}

// InsertCollectionItems прикрепляет элементы одной вставкой в заданном порядке.
func (r *PgCollectionRepository) InsertCollectionItems(ctx context.Context, collectionID uuid.UUID, podIDs []int64) error {
	if len(podIDs) == 0 {
		return sharedModels.ErrEmptyCollection
	}
	if _, err := r.db.Exec(ctx, insertCollectionItemsQuery, collectionID, podIDs); err != nil {
		return fmt.Errorf("failed to insert %d items into collection %s: %w", len(podIDs), collectionID, err)
	}
	return nil
}

// DeleteCollection удаляет заголовок вместе с элементами.
func (r *PgCollectionRepository) DeleteCollection(ctx context.Context, collectionID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteCollectionQuery, collectionID); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collectionID, err)
	}
	r.logger.Info("Collection deleted", zap.String("collectionID", collectionID.String()))
	return nil
}

// GetCollection возвращает коллекцию с элементами.
func (r *PgCollectionRepository) GetCollection(ctx context.Context, collectionID uuid.UUID) (*models.Collection, []models.CollectionItem, error) {
	var c models.Collection
	if err := pgxscan.Get(ctx, r.db, &c, getCollectionQuery, collectionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, sharedModels.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get collection %s: %w", collectionID, err)
	}
	var items []models.CollectionItem
	if err := pgxscan.Select(ctx, r.db, &items, listCollectionItemsQuery, collectionID); err != nil {
		return nil, nil, fmt.Errorf("failed to list items of collection %s: %w", collectionID, err)
	}
	return &c, items, nil
}
