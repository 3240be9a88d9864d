package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborline/catalog/internal/cache"
	"github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/internal/category/repository"
	"github.com/harborline/catalog/internal/clock"
	productdomain "github.com/harborline/catalog/internal/product/domain"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Category{}, &productdomain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)),
		Repo:      repository.Provide(),
		Expansion: cache.NewExpansionCache(),
	})
	return svc, db
}

func parseID(t *testing.T, id string) int64 {
	t.Helper()
	parsed, err := snowflake.ParseString(id)
	require.NoError(t, err)
	return parsed.Int64()
}

func createTree(t *testing.T, svc domain.Service) (class, typ, category *domain.Response) {
	t.Helper()
	ctx := context.Background()

	class, err := svc.Create(ctx, domain.CreateRequest{Name: "Medicines", Level: domain.LevelClass})
	require.NoError(t, err)
	typ, err = svc.Create(ctx, domain.CreateRequest{Name: "Pain Relief", Level: domain.LevelType, ParentID: &class.ID})
	require.NoError(t, err)
	category, err = svc.Create(ctx, domain.CreateRequest{Name: "Ibuprofen", Level: domain.LevelCategory, ParentID: &typ.ID})
	require.NoError(t, err)
	return class, typ, category
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, categoryID int64) int64 {
	t.Helper()
	id := node.Generate().Int64()
	require.NoError(t, db.Exec(
		"INSERT INTO products (id, uuid, code, name, web_handle, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, fmt.Sprintf("%d", id), fmt.Sprintf("SKU-%d", id), "seed", fmt.Sprintf("seed-%d", id),
		productdomain.StatusActive, time.Now().UTC(), time.Now().UTC(),
	).Error)
	require.NoError(t, db.Exec("UPDATE products SET category_id = ? WHERE id = ?", categoryID, id).Error)
	return id
}

func TestService_CreateHierarchy(t *testing.T) {
	svc, _ := newTestService(t)

	class, typ, category := createTree(t, svc)
	require.Equal(t, domain.LevelClass, class.Level)
	require.Nil(t, class.ParentID)
	require.Equal(t, &class.ID, typ.ParentID)
	require.Equal(t, &typ.ID, category.ParentID)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	class, _, category := createTree(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "", Level: domain.LevelClass})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Misc", Level: "department"})
	require.ErrorIs(t, err, domain.ErrInvalidLevel)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Orphan", Level: domain.LevelType})
	require.ErrorIs(t, err, domain.ErrMissingParent)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Nested", Level: domain.LevelClass, ParentID: &class.ID})
	require.ErrorIs(t, err, domain.ErrRootHasParent)

	// A type must hang off a class, not a category.
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Deep", Level: domain.LevelType, ParentID: &category.ID})
	require.ErrorIs(t, err, domain.ErrLevelMismatch)
}

func TestService_Descendants(t *testing.T) {
	svc, _ := newTestService(t)

	class, typ, category := createTree(t, svc)

	all, err := svc.Descendants(context.Background(), class.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	ids := make(map[string]bool, len(all))
	for _, item := range all {
		ids[item.ID] = true
	}
	require.True(t, ids[class.ID])
	require.True(t, ids[typ.ID])
	require.True(t, ids[category.ID])
}

func TestService_ExpandProducts(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	class, _, category := createTree(t, svc)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	classID := parseID(t, class.ID)
	categoryID := parseID(t, category.ID)
	productID := seedProduct(t, db, node, categoryID)

	// Expanding the root class walks down to products on leaf categories.
	ids, err := svc.ExpandProducts(ctx, []int64{classID})
	require.NoError(t, err)
	require.Equal(t, []int64{productID}, ids)

	// Second expansion is served from cache.
	again, err := svc.ExpandProducts(ctx, []int64{classID})
	require.NoError(t, err)
	require.Equal(t, ids, again)
}

func TestService_DeleteGuards(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, typ, category := createTree(t, svc)

	require.ErrorIs(t, svc.Delete(ctx, typ.ID), domain.ErrHasChildren)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	seedProduct(t, db, node, parseID(t, category.ID))
	require.ErrorIs(t, svc.Delete(ctx, category.ID), domain.ErrHasProducts)

	require.NoError(t, db.Exec("DELETE FROM products").Error)
	require.NoError(t, svc.Delete(ctx, category.ID))
	require.NoError(t, svc.Delete(ctx, typ.ID))
}

func TestService_UpdateRename(t *testing.T) {
	svc, _ := newTestService(t)

	class, _, _ := createTree(t, svc)

	name := "Pharmacy"
	updated, err := svc.Update(context.Background(), domain.UpdateRequest{ID: class.ID, Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
}
