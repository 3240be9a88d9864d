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

	"github.com/harborline/catalog/internal/clock"
	"github.com/harborline/catalog/internal/distributor/domain"
	"github.com/harborline/catalog/internal/distributor/repository"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Distributor{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:         "AAH",
		Name:         "AAH Pharmaceuticals",
		ContactEmail: "orders@aah.example",
	})
	require.NoError(t, err)
	require.Equal(t, "AAH", created.Code)
	require.Equal(t, domain.StatusActive, created.Status)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.UUID, got.UUID)
	require.Equal(t, "orders@aah.example", got.ContactEmail)
}

func TestService_CreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Code: " ", Name: "Alliance"})
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Create(ctx, domain.CreateRequest{Code: "ALL", Name: ""})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Code: "ALL", Name: "Alliance"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Code: "ALL", Name: "Alliance Again"})
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestService_UpdateAndArchive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{Code: "PHX", Name: "Phoenix"})
	require.NoError(t, err)

	name := "Phoenix Healthcare"
	phone := "+44 20 7946 0000"
	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:           created.ID,
		Name:         &name,
		ContactPhone: &phone,
	})
	require.NoError(t, err)
	require.Equal(t, "Phoenix Healthcare", updated.Name)
	require.Equal(t, phone, updated.ContactPhone)
	require.Equal(t, "PHX", updated.Code)

	archived, err := svc.Archive(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, archived.Status)
}

func TestService_NotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-snowflake")
	require.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, snowflake.ID(123456789).String())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateRequest{Code: "AAH", Name: "AAH Pharmaceuticals"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Code: "PHX", Name: "Phoenix Healthcare"})
	require.NoError(t, err)

	_, err = svc.Archive(ctx, first.ID)
	require.NoError(t, err)

	active, err := svc.List(ctx, domain.ListRequest{Status: domain.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "PHX", active[0].Code)

	byName, err := svc.List(ctx, domain.ListRequest{Name: "Pharma"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "AAH", byName[0].Code)
}
