package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistorySaveFromRecentResult(t *testing.T) {
	f := newFixture(10)
	results := memory.NewResultRepository(time.Hour)
	svc := NewHistoryService(f.store, results, f.clock, f.log)
	userId := uuid.New()
	requestId := uuid.New()
	results.Save(&entity.ToolResult{
		RequestId:   requestId,
		UserId:      userId,
		ToolType:    "summary",
		InputText:   "input",
		OutputText:  "output",
		Settings:    map[string]interface{}{"mode": "key_points"},
		CreditsUsed: 1,
	})
	ctx := context.Background()

	// Another user cannot claim the result.
	_, err := svc.Save(ctx, uuid.New(), &dto.SaveHistoryRequest{RequestId: &requestId})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Code)

	saved, err := svc.Save(ctx, userId, &dto.SaveHistoryRequest{RequestId: &requestId})
	require.NoError(t, err)
	assert.Equal(t, "output", saved.OutputText)
	assert.Equal(t, "key_points", saved.Settings["mode"])

	_, stillCached := results.Get(requestId, userId)
	assert.False(t, stillCached)

	got, err := svc.Get(ctx, userId, saved.Id)
	require.NoError(t, err)
	assert.Equal(t, "summary", got.ToolType)

	_, err = svc.Get(ctx, uuid.New(), saved.Id)
	assert.Error(t, err)
}

func TestHistoryListFilterAndDelete(t *testing.T) {
	f := newFixture(10)
	svc := NewHistoryService(f.store, memory.NewResultRepository(time.Hour), f.clock, f.log)
	userId := uuid.New()
	ctx := context.Background()

	for _, tool := range []string{"summary", "questions", "summary"} {
		_, err := svc.Save(ctx, userId, &dto.SaveHistoryRequest{ToolType: tool, InputText: "in", OutputText: "out"})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	page, err := svc.List(ctx, userId, "summary", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	page, err = svc.List(ctx, userId, "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	require.NoError(t, svc.Delete(ctx, userId, page.Items[0].Id))
	err = svc.Delete(ctx, userId, page.Items[0].Id)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Code)

	n, err := svc.DeleteAll(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
