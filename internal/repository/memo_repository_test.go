package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMemo(campaignID int64, supporter, hash string) *model.Memo {
	return &model.Memo{
		CampaignID:      campaignID,
		CreatorAddress:  testAddress("a"),
		UserAddress:     supporter,
		Memo:            "keep it up",
		TransactionHash: hash,
		Type:            model.MemoTypeDonation,
		Amount:          100_000_000,
	}
}

func TestMemoRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemoRepository(db)
	ctx := context.Background()

	t.Run("create memo successfully", func(t *testing.T) {
		created, err := repo.Create(ctx, testMemo(1, testAddress("b"), "0xhash1"))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, int64(100_000_000), created.Amount)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("duplicate transaction hash rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, testMemo(1, testAddress("b"), "0xhash2"))
		require.NoError(t, err)

		_, err = repo.Create(ctx, testMemo(2, testAddress("c"), "0xhash2"))
		assert.ErrorIs(t, err, ErrDuplicateHash)
	})
}

func TestMemoRepository_ExistsForSupporter(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemoRepository(db)
	ctx := context.Background()

	supporter := testAddress("d")
	_, err := repo.Create(ctx, testMemo(5, supporter, "0xhash3"))
	require.NoError(t, err)

	t.Run("prior memo found", func(t *testing.T) {
		exists, err := repo.ExistsForSupporter(ctx, 5, supporter)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("different campaign", func(t *testing.T) {
		exists, err := repo.ExistsForSupporter(ctx, 6, supporter)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("different supporter", func(t *testing.T) {
		exists, err := repo.ExistsForSupporter(ctx, 5, testAddress("e"))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestMemoRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemoRepository(db)
	ctx := context.Background()

	campaignID := int64(9)
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, testMemo(campaignID, testAddress("f"), fmt.Sprintf("0xlist%d", i)))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("newest first with pagination", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MemoFilter{CampaignID: &campaignID, Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, items, 2)
		assert.True(t, !items[0].CreatedAt.Before(items[1].CreatedAt))
	})

	t.Run("second page", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MemoFilter{CampaignID: &campaignID, Page: 3, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, items, 1)
	})

	t.Run("replay order ascending", func(t *testing.T) {
		memos, err := repo.ListByCampaign(ctx, campaignID)
		require.NoError(t, err)
		require.Len(t, memos, 5)
		for i := 0; i < len(memos)-1; i++ {
			assert.True(t, !memos[i].CreatedAt.After(memos[i+1].CreatedAt))
		}
	})
}
