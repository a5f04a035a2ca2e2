package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"github.com/patronlabs/patron-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.UserEntity{},
		&repository.CampaignEntity{},
		&repository.MemoEntity{},
		&repository.ConversationEntity{},
		&repository.ChatMessageEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, address, nickname string) *repository.UserEntity {
	ctx := context.Background()
	user := &repository.UserEntity{
		Address:  address,
		Nickname: nickname,
	}
	err := db.Write(ctx).Create(user).Error
	require.NoError(t, err)
	return user
}

func CreateTestCampaign(t *testing.T, db *pg.DB, createdBy int64, contractID *int64) *repository.CampaignEntity {
	ctx := context.Background()
	goal := 500.0
	campaign := &repository.CampaignEntity{
		Type:        "donation",
		Name:        "Save the reef",
		Description: "Coral restoration off the coast",
		Goal:        &goal,
		ContractID:  contractID,
		IsActive:    true,
		CreatedBy:   createdBy,
	}
	err := db.Write(ctx).Create(campaign).Error
	require.NoError(t, err)
	return campaign
}

func CreateTestMemo(t *testing.T, db *pg.DB, contractID int64, creatorAddress, userAddress, txHash string, amount int64) *repository.MemoEntity {
	ctx := context.Background()
	memo := &repository.MemoEntity{
		CampaignID:      contractID,
		CreatorAddress:  creatorAddress,
		UserAddress:     userAddress,
		Memo:            "keep it up",
		TransactionHash: txHash,
		Type:            "donation",
		Amount:          amount,
		CreatedAt:       time.Now(),
	}
	err := db.Write(ctx).Create(memo).Error
	require.NoError(t, err)
	return memo
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
