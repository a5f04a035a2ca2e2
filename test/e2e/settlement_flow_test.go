package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patronlabs/patron-gateway/internal/handlers"
	"github.com/patronlabs/patron-gateway/internal/model"
	"github.com/patronlabs/patron-gateway/internal/queue"
	"github.com/patronlabs/patron-gateway/internal/reconciler"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/internal/services"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"github.com/patronlabs/patron-gateway/pkg/redis"
	"github.com/patronlabs/patron-gateway/test/fixtures"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB = pg.DB

type TestEnvironment struct {
	DB                  *pg.DB
	Redis               *miniredis.Miniredis
	RedisAdapter        redis.RedisAdapter
	Queue               *queue.Queue
	UserRepo            *repository.UserRepository
	CampaignRepo        *repository.CampaignRepository
	MemoRepo            *repository.MemoRepository
	ConversationRepo    *repository.ConversationRepository
	UserService         *services.UserService
	CampaignService     *services.CampaignService
	ConversationService *services.ConversationService
	CampaignHandler     *handlers.CampaignHandler
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
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

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	queueConfig := queue.QueueConfig{
		Name:              "test:settlements",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(pgDB)
	campaignRepo := repository.NewCampaignRepository(pgDB)
	memoRepo := repository.NewMemoRepository(pgDB)
	conversationRepo := repository.NewConversationRepository(pgDB)

	userService := services.NewUserService(userRepo)
	campaignService := services.NewCampaignService(campaignRepo, memoRepo, userRepo, q)
	conversationService := services.NewConversationService(conversationRepo, userRepo, campaignRepo)
	campaignHandler := handlers.NewCampaignHandler(campaignService)

	return &TestEnvironment{
		DB:                  pgDB,
		Redis:               mr,
		RedisAdapter:        redisAdapter,
		Queue:               q,
		UserRepo:            userRepo,
		CampaignRepo:        campaignRepo,
		MemoRepo:            memoRepo,
		ConversationRepo:    conversationRepo,
		UserService:         userService,
		CampaignService:     campaignService,
		ConversationService: conversationService,
		CampaignHandler:     campaignHandler,
	}
}

func (env *TestEnvironment) Cleanup() {
	// Stop queue first (gracefully drain messages)
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	// Give time for any in-flight operations to complete
	time.Sleep(100 * time.Millisecond)
	// Then close Redis
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) createSettledCampaign(t *testing.T, contractID int64) (*model.User, *model.Campaign) {
	ctx := context.Background()

	creator, err := env.UserService.Create(ctx, fixtures.NewTestUserCreateRequest(fixtures.Address("c")))
	require.NoError(t, err)

	req := fixtures.NewTestCampaignCreateRequest(creator.Address, model.CampaignTypeDonation)
	req.ContractID = &contractID
	req.TransactionHash = fixtures.TxHash(9000)

	campaign, err := env.CampaignService.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, campaign.ContractID)

	return creator, campaign
}

func TestE2E_MemoIngestUpdatesStatsAndEnqueues(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, campaign := env.createSettledCampaign(t, 42)

	req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(1), 150_000_000)
	memo, err := env.CampaignService.IngestMemo(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, memo.ID)
	assert.Equal(t, fixtures.TxHash(1), memo.TransactionHash)

	var updated repository.CampaignEntity
	err = env.DB.Read(ctx).First(&updated, campaign.ID).Error
	require.NoError(t, err)
	assert.Equal(t, 1.5, updated.TotalRaised)
	assert.Equal(t, 1, updated.SupporterCount)

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(1))
}

func TestE2E_DuplicateMemoRejected(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, campaign := env.createSettledCampaign(t, 42)

	req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(2), 100_000_000)
	_, err := env.CampaignService.IngestMemo(ctx, req)
	require.NoError(t, err)

	_, err = env.CampaignService.IngestMemo(ctx, req)
	assert.Error(t, err)

	var updated repository.CampaignEntity
	err = env.DB.Read(ctx).First(&updated, campaign.ID).Error
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.TotalRaised)
	assert.Equal(t, 1, updated.SupporterCount)

	var count int64
	env.DB.Read(ctx).Model(&repository.MemoEntity{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestE2E_SettlementEventConsumption(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, _ := env.createSettledCampaign(t, 42)

	req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(3), 200_000_000)
	memo, err := env.CampaignService.IngestMemo(ctx, req)
	require.NoError(t, err)

	received := make(chan bool, 1)
	handler := func(ctx context.Context, qMsg *queue.Message) error {
		var data map[string]interface{}
		err := json.Unmarshal(qMsg.Data, &data)
		assert.NoError(t, err)
		assert.Equal(t, memo.TransactionHash, data["transaction_hash"])
		assert.Equal(t, float64(42), data["campaign_id"])
		assert.Equal(t, "settlement.recorded", qMsg.Metadata["kind"])
		received <- true
		return nil
	}

	err = env.Queue.Consume(handler)
	require.NoError(t, err)

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("settlement event not consumed within timeout")
	}
}

func TestE2E_SettlementProcessorRepairsStats(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, campaign := env.createSettledCampaign(t, 42)

	req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(4), 300_000_000)
	memo, err := env.CampaignService.IngestMemo(ctx, req)
	require.NoError(t, err)

	// Simulate drift: zero out the running totals behind the service's back.
	err = env.DB.Write(ctx).Model(&repository.CampaignEntity{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{"total_raised": 0, "supporter_count": 0}).Error
	require.NoError(t, err)

	rebuilder := reconciler.NewStatsRebuilder(env.CampaignRepo, env.MemoRepo)
	idempotency := reconciler.NewIdempotencyService(env.RedisAdapter, reconciler.DefaultIdempotencyConfig())
	processor := reconciler.NewSettlementProcessor(env.UserRepo, env.CampaignRepo, rebuilder, idempotency)

	data, err := json.Marshal(memo)
	require.NoError(t, err)

	err = processor.Process(ctx, &queue.Message{ID: "1-0", Data: data})
	require.NoError(t, err)

	var repaired repository.CampaignEntity
	err = env.DB.Read(ctx).First(&repaired, campaign.ID).Error
	require.NoError(t, err)
	assert.Equal(t, 3.0, repaired.TotalRaised)
	assert.Equal(t, 1, repaired.SupporterCount)
}

func TestE2E_SweepRepairsAllSettledCampaigns(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, campaign := env.createSettledCampaign(t, 42)

	for i := 0; i < 3; i++ {
		req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(10+i), 100_000_000)
		_, err := env.CampaignService.IngestMemo(ctx, req)
		require.NoError(t, err)
	}

	err := env.DB.Write(ctx).Model(&repository.CampaignEntity{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{"total_raised": 99, "supporter_count": 7}).Error
	require.NoError(t, err)

	rebuilder := reconciler.NewStatsRebuilder(env.CampaignRepo, env.MemoRepo)
	sweeper := reconciler.NewSweeper(env.CampaignRepo, rebuilder, time.Hour)
	sweeper.Sweep(ctx)

	var repaired repository.CampaignEntity
	err = env.DB.Read(ctx).First(&repaired, campaign.ID).Error
	require.NoError(t, err)
	assert.Equal(t, 3.0, repaired.TotalRaised)
	assert.Equal(t, 1, repaired.SupporterCount)
}

func TestE2E_ConversationRoundTrip(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	alice, err := env.UserService.Create(ctx, fixtures.NewTestUserCreateRequest(fixtures.Address("a")))
	require.NoError(t, err)
	bob, err := env.UserService.Create(ctx, fixtures.NewTestUserCreateRequest(fixtures.Address("b")))
	require.NoError(t, err)

	// Both directions land in the same thread regardless of who wrote first.
	_, err = env.ConversationService.Send(ctx, fixtures.NewTestMessageSendRequest(alice.Address, bob.Address, "hi bob"))
	require.NoError(t, err)
	_, err = env.ConversationService.Send(ctx, fixtures.NewTestMessageSendRequest(bob.Address, alice.Address, "hi alice"))
	require.NoError(t, err)

	var threadCount int64
	env.DB.Read(ctx).Model(&repository.ConversationEntity{}).Count(&threadCount)
	assert.Equal(t, int64(1), threadCount)

	page := model.PageRequest{Page: 1, PageSize: 10}
	thread, _, err := env.ConversationService.GetThread(ctx, alice.Address, bob.Address, nil, page)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "hi bob", thread[0].Body)
	assert.Equal(t, "hi alice", thread[1].Body)

	// Reading the thread marks bob's message to alice as read.
	var unread int64
	env.DB.Read(ctx).Model(&repository.ChatMessageEntity{}).
		Where("receiver_address = ? AND is_read = ?", alice.Address, false).
		Count(&unread)
	assert.Equal(t, int64(0), unread)
}

func TestE2E_CampaignScopedThreadIsSeparate(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	alice, err := env.UserService.Create(ctx, fixtures.NewTestUserCreateRequest(fixtures.Address("a")))
	require.NoError(t, err)
	creator, campaign := env.createSettledCampaign(t, 42)

	unscoped := fixtures.NewTestMessageSendRequest(alice.Address, creator.Address, "general question")
	_, err = env.ConversationService.Send(ctx, unscoped)
	require.NoError(t, err)

	scoped := fixtures.NewTestMessageSendRequest(alice.Address, creator.Address, "about your campaign")
	scoped.CampaignID = &campaign.ID
	_, err = env.ConversationService.Send(ctx, scoped)
	require.NoError(t, err)

	var threadCount int64
	env.DB.Read(ctx).Model(&repository.ConversationEntity{}).Count(&threadCount)
	assert.Equal(t, int64(2), threadCount)

	page := model.PageRequest{Page: 1, PageSize: 10}
	scopedThread, _, err := env.ConversationService.GetThread(ctx, alice.Address, creator.Address, &campaign.ID, page)
	require.NoError(t, err)
	require.Len(t, scopedThread, 1)
	assert.Equal(t, "about your campaign", scopedThread[0].Body)
}

func TestE2E_ListCampaignMemos(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	creator, campaign := env.createSettledCampaign(t, 42)

	for i := 0; i < 5; i++ {
		req := fixtures.NewTestMemoCreateRequest(42, creator.Address, fixtures.Address("a"), fixtures.TxHash(100+i), 100_000_000)
		_, err := env.CampaignService.IngestMemo(ctx, req)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	page := model.PageRequest{Page: 1, PageSize: 10}
	memos, pagination, err := env.CampaignService.ListMemos(ctx, campaign.ID, page)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pagination.TotalItems)
	assert.Len(t, memos, 5)
}
