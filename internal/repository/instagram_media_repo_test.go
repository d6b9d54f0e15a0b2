package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopify_insta_v1/internal/model"
)

func setupMediaTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.InstagramAccount{}, &model.InstagramMedia{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func TestInstagramMediaRepo_Upsert_Create(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewInstagramMediaRepository(db)
	ctx := context.Background()

	row, err := repo.Upsert(ctx, &model.InstagramMedia{
		InstagramAccountID: 1,
		IGMediaID:          "m1",
		MediaType:          model.MediaTypeImage,
		MediaURL:           "https://cdn.example.com/m1.jpg",
		Caption:            "first post",
		LikesCount:         10,
		CommentsCount:      2,
		PostedAt:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if row.ID == 0 {
		t.Error("ID 应该被自动分配")
	}
}

func TestInstagramMediaRepo_Upsert_UpdatePreservesImmutableFields(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewInstagramMediaRepository(db)
	ctx := context.Background()

	postedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := repo.Upsert(ctx, &model.InstagramMedia{
		InstagramAccountID: 1,
		IGMediaID:          "m1",
		MediaType:          model.MediaTypeVideo,
		MediaURL:           "https://cdn.example.com/v1.mp4",
		Caption:            "old caption",
		LikesCount:         10,
		CommentsCount:      2,
		PostedAt:           postedAt,
	})
	if err != nil {
		t.Fatalf("首次 Upsert() error = %v", err)
	}

	// 再次同步：计数与 caption 刷新，media_type 与 posted_at 保持首次值
	updated, err := repo.Upsert(ctx, &model.InstagramMedia{
		InstagramAccountID: 1,
		IGMediaID:          "m1",
		MediaType:          model.MediaTypeImage, // 远端异常变更，不应覆盖
		MediaURL:           "https://cdn.example.com/v1-new.mp4",
		Caption:            "new caption",
		LikesCount:         25,
		CommentsCount:      7,
		PostedAt:           postedAt.Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("二次 Upsert() error = %v", err)
	}

	if updated.ID != first.ID {
		t.Errorf("id = %d, want %d (同键应命中同一行)", updated.ID, first.ID)
	}

	var row model.InstagramMedia
	db.First(&row, first.ID)
	if row.LikesCount != 25 || row.CommentsCount != 7 {
		t.Errorf("counts = (%d,%d), want (25,7)", row.LikesCount, row.CommentsCount)
	}
	if row.Caption != "new caption" {
		t.Errorf("caption = %s, want new caption", row.Caption)
	}
	if row.MediaType != model.MediaTypeVideo {
		t.Errorf("media_type = %s, want %s (更新不得改类型)", row.MediaType, model.MediaTypeVideo)
	}
	if !row.PostedAt.Equal(postedAt) {
		t.Errorf("posted_at = %v, want %v (更新不得改发布时间)", row.PostedAt, postedAt)
	}

	var count int64
	db.Model(&model.InstagramMedia{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestInstagramMediaRepo_Upsert_RaceOnNewKey(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewInstagramMediaRepository(db)
	ctx := context.Background()

	postedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// 另一个同步协程抢先插入了同键行
	if err := db.Create(&model.InstagramMedia{
		InstagramAccountID: 1,
		IGMediaID:          "contested",
		MediaType:          model.MediaTypeImage,
		LikesCount:         1,
		PostedAt:           postedAt,
	}).Error; err != nil {
		t.Fatalf("预置行失败: %v", err)
	}

	// 输家不能因唯一索引冲突报错，必须落到更新路径
	row, err := repo.Upsert(ctx, &model.InstagramMedia{
		InstagramAccountID: 1,
		IGMediaID:          "contested",
		MediaType:          model.MediaTypeImage,
		LikesCount:         5,
		CommentsCount:      3,
		PostedAt:           postedAt.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if row.LikesCount != 5 || row.CommentsCount != 3 {
		t.Errorf("counts = (%d,%d), want (5,3)", row.LikesCount, row.CommentsCount)
	}
	if !row.PostedAt.Equal(postedAt) {
		t.Errorf("posted_at = %v, want %v (冲突路径不得改发布时间)", row.PostedAt, postedAt)
	}

	var count int64
	db.Model(&model.InstagramMedia{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestInstagramMediaRepo_ListByAccount(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewInstagramMediaRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		mediaType := model.MediaTypeImage
		if i%3 == 0 {
			mediaType = model.MediaTypeVideo
		}
		repo.Upsert(ctx, &model.InstagramMedia{
			InstagramAccountID: 1,
			IGMediaID:          fmt.Sprintf("m%02d", i),
			MediaType:          mediaType,
			PostedAt:           base.Add(time.Duration(i) * time.Hour),
		})
	}
	// 其他账号的数据不应串台
	repo.Upsert(ctx, &model.InstagramMedia{
		InstagramAccountID: 2,
		IGMediaID:          "other",
		MediaType:          model.MediaTypeImage,
		PostedAt:           base,
	})

	items, total, err := repo.ListByAccount(ctx, 1, MediaFilter{Page: 1, PageSize: 24})
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
	if len(items) != 24 {
		t.Errorf("len(items) = %d, want 24", len(items))
	}
	// 按发布时间倒序
	if items[0].IGMediaID != "m29" {
		t.Errorf("first = %s, want m29", items[0].IGMediaID)
	}

	// 第二页
	items, _, _ = repo.ListByAccount(ctx, 1, MediaFilter{Page: 2, PageSize: 24})
	if len(items) != 6 {
		t.Errorf("第二页 len(items) = %d, want 6", len(items))
	}

	// 类型筛选
	items, total, _ = repo.ListByAccount(ctx, 1, MediaFilter{MediaType: model.MediaTypeVideo, Page: 1, PageSize: 24})
	if total != 10 {
		t.Errorf("video total = %d, want 10", total)
	}
	for _, m := range items {
		if m.MediaType != model.MediaTypeVideo {
			t.Errorf("media_type = %s, want VIDEO", m.MediaType)
		}
	}
}

func TestInstagramMediaRepo_ListRecent(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewInstagramMediaRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		repo.Upsert(ctx, &model.InstagramMedia{
			InstagramAccountID: 1,
			IGMediaID:          fmt.Sprintf("r%02d", i),
			MediaType:          model.MediaTypeImage,
			PostedAt:           base.Add(time.Duration(i) * time.Hour),
		})
	}

	items, err := repo.ListRecent(ctx, 1, 12)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(items) != 12 {
		t.Errorf("len(items) = %d, want 12", len(items))
	}
	if items[0].IGMediaID != "r19" {
		t.Errorf("first = %s, want r19", items[0].IGMediaID)
	}
}
