package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"science-chat-go/internal/model"
)

// newTestDB 为每个测试创建独立的内存 sqlite 数据库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Thread{}, &model.Message{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// seedThread 创建一条线程记录供消息测试使用。
func seedThread(t *testing.T, db *gorm.DB, threadID string) {
	t.Helper()
	if _, err := NewThreadRepository(db).Create(context.Background(), threadID, "Untitled", ""); err != nil {
		t.Fatalf("seed thread %s: %v", threadID, err)
	}
}
