package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"science-chat-go/internal/model"
)

func TestThreadRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "t-1", "What is dark matter?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.MessageCount != 0 {
		t.Fatalf("MessageCount = %d, want 0", created.MessageCount)
	}
	if created.UpdatedAt.Before(created.CreatedAt) {
		t.Fatalf("UpdatedAt %v before CreatedAt %v", created.UpdatedAt, created.CreatedAt)
	}

	got, err := repo.Get(ctx, "t-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "What is dark matter?" {
		t.Fatalf("Title = %q, want %q", got.Title, "What is dark matter?")
	}
}

func TestThreadRepository_CreateDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "t-1", "a", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(ctx, "t-1", "b", "")
	if !errors.Is(err, ErrThreadExists) {
		t.Fatalf("err = %v, want ErrThreadExists", err)
	}
}

func TestThreadRepository_GetNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("err = %v, want ErrThreadNotFound", err)
	}
}

func TestThreadRepository_UpdateMetadata(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, "t-1", "title", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	if err := repo.UpdateMetadata(ctx, "t-1", 4, "latest reply"); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	got, err := repo.Get(ctx, "t-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MessageCount != 4 {
		t.Fatalf("MessageCount = %d, want 4", got.MessageCount)
	}
	if got.Preview != "latest reply" {
		t.Fatalf("Preview = %q, want %q", got.Preview, "latest reply")
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("UpdatedAt %v not after %v", got.UpdatedAt, created.UpdatedAt)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt changed: %v -> %v", created.CreatedAt, got.CreatedAt)
	}
}

func TestThreadRepository_UpdateMetadataNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)

	err := repo.UpdateMetadata(context.Background(), "missing", 2, "p")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("err = %v, want ErrThreadNotFound", err)
	}
}

func TestThreadRepository_ListPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("t-%d", i)
		if _, err := repo.Create(ctx, id, id, ""); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
		// 铺设确定性的活跃时间：t-5 最近活跃
		err := db.Model(&model.Thread{}).Where("thread_id = ?", id).
			Update("updated_at", base.Add(time.Duration(i)*time.Minute)).Error
		if err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	page1, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List page1: %v", err)
	}
	page2, err := repo.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List page2: %v", err)
	}
	page3, err := repo.List(ctx, 2, 4)
	if err != nil {
		t.Fatalf("List page3: %v", err)
	}

	var got []string
	for _, th := range append(append(page1, page2...), page3...) {
		got = append(got, th.ThreadID)
	}
	want := []string{"t-5", "t-4", "t-3", "t-2", "t-1"}
	if len(got) != len(want) {
		t.Fatalf("got %d threads, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestThreadRepository_ListZeroLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "t-1", "a", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	threads, err := repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("len = %d, want 0", len(threads))
	}
}

func TestThreadRepository_ListNegativeParams(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)

	if _, err := repo.List(context.Background(), -1, 0); err == nil {
		t.Fatal("expected error for negative limit")
	}
	if _, err := repo.List(context.Background(), 1, -1); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestThreadRepository_DeleteIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	// 删除不存在的线程不是错误
	if err := repo.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}

	if _, err := repo.Create(ctx, "t-1", "a", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "t-1"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrThreadNotFound", err)
	}
	if err := repo.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("Delete again: %v", err)
	}
}

func TestThreadRepository_DeleteCascadesMessages(t *testing.T) {
	db := newTestDB(t)
	threadRepo := NewThreadRepository(db)
	messageRepo := NewMessageRepository(db)
	ctx := context.Background()

	seedThread(t, db, "t-1")
	msgs := []model.ChatMessage{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi"},
	}
	if _, err := messageRepo.AppendNew(ctx, "t-1", msgs); err != nil {
		t.Fatalf("AppendNew: %v", err)
	}

	if err := threadRepo.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	loaded, err := messageRepo.LoadOrdered(ctx, "t-1")
	if err != nil {
		t.Fatalf("LoadOrdered: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("len = %d, want 0 after cascade delete", len(loaded))
	}

	var rows int64
	if err := db.Model(&model.Message{}).Where("thread_id = ?", "t-1").Count(&rows).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 0 {
		t.Fatalf("message rows = %d, want 0", rows)
	}
}
