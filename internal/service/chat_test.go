package service

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"lan_messenger/internal/domain"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

// memMessageRepo is an in-memory stand-in for the postgres repository.
type memMessageRepo struct {
	messages map[string]*domain.Message
	order    []string
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[string]*domain.Message)}
}

func (r *memMessageRepo) Create(_ context.Context, message *domain.Message) error {
	copied := *message
	r.messages[message.ID] = &copied
	r.order = append(r.order, message.ID)
	return nil
}

func (r *memMessageRepo) History(_ context.Context) ([]*domain.Message, error) {
	out := make([]*domain.Message, 0, len(r.order))
	for _, id := range r.order {
		if msg, ok := r.messages[id]; ok {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (r *memMessageRepo) UpdateContent(_ context.Context, id, content string) error {
	if msg, ok := r.messages[id]; ok {
		msg.Content = content
	}
	return nil
}

func (r *memMessageRepo) Delete(_ context.Context, id string) (*domain.Message, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	delete(r.messages, id)
	return msg, nil
}

func (r *memMessageRepo) SetReadBy(_ context.Context, id string, readBy []string) error {
	if msg, ok := r.messages[id]; ok {
		msg.ReadBy = readBy
	}
	return nil
}

func (r *memMessageRepo) SetReactions(_ context.Context, id string, reactions map[string][]string) error {
	if msg, ok := r.messages[id]; ok {
		msg.Reactions = reactions
	}
	return nil
}

func (r *memMessageRepo) MediaMessages(ctx context.Context, mediaType string, newestFirst bool) ([]*domain.Message, error) {
	all, _ := r.History(ctx)
	var out []*domain.Message
	for _, msg := range all {
		if msg.Type == domain.MessageTypeVoice || !domain.IsMediaType(msg.Type) {
			continue
		}
		if mediaType != "" && mediaType != "all" && msg.Type != mediaType {
			continue
		}
		out = append(out, msg)
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (r *memMessageRepo) MediaRefs(ctx context.Context) ([]domain.MediaRef, error) {
	all, _ := r.History(ctx)
	var refs []domain.MediaRef
	for _, msg := range all {
		if domain.IsMediaType(msg.Type) {
			refs = append(refs, domain.MediaRef{Key: msg.Content, Type: msg.Type})
		}
	}
	return refs, nil
}

func (r *memMessageRepo) CountMedia(ctx context.Context) (int64, error) {
	refs, _ := r.MediaRefs(ctx)
	return int64(len(refs)), nil
}

// fakeMedia records removals; only the methods the chat service touches
// are implemented.
type fakeMedia struct {
	MediaService
	removed []string
}

func (f *fakeMedia) NormalizeKey(stored, msgType string) string {
	return (&mediaService{}).NormalizeKey(stored, msgType)
}

func (f *fakeMedia) Remove(key, msgType string) {
	f.removed = append(f.removed, f.NormalizeKey(key, msgType))
}

func newTestChat() (ChatService, *memMessageRepo, *fakeMedia) {
	repo := newMemMessageRepo()
	media := &fakeMedia{}
	return NewChatService(repo, media, logger.New("error")), repo, media
}

func seedMessage(repo *memMessageRepo, id, username, msgType, content string, age time.Duration) {
	repo.Create(context.Background(), &domain.Message{
		ID:        id,
		Username:  username,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now().Add(-age),
		ReadBy:    []string{},
		Reactions: map[string][]string{},
	})
}

func TestSendAssignsIdentityAndEmptySets(t *testing.T) {
	chat, repo, _ := newTestChat()

	msg, preview, err := chat.Send(context.Background(), "alice", domain.MessageTypeText, "hello", nil, 0, "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("Send() left the id empty")
	}
	if preview != nil {
		t.Fatalf("Send() resolved a preview without reply_to")
	}
	if msg.ReadBy == nil || len(msg.ReadBy) != 0 {
		t.Fatalf("ReadBy = %v, want empty slice", msg.ReadBy)
	}
	if msg.Reactions == nil || len(msg.Reactions) != 0 {
		t.Fatalf("Reactions = %v, want empty map", msg.Reactions)
	}
	if stored, _ := repo.GetByID(context.Background(), msg.ID); stored == nil {
		t.Fatalf("message was not persisted")
	}
}

func TestSendNormalizesLegacyMediaKey(t *testing.T) {
	chat, _, _ := newTestChat()

	msg, _, err := chat.Send(context.Background(), "alice", domain.MessageTypeImage, "cat.png", nil, 123, "cat.png")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Content != "images/cat.png" {
		t.Fatalf("Content = %q, want images/cat.png", msg.Content)
	}
}

func TestSendResolvesReplyPreview(t *testing.T) {
	chat, repo, _ := newTestChat()
	seedMessage(repo, "m1", "bob", domain.MessageTypeText, "original", time.Minute)

	replyTo := "m1"
	_, preview, err := chat.Send(context.Background(), "alice", domain.MessageTypeText, "reply", &replyTo, 0, "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	want := &domain.ReplyPreview{ID: "m1", User: "bob", Msg: "original", Type: domain.MessageTypeText}
	if !reflect.DeepEqual(preview, want) {
		t.Fatalf("preview = %+v, want %+v", preview, want)
	}
}

func TestSendDanglingReplyHasNoPreview(t *testing.T) {
	chat, _, _ := newTestChat()

	replyTo := "gone"
	_, preview, err := chat.Send(context.Background(), "alice", domain.MessageTypeText, "reply", &replyTo, 0, "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if preview != nil {
		t.Fatalf("preview = %+v, want nil for a dangling reply_to", preview)
	}
}

func TestEditRules(t *testing.T) {
	chat, repo, _ := newTestChat()
	seedMessage(repo, "fresh", "alice", domain.MessageTypeText, "hi", time.Minute)
	seedMessage(repo, "stale", "alice", domain.MessageTypeText, "hi", 11*time.Minute)
	seedMessage(repo, "other", "bob", domain.MessageTypeText, "hi", time.Minute)

	ctx := context.Background()

	if err := chat.Edit(ctx, "alice", "fresh", "edited"); err != nil {
		t.Fatalf("Edit() fresh own message error = %v", err)
	}
	if msg, _ := repo.GetByID(ctx, "fresh"); msg.Content != "edited" {
		t.Fatalf("content = %q, want edited", msg.Content)
	}

	if err := chat.Edit(ctx, "alice", "stale", "x"); err != apperrors.ErrEditWindowExpired {
		t.Fatalf("Edit() stale = %v, want ErrEditWindowExpired", err)
	}
	if err := chat.Edit(ctx, "alice", "other", "x"); err != apperrors.ErrNotMessageOwner {
		t.Fatalf("Edit() other's message = %v, want ErrNotMessageOwner", err)
	}
	if err := chat.Edit(ctx, "alice", "missing", "x"); err != apperrors.ErrMessageNotFound {
		t.Fatalf("Edit() unknown id = %v, want ErrMessageNotFound", err)
	}
}

func TestDeleteOwnerOnlyAndMediaCleanup(t *testing.T) {
	chat, repo, media := newTestChat()
	seedMessage(repo, "t1", "alice", domain.MessageTypeText, "hi", time.Minute)
	seedMessage(repo, "v1", "alice", domain.MessageTypeVoice, "voice/a.ogg", time.Minute)
	seedMessage(repo, "b1", "bob", domain.MessageTypeText, "hi", time.Minute)

	deleted, err := chat.Delete(context.Background(), "alice", []string{"t1", "v1", "b1", "missing"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if want := []string{"t1", "v1"}; !reflect.DeepEqual(deleted, want) {
		t.Fatalf("deleted = %v, want %v", deleted, want)
	}
	if msg, _ := repo.GetByID(context.Background(), "b1"); msg == nil {
		t.Fatalf("bob's message was deleted by alice")
	}
	if want := []string{"voice/a.ogg"}; !reflect.DeepEqual(media.removed, want) {
		t.Fatalf("removed media = %v, want %v", media.removed, want)
	}
}

func TestMarkReadSkipsAuthorAndDuplicates(t *testing.T) {
	chat, repo, _ := newTestChat()
	seedMessage(repo, "own", "alice", domain.MessageTypeText, "hi", time.Minute)
	seedMessage(repo, "m1", "bob", domain.MessageTypeText, "hi", time.Minute)

	ctx := context.Background()

	receipts, err := chat.MarkRead(ctx, "alice", []string{"own", "m1", "missing"})
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if len(receipts) != 1 || receipts[0].ID != "m1" {
		t.Fatalf("receipts = %+v, want one receipt for m1", receipts)
	}
	if want := []string{"alice"}; !reflect.DeepEqual(receipts[0].ReadBy, want) {
		t.Fatalf("ReadBy = %v, want %v", receipts[0].ReadBy, want)
	}

	// A second pass changes nothing.
	receipts, err = chat.MarkRead(ctx, "alice", []string{"m1"})
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if len(receipts) != 0 {
		t.Fatalf("repeat MarkRead produced receipts: %+v", receipts)
	}
}

func TestReactionsIdempotentAddAndRemove(t *testing.T) {
	chat, repo, _ := newTestChat()
	seedMessage(repo, "m1", "bob", domain.MessageTypeText, "hi", time.Minute)

	ctx := context.Background()

	reactions, err := chat.AddReaction(ctx, "alice", "m1", "👍")
	if err != nil {
		t.Fatalf("AddReaction() error = %v", err)
	}
	reactions, err = chat.AddReaction(ctx, "alice", "m1", "👍")
	if err != nil {
		t.Fatalf("AddReaction() repeat error = %v", err)
	}
	if want := []string{"alice"}; !reflect.DeepEqual(reactions["👍"], want) {
		t.Fatalf("reactions[👍] = %v, want %v", reactions["👍"], want)
	}

	reactions, err = chat.RemoveReaction(ctx, "alice", "m1", "👍")
	if err != nil {
		t.Fatalf("RemoveReaction() error = %v", err)
	}
	if _, ok := reactions["👍"]; ok {
		t.Fatalf("empty emoji entry kept: %v", reactions)
	}
}

func TestReactionUnknownMessageReturnsNil(t *testing.T) {
	chat, _, _ := newTestChat()

	reactions, err := chat.AddReaction(context.Background(), "alice", "missing", "👍")
	if err != nil {
		t.Fatalf("AddReaction() error = %v", err)
	}
	if reactions != nil {
		t.Fatalf("reactions = %v, want nil for unknown id", reactions)
	}
}
