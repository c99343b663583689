package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *hierarchy.Index {
	depts := []models.Department{
		{ID: "HQ", Name: "Trụ sở chính", Level: models.LevelHQ, ManagerID: "ADMIN"},
		{ID: "DEP01", Name: "Phòng 1", Level: models.LevelDepartment, ParentID: "HQ", ManagerID: "M01"},
		{ID: "TEAM01", Name: "Nhóm 1", Level: models.LevelTeam, ParentID: "DEP01", ManagerID: "TL01"},
		{ID: "DEP02", Name: "Phòng 2", Level: models.LevelDepartment, ParentID: "HQ", ManagerID: "M02"},
	}
	users := []models.User{
		{ID: "ADMIN", Name: "Quản trị", Role: models.RoleDirector, DepartmentID: "HQ"},
		{ID: "M01", Name: "Trần Minh", Role: models.RoleManager, DepartmentID: "DEP01"},
		{ID: "TL01", Name: "Phạm Tú", Role: models.RoleTeamLeader, DepartmentID: "TEAM01"},
		{ID: "E01", Name: "Bình", Role: models.RoleEmployee, DepartmentID: "TEAM01"},
		{ID: "E02", Name: "An", Role: models.RoleEmployee, DepartmentID: "DEP01"},
		{ID: "M02", Name: "Vũ Lan", Role: models.RoleManager, DepartmentID: "DEP02"},
		{ID: "E03", Name: "Cường", Role: models.RoleEmployee, DepartmentID: "DEP02"},
	}
	return hierarchy.NewIndex(users, depts)
}

func user(t *testing.T, ix *hierarchy.Index, id string) models.User {
	t.Helper()
	u, ok := ix.User(id)
	require.True(t, ok)
	return u
}

func direct(id, from, to, ts string) models.Message {
	return models.Message{ID: id, SenderID: from, ReceiverKind: models.ReceiverUser, ReceiverID: to, Timestamp: ts}
}

func ids(msgs []models.Message) []string {
	out := []string{}
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestConversation(t *testing.T) {
	ix := testIndex()
	msgs := []models.Message{
		direct("m3", "E01", "M01", "2024-03-03T00:00:00.000Z"),
		direct("m1", "M01", "E01", "2024-03-01T00:00:00.000Z"),
		direct("m2", "E02", "M01", "2024-03-02T00:00:00.000Z"),
		direct("m4", "E01", "ADMIN", "2024-03-04T00:00:00.000Z"),
		{ID: "b1", SenderID: "E01", ReceiverKind: models.ReceiverAll, ReceiverID: models.BroadcastAll, Timestamp: "2024-03-05T00:00:00.000Z"},
	}

	assert.Equal(t, []string{"m1", "m3"}, ids(Conversation(user(t, ix, "M01"), "E01", msgs)))
	// Directors read what was addressed to the root account.
	assert.Equal(t, []string{"m4"}, ids(Conversation(user(t, ix, "ADMIN"), "E01", msgs)))
}

func TestInbox(t *testing.T) {
	ix := testIndex()
	msgs := []models.Message{
		direct("m1", "M01", "E01", "2024-03-01T00:00:00.000Z"),
		{ID: "b1", SenderID: "ADMIN", ReceiverKind: models.ReceiverAll, ReceiverID: models.BroadcastAll, Timestamp: "2024-03-02T00:00:00.000Z"},
		{ID: "l1", SenderID: "M01", ReceiverKind: models.ReceiverList, ReceiverIDs: []string{"E01", "E02"}, Timestamp: "2024-03-03T00:00:00.000Z", IsRead: true},
		{ID: "l2", SenderID: "M01", ReceiverKind: models.ReceiverList, ReceiverIDs: []string{"E02"}, Timestamp: "2024-03-04T00:00:00.000Z"},
		direct("m2", "E01", "M01", "2024-03-05T00:00:00.000Z"),
	}

	inbox := Inbox(user(t, ix, "E01"), msgs)
	assert.Equal(t, []string{"l1", "b1", "m1"}, ids(inbox))
	assert.Equal(t, 2, UnreadCount(inbox))
}

func TestChatContacts(t *testing.T) {
	ix := testIndex()
	msgs := []models.Message{
		direct("m1", "E03", "E01", "2024-03-01T00:00:00.000Z"),
		direct("m2", "E01", "ADMIN", "2024-03-02T00:00:00.000Z"),
	}
	e01 := user(t, ix, "E01")

	contacts := ChatContacts(e01, ix.Users(), msgs, ContactQuery{})
	assert.ElementsMatch(t, []string{"TL01", "E03"}, userIDs(contacts))

	contacts = ChatContacts(e01, ix.Users(), msgs, ContactQuery{Role: models.RoleEmployee})
	assert.Equal(t, []string{"E03"}, userIDs(contacts))

	contacts = ChatContacts(e01, ix.Users(), msgs, ContactQuery{Search: "m0"})
	assert.ElementsMatch(t, []string{"M01", "M02"}, userIDs(contacts))

	contacts = ChatContacts(e01, ix.Users(), msgs, ContactQuery{Search: "bình"})
	assert.Empty(t, contacts)
}

func userIDs(users []models.User) []string {
	out := []string{}
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestBroadcastRecipients(t *testing.T) {
	ix := testIndex()
	admin := user(t, ix, "ADMIN")
	m01 := user(t, ix, "M01")

	all := BroadcastRecipients(ix, m01, TargetAll, "")
	assert.ElementsMatch(t, []string{"TL01", "E01", "E02"}, all)

	dept := BroadcastRecipients(ix, admin, TargetDept, "DEP01")
	assert.ElementsMatch(t, []string{"M01", "TL01", "E01", "E02"}, dept)

	team := BroadcastRecipients(ix, m01, TargetDept, "TEAM01")
	assert.ElementsMatch(t, []string{"TL01", "E01"}, team)

	assert.Equal(t, []string{"E03"}, BroadcastRecipients(ix, admin, TargetUser, "E03"))
	assert.Empty(t, BroadcastRecipients(ix, admin, TargetUser, "ADMIN"))
	assert.Empty(t, BroadcastRecipients(ix, admin, TargetDept, ""))
}

type recordingSink struct {
	mu      sync.Mutex
	updates []InboxUpdate
	fail    bool
	closed  bool
}

func (s *recordingSink) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broken pipe")
	}
	s.updates = append(s.updates, v.(InboxUpdate))
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestHubPublishesOnlyChanges(t *testing.T) {
	ix := testIndex()
	hub := NewHub()
	sink := &recordingSink{}
	unsubscribe := hub.Subscribe(user(t, ix, "E01"), sink)

	msgs := []models.Message{direct("m1", "M01", "E01", "2024-03-01T00:00:00.000Z")}
	hub.Publish(msgs)
	hub.Publish(msgs)
	require.Len(t, sink.updates, 1)
	assert.Equal(t, 1, sink.updates[0].Unread)

	msgs = append(msgs, direct("m2", "E02", "E03", "2024-03-02T00:00:00.000Z"))
	hub.Publish(msgs)
	assert.Len(t, sink.updates, 1)

	unsubscribe()
	assert.Equal(t, 0, hub.Count())
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	ix := testIndex()
	hub := NewHub()
	sink := &recordingSink{fail: true}
	hub.Subscribe(user(t, ix, "E01"), sink)

	hub.Publish([]models.Message{direct("m1", "M01", "E01", "2024-03-01T00:00:00.000Z")})
	assert.Equal(t, 0, hub.Count())
	assert.True(t, sink.closed)
}

func TestPollerDropsOverlappingRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]models.Message, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return []models.Message{direct("m1", "M01", "E01", "2024-03-01T00:00:00.000Z")}, nil
	}
	p := NewPoller(fetch, time.Hour, nil)

	done := make(chan bool)
	go func() { done <- p.Refresh(context.Background()) }()
	<-started

	assert.False(t, p.Refresh(context.Background()))
	assert.Equal(t, int64(1), p.Dropped())

	close(release)
	assert.True(t, <-done)
	assert.Len(t, p.Snapshot(), 1)
	assert.True(t, p.Refresh(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]models.Message, error) {
		calls.Add(1)
		return nil, errors.New("store down")
	}
	p := NewPoller(fetch, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	assert.Error(t, p.LastError())
	assert.Nil(t, p.Snapshot())
}
