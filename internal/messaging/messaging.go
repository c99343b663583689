// Package messaging rebuilds chats and notices from the flat message list.
package messaging

import (
	"sort"
	"strings"

	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/models"
)

// receivesAs reports whether a direct message to receiverID reaches user.
// Directors also read what was sent to the root account.
func receivesAs(user models.User, receiverID string) bool {
	return receiverID == user.ID || (user.Role == models.RoleDirector && receiverID == models.AdminID)
}

// Conversation returns direct messages between actor and otherID, oldest first.
func Conversation(actor models.User, otherID string, msgs []models.Message) []models.Message {
	out := []models.Message{}
	for _, m := range msgs {
		if m.ReceiverKind != models.ReceiverUser {
			continue
		}
		if m.SenderID == actor.ID && m.ReceiverID == otherID {
			out = append(out, m)
			continue
		}
		if m.SenderID == otherID && receivesAs(actor, m.ReceiverID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Receives reports whether m lands in user's inbox. Users never receive
// their own messages.
func Receives(user models.User, m models.Message) bool {
	if m.SenderID == user.ID {
		return false
	}
	if m.ReceiverKind == models.ReceiverUser {
		return receivesAs(user, m.ReceiverID)
	}
	return m.AddressedTo(user.ID)
}

// Inbox returns everything addressed to user, newest first.
func Inbox(user models.User, msgs []models.Message) []models.Message {
	out := []models.Message{}
	for _, m := range msgs {
		if Receives(user, m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func UnreadCount(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if !m.IsRead {
			n++
		}
	}
	return n
}

// ContactQuery narrows the chat contact list.
type ContactQuery struct {
	Search string          `form:"search"`
	Role   models.UserRole `form:"role"`
}

// ChatContacts lists who actor can chat with. A search term matches anyone by
// name or id. Without one, the list is chat partners plus colleagues in the
// same department. The role filter applies only without a search term.
func ChatContacts(actor models.User, users []models.User, msgs []models.Message, q ContactQuery) []models.User {
	out := []models.User{}
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		for _, u := range users {
			if u.ID == actor.ID {
				continue
			}
			if strings.Contains(strings.ToLower(u.Name), term) || strings.Contains(strings.ToLower(u.ID), term) {
				out = append(out, u)
			}
		}
		return out
	}

	partners := make(map[string]bool)
	for _, m := range msgs {
		if m.ReceiverKind != models.ReceiverUser {
			continue
		}
		if m.SenderID == actor.ID && m.ReceiverID != models.AdminID {
			partners[m.ReceiverID] = true
		}
		if m.ReceiverID == actor.ID {
			partners[m.SenderID] = true
		}
	}
	if actor.DepartmentID != "" {
		for _, u := range users {
			if u.DepartmentID == actor.DepartmentID && u.ID != actor.ID {
				partners[u.ID] = true
			}
		}
	}

	for _, u := range users {
		if !partners[u.ID] {
			continue
		}
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		out = append(out, u)
	}
	return out
}

type TargetKind string

const (
	TargetAll  TargetKind = "ALL"
	TargetDept TargetKind = "DEPT"
	TargetUser TargetKind = "USER"
)

// BroadcastRecipients resolves a notice target to user ids, never including
// the actor. ALL is every subordinate. DEPT is every visible user placed in
// the department subtree plus the managers of those departments. USER is the
// single id given.
func BroadcastRecipients(ix *hierarchy.Index, actor models.User, kind TargetKind, targetID string) []string {
	var out []string
	seen := map[string]bool{actor.ID: true}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	switch kind {
	case TargetAll:
		for _, u := range ix.Subordinates(actor) {
			add(u.ID)
		}
	case TargetUser:
		add(targetID)
	case TargetDept:
		if targetID == "" {
			break
		}
		depts := ix.Subtree(targetID)
		for _, u := range ix.Visible(actor) {
			if u.DepartmentID != "" && depts[u.DepartmentID] {
				add(u.ID)
			}
		}
		for _, d := range ix.Departments() {
			if depts[d.ID] {
				add(d.ManagerID)
			}
		}
	}
	return out
}
