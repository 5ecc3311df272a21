package app

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mythos/pkg/auth"
	"mythos/pkg/domain"
	"mythos/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	a, err := New(Config{Store: store.NewMemoryStore(), Tokens: tokens})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func registerUser(t *testing.T, a *App, name, email string) domain.Identity {
	t.Helper()
	user, _, err := a.Register(name, email, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return domain.Identity{UserID: user.ID, Email: user.Email}
}

func createProject(t *testing.T, a *App, owner domain.Identity, collaborators ...string) domain.Project {
	t.Helper()
	p, err := a.CreateProject(owner, CreateProjectInput{
		Title:         "The Long Night",
		Collaborators: collaborators,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"  one two   three ", 3},
		{"line\nbreaks\tand tabs", 4},
	}
	for _, tc := range tests {
		if got := CountWords(tc.text); got != tc.want {
			t.Fatalf("CountWords(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "Ana", "ana@example.com")
	_, _, err := a.Register("Ana Again", "Ana@Example.com", "password123")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("duplicate register err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "Ana", "ana@example.com")
	if _, _, err := a.Login("ana@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("login err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := a.Login("nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestCollaboratorAccessButNoDelete(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	collab := registerUser(t, a, "Collab", "collab@example.com")
	outsider := registerUser(t, a, "Outsider", "outsider@example.com")
	p := createProject(t, a, owner, "collab@example.com")

	if _, err := a.GetProject(collab, p.ID); err != nil {
		t.Fatalf("collaborator GetProject: %v", err)
	}
	if _, err := a.UpdateProject(collab, p.ID, ProjectPatch{Genre: strp("fantasy")}); err != nil {
		t.Fatalf("collaborator UpdateProject: %v", err)
	}

	var nf *NotFoundError
	if err := a.DeleteProject(collab, p.ID); !errors.As(err, &nf) {
		t.Fatalf("collaborator DeleteProject err = %v, want not-found", err)
	}
	if _, err := a.GetProject(outsider, p.ID); !errors.As(err, &nf) {
		t.Fatalf("outsider GetProject err = %v, want not-found", err)
	}
	if err := a.DeleteProject(owner, p.ID); err != nil {
		t.Fatalf("owner DeleteProject: %v", err)
	}
	if _, err := a.GetProject(owner, p.ID); !errors.As(err, &nf) {
		t.Fatalf("deleted project GetProject err = %v, want not-found", err)
	}
}

func TestChapterVersionsAndWordCounts(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)

	c, err := a.CreateChapter(owner, CreateChapterInput{
		ProjectID: p.ID,
		Title:     "Chapter One",
		Content:   "hello world",
		Order:     intp(1),
	})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if c.WordCount != 2 {
		t.Fatalf("chapter wordCount = %d, want 2", c.WordCount)
	}
	got, err := a.GetProject(owner, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.WordCount != 2 {
		t.Fatalf("project wordCount = %d, want 2", got.WordCount)
	}

	c, err = a.UpdateChapter(owner, c.ID, ChapterPatch{Content: strp("one two three")})
	if err != nil {
		t.Fatalf("update chapter: %v", err)
	}
	if c.WordCount != 3 {
		t.Fatalf("updated chapter wordCount = %d, want 3", c.WordCount)
	}
	got, err = a.GetProject(owner, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.WordCount != 3 {
		t.Fatalf("project wordCount after update = %d, want 3", got.WordCount)
	}

	versions, err := a.ListChapterVersions(owner, c.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}
	seen := map[int]bool{}
	for _, v := range versions {
		if seen[v.Version] {
			t.Fatalf("duplicate version number %d", v.Version)
		}
		seen[v.Version] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("version numbers = %v, want {1, 2}", seen)
	}
}

func TestRestoreChapterVersion(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)
	c, err := a.CreateChapter(owner, CreateChapterInput{
		ProjectID: p.ID,
		Title:     "Chapter One",
		Content:   "original text here",
		Order:     intp(1),
	})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if _, err := a.UpdateChapter(owner, c.ID, ChapterPatch{Content: strp("rewritten")}); err != nil {
		t.Fatalf("update chapter: %v", err)
	}

	versions, err := a.ListChapterVersions(owner, c.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	var first domain.ChapterVersion
	for _, v := range versions {
		if v.Version == 1 {
			first = v
		}
	}
	if first.ID == "" {
		t.Fatal("version 1 not found")
	}

	restored, err := a.RestoreChapterVersion(owner, c.ID, first.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Content != "original text here" {
		t.Fatalf("restored content = %q", restored.Content)
	}
	if restored.WordCount != 3 {
		t.Fatalf("restored wordCount = %d, want 3", restored.WordCount)
	}

	versions, err = a.ListChapterVersions(owner, c.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("got %d versions after restore, want 3", len(versions))
	}
	newest := versions[0]
	if newest.Version != 3 {
		t.Fatalf("newest version = %d, want 3", newest.Version)
	}
	if !strings.Contains(newest.ChangeDescription, "version 1") {
		t.Fatalf("restore note = %q, want mention of version 1", newest.ChangeDescription)
	}

	// restoring a version from another chapter fails as not-found
	other, err := a.CreateChapter(owner, CreateChapterInput{
		ProjectID: p.ID,
		Title:     "Chapter Two",
		Order:     intp(2),
	})
	if err != nil {
		t.Fatalf("create second chapter: %v", err)
	}
	var nf *NotFoundError
	if _, err := a.RestoreChapterVersion(owner, other.ID, first.ID); !errors.As(err, &nf) {
		t.Fatalf("cross-chapter restore err = %v, want not-found", err)
	}
}

func TestChapterDeleteRefreshesAggregate(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)
	c1, err := a.CreateChapter(owner, CreateChapterInput{ProjectID: p.ID, Title: "One", Content: "a b c", Order: intp(1)})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if _, err := a.CreateChapter(owner, CreateChapterInput{ProjectID: p.ID, Title: "Two", Content: "d e", Order: intp(2)}); err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if err := a.DeleteChapter(owner, c1.ID); err != nil {
		t.Fatalf("delete chapter: %v", err)
	}
	got, err := a.GetProject(owner, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.WordCount != 2 {
		t.Fatalf("project wordCount = %d, want 2", got.WordCount)
	}
}

func TestWorldElementTypeValidation(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)

	var ve *ValidationError
	_, err := a.CreateWorldElement(owner, CreateWorldElementInput{
		ProjectID: p.ID,
		Name:      "Hollow Keep",
		Type:      "dungeon",
	})
	if !errors.As(err, &ve) {
		t.Fatalf("invalid type err = %v, want validation error", err)
	}

	e, err := a.CreateWorldElement(owner, CreateWorldElementInput{
		ProjectID: p.ID,
		Name:      "Hollow Keep",
		Type:      "location",
	})
	if err != nil {
		t.Fatalf("create world element: %v", err)
	}
	if _, err := a.UpdateWorldElement(owner, e.ID, WorldElementPatch{Type: strp("castle")}); !errors.As(err, &ve) {
		t.Fatalf("invalid type on update err = %v, want validation error", err)
	}

	// unrecognized filter is ignored, not an error
	elements, err := a.ListWorldElements(owner, p.ID, "castle")
	if err != nil {
		t.Fatalf("list world elements: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(elements))
	}
}

func TestChatDeletePermissions(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	collab := registerUser(t, a, "Collab", "collab@example.com")
	other := registerUser(t, a, "Other", "other@example.com")
	p := createProject(t, a, owner, "collab@example.com", "other@example.com")

	msg, err := a.PostChatMessage(collab, p.ID, PostChatMessageInput{Message: "first draft is up"})
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if msg.UserName != "Collab" || msg.UserEmail != "collab@example.com" {
		t.Fatalf("author fields = %q/%q", msg.UserName, msg.UserEmail)
	}

	if err := a.DeleteChatMessage(other, p.ID, msg.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unrelated collaborator delete err = %v, want ErrForbidden", err)
	}
	if err := a.DeleteChatMessage(collab, p.ID, msg.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}

	msg, err = a.PostChatMessage(collab, p.ID, PostChatMessageInput{Message: "another"})
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if err := a.DeleteChatMessage(owner, p.ID, msg.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestChatHistoryWindowAndOrder(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)

	for i := 0; i < chatHistoryLimit+5; i++ {
		if _, err := a.PostChatMessage(owner, p.ID, PostChatMessageInput{
			Message: fmt.Sprintf("message %d", i),
		}); err != nil {
			t.Fatalf("post message %d: %v", i, err)
		}
	}

	msgs, err := a.ListChatMessages(owner, p.ID, "")
	if err != nil {
		t.Fatalf("list chat messages: %v", err)
	}
	if len(msgs) != chatHistoryLimit {
		t.Fatalf("got %d messages, want %d", len(msgs), chatHistoryLimit)
	}
	if msgs[0].Message != "message 5" {
		t.Fatalf("oldest retained message = %q, want %q", msgs[0].Message, "message 5")
	}
	if got, want := msgs[len(msgs)-1].Message, fmt.Sprintf("message %d", chatHistoryLimit+4); got != want {
		t.Fatalf("newest message = %q, want %q", got, want)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].CreatedAt.After(msgs[i].CreatedAt) {
			t.Fatalf("messages not oldest-first at index %d", i)
		}
	}
}

func TestChatScopedByChapter(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)
	ch, err := a.CreateChapter(owner, CreateChapterInput{ProjectID: p.ID, Title: "One", Order: intp(1)})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	if _, err := a.PostChatMessage(owner, p.ID, PostChatMessageInput{Message: "general note"}); err != nil {
		t.Fatalf("post general message: %v", err)
	}
	if _, err := a.PostChatMessage(owner, p.ID, PostChatMessageInput{Message: "chapter note", ChapterID: ch.ID}); err != nil {
		t.Fatalf("post chapter message: %v", err)
	}

	general, err := a.ListChatMessages(owner, p.ID, "")
	if err != nil {
		t.Fatalf("list general chat: %v", err)
	}
	if len(general) != 1 || general[0].Message != "general note" {
		t.Fatalf("general chat = %+v, want only the untagged message", general)
	}

	scoped, err := a.ListChatMessages(owner, p.ID, ch.ID)
	if err != nil {
		t.Fatalf("list chapter chat: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Message != "chapter note" {
		t.Fatalf("chapter chat = %+v, want only the tagged message", scoped)
	}
}

func TestShareLifecycle(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	collab := registerUser(t, a, "Collab", "collab@example.com")
	p := createProject(t, a, owner, "collab@example.com")

	if _, err := a.CreateShare(collab, p.ID, CreateShareInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("collaborator CreateShare err = %v, want ErrForbidden", err)
	}

	share, err := a.CreateShare(owner, p.ID, CreateShareInput{})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	if share.AccessType != domain.AccessRead {
		t.Fatalf("accessType = %q, want read", share.AccessType)
	}
	if len(share.ShareToken) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(share.ShareToken))
	}
	if !strings.HasSuffix(share.ShareURL, "/shared/"+share.ShareToken) {
		t.Fatalf("shareUrl = %q", share.ShareURL)
	}

	view, err := a.ResolveShare(share.ShareToken)
	if err != nil {
		t.Fatalf("resolve share: %v", err)
	}
	if !view.IsSharedView || view.Project.ID != p.ID {
		t.Fatalf("resolved view = %+v", view)
	}

	var nf *NotFoundError
	if _, err := a.ResolveShare("no-such-token"); !errors.As(err, &nf) {
		t.Fatalf("unknown token err = %v, want not-found", err)
	}

	if err := a.DeleteShare(owner, p.ID, share.ID); err != nil {
		t.Fatalf("delete share: %v", err)
	}
	if _, err := a.ResolveShare(share.ShareToken); !errors.As(err, &nf) {
		t.Fatalf("revoked token err = %v, want not-found", err)
	}
	if err := a.DeleteShare(owner, p.ID, share.ID); err != nil {
		t.Fatalf("repeated delete share: %v", err)
	}
}

func TestExpiredShareHiddenButListed(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com")
	p := createProject(t, a, owner)

	share, err := a.CreateShare(owner, p.ID, CreateShareInput{ExpiresIn: intp(1)})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}

	// back-date the expiry
	past := time.Now().UTC().Add(-time.Hour)
	share.ExpiresAt = &past
	if err := a.store.SaveShare(share.ProjectShare); err != nil {
		t.Fatalf("save share: %v", err)
	}

	var nf *NotFoundError
	if _, err := a.ResolveShare(share.ShareToken); !errors.As(err, &nf) {
		t.Fatalf("expired token err = %v, want not-found", err)
	}

	shares, err := a.ListShares(owner, p.ID)
	if err != nil {
		t.Fatalf("list shares: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("got %d shares, want 1", len(shares))
	}
	if !shares[0].IsExpired {
		t.Fatal("expired share listed without isExpired")
	}
}
