package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"mythos/internal/app"
	"mythos/pkg/auth"
	"mythos/pkg/domain"
	"mythos/pkg/store"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *store.MemoryStore
	avatars *fakeObjectStore
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key + "?sig=abc", nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	memStore := store.NewMemoryStore()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	avatars := &fakeObjectStore{objects: map[string][]byte{}}
	a, err := app.New(app.Config{Store: memStore, Tokens: tokens, Avatars: avatars, FrontendURL: cfg.FrontendURL})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = a
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{server: srv, handler: srv.Router(), store: memStore, avatars: avatars}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) register(t *testing.T, name, email string) (domain.User, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.User, resp.Token
}

func (e *testEnv) createProject(t *testing.T, token string, collaborators ...string) domain.Project {
	t.Helper()
	body := map[string]any{"title": "Ashfall"}
	if len(collaborators) > 0 {
		body["collaborators"] = collaborators
	}
	rec := e.do(t, http.MethodPost, "/projects", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status %d body %s", rec.Code, rec.Body.String())
	}
	var p domain.Project
	decodeBody(t, rec, &p)
	return p
}

func TestRegisterLoginFlow(t *testing.T) {
	e := newTestEnv(t, Config{})

	user, token := e.register(t, "Ana", "ana@example.com")
	if user.Email != "ana@example.com" || token == "" {
		t.Fatalf("register response user=%+v token=%q", user, token)
	}

	// duplicate email
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ana Again", "email": "ANA@example.com", "password": "password123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}

	// wrong password
	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "nope-nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me domain.User
	decodeBody(t, rec, &me)
	if me.ID != user.ID {
		t.Fatalf("me returned %s, want %s", me.ID, user.ID)
	}

	// no token
	rec = e.do(t, http.MethodGet, "/projects", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}
}

func TestProjectAccessControl(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, ownerToken := e.register(t, "Owner", "owner@example.com")
	_, collabToken := e.register(t, "Collab", "collab@example.com")
	_, outsiderToken := e.register(t, "Outsider", "outsider@example.com")
	p := e.createProject(t, ownerToken, "collab@example.com")

	if rec := e.do(t, http.MethodGet, "/projects/"+p.ID, collabToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("collaborator GET status = %d", rec.Code)
	}
	rec := e.do(t, http.MethodPut, "/projects/"+p.ID, collabToken, map[string]string{"genre": "fantasy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("collaborator PUT status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodDelete, "/projects/"+p.ID, collabToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("collaborator DELETE status = %d, want 404", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/projects/"+p.ID, outsiderToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("outsider GET status = %d, want 404", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/projects/"+p.ID, ownerToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("owner DELETE status = %d", rec.Code)
	}
}

func TestProjectCascadeDelete(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, token := e.register(t, "Owner", "owner@example.com")
	p := e.createProject(t, token)

	rec := e.do(t, http.MethodPost, "/chapters", token, map[string]any{
		"projectId": p.ID, "title": "One", "content": "some words here", "order": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chapter: %d %s", rec.Code, rec.Body.String())
	}
	var chapter domain.Chapter
	decodeBody(t, rec, &chapter)

	rec = e.do(t, http.MethodPost, "/characters", token, map[string]any{
		"projectId": p.ID, "name": "Mira",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create character: %d %s", rec.Code, rec.Body.String())
	}
	var character domain.Character
	decodeBody(t, rec, &character)

	rec = e.do(t, http.MethodPost, "/world-elements", token, map[string]any{
		"projectId": p.ID, "name": "Hollow Keep", "type": "location",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create world element: %d %s", rec.Code, rec.Body.String())
	}
	var element domain.WorldElement
	decodeBody(t, rec, &element)

	if rec := e.do(t, http.MethodDelete, "/projects/"+p.ID, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete project: %d", rec.Code)
	}

	for _, path := range []string{
		"/projects/" + p.ID,
		"/chapters/" + chapter.ID,
		"/characters/" + character.ID,
		"/world-elements/" + element.ID,
	} {
		if rec := e.do(t, http.MethodGet, path, token, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s after cascade = %d, want 404", path, rec.Code)
		}
	}
}

func TestChapterWordCountEndToEnd(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, token := e.register(t, "Owner", "owner@example.com")
	p := e.createProject(t, token)

	rec := e.do(t, http.MethodPost, "/chapters", token, map[string]any{
		"projectId": p.ID, "title": "One", "content": "hello world", "order": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chapter: %d %s", rec.Code, rec.Body.String())
	}
	var chapter domain.Chapter
	decodeBody(t, rec, &chapter)
	if chapter.WordCount != 2 {
		t.Fatalf("chapter wordCount = %d, want 2", chapter.WordCount)
	}

	var detail domain.ProjectDetail
	rec = e.do(t, http.MethodGet, "/projects/"+p.ID, token, nil)
	decodeBody(t, rec, &detail)
	if detail.WordCount != 2 {
		t.Fatalf("project wordCount = %d, want 2", detail.WordCount)
	}

	rec = e.do(t, http.MethodPut, "/chapters/"+chapter.ID, token, map[string]string{
		"content": "one two three",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update chapter: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/projects/"+p.ID, token, nil)
	decodeBody(t, rec, &detail)
	if detail.WordCount != 3 {
		t.Fatalf("project wordCount after update = %d, want 3", detail.WordCount)
	}

	rec = e.do(t, http.MethodGet, "/chapters/"+chapter.ID+"/versions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list versions: %d", rec.Code)
	}
	var versions []domain.ChapterVersion
	decodeBody(t, rec, &versions)
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}

	// restore version 1 via the API
	var target domain.ChapterVersion
	for _, v := range versions {
		if v.Version == 1 {
			target = v
		}
	}
	rec = e.do(t, http.MethodPost, "/chapters/"+chapter.ID+"/restore/"+target.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rec.Code, rec.Body.String())
	}
	var restored domain.Chapter
	decodeBody(t, rec, &restored)
	if restored.Content != "hello world" {
		t.Fatalf("restored content = %q", restored.Content)
	}
}

func TestChatEndpoints(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, ownerToken := e.register(t, "Owner", "owner@example.com")
	_, collabToken := e.register(t, "Collab", "collab@example.com")
	_, otherToken := e.register(t, "Other", "other@example.com")
	p := e.createProject(t, ownerToken, "collab@example.com", "other@example.com")

	// blank message rejected
	rec := e.do(t, http.MethodPost, "/chat/"+p.ID, collabToken, map[string]string{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message status = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/chat/"+p.ID, collabToken, map[string]string{"message": "draft is up"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: %d %s", rec.Code, rec.Body.String())
	}
	var msg domain.ChatMessage
	decodeBody(t, rec, &msg)
	if msg.UserName != "Collab" || msg.MessageType != domain.MessageText {
		t.Fatalf("message = %+v", msg)
	}

	// unrelated collaborator cannot delete
	rec = e.do(t, http.MethodDelete, "/chat/"+p.ID+"/"+msg.ID, otherToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-author delete status = %d, want 403", rec.Code)
	}
	// owner can
	rec = e.do(t, http.MethodDelete, "/chat/"+p.ID+"/"+msg.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
}

func TestShareEndpoints(t *testing.T) {
	e := newTestEnv(t, Config{FrontendURL: "https://mythos.test"})
	_, ownerToken := e.register(t, "Owner", "owner@example.com")
	_, collabToken := e.register(t, "Collab", "collab@example.com")
	p := e.createProject(t, ownerToken, "collab@example.com")

	// collaborator cannot manage shares
	rec := e.do(t, http.MethodPost, "/shares/"+p.ID+"/share", collabToken, map[string]any{})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("collaborator share status = %d, want 403", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/shares/"+p.ID+"/share", ownerToken, map[string]any{"expiresIn": 7})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create share: %d %s", rec.Code, rec.Body.String())
	}
	var created createShareResponse
	decodeBody(t, rec, &created)
	if created.ShareURL != "https://mythos.test/shared/"+created.ShareToken {
		t.Fatalf("shareUrl = %q", created.ShareURL)
	}
	if created.ExpiresAt == nil {
		t.Fatal("expiresAt missing")
	}

	// public resolve, no auth header
	rec = e.do(t, http.MethodGet, "/shares/shared/"+created.ShareToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve share: %d %s", rec.Code, rec.Body.String())
	}
	var view domain.SharedProjectView
	decodeBody(t, rec, &view)
	if !view.IsSharedView || view.Project.ID != p.ID {
		t.Fatalf("shared view = %+v", view)
	}

	// expire the share behind the API's back
	share := created.Share
	past := time.Now().UTC().Add(-time.Hour)
	share.ExpiresAt = &past
	if err := e.store.SaveShare(share); err != nil {
		t.Fatalf("save share: %v", err)
	}

	rec = e.do(t, http.MethodGet, "/shares/shared/"+created.ShareToken, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expired resolve status = %d, want 404", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/shares/"+p.ID+"/shares", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list shares: %d", rec.Code)
	}
	var shares []domain.ShareInfo
	decodeBody(t, rec, &shares)
	if len(shares) != 1 || !shares[0].IsExpired {
		t.Fatalf("shares = %+v, want one expired entry", shares)
	}

	rec = e.do(t, http.MethodDelete, "/shares/"+p.ID+"/shares/"+share.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete share: %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/shares/"+p.ID+"/shares/"+share.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeated delete share: %d", rec.Code)
	}
}

func TestWorldElementTypes(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, token := e.register(t, "Mara", "mara@example.com")

	rec := e.do(t, http.MethodGet, "/world-elements/types", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("types without token: status = %d, want 401", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/world-elements/types", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("types status = %d", rec.Code)
	}
	var types []string
	decodeBody(t, rec, &types)
	if len(types) != 5 {
		t.Fatalf("got %d types, want 5", len(types))
	}
}

func TestRegisterRateLimited(t *testing.T) {
	redis := miniredis.RunT(t)
	e := newTestEnv(t, Config{
		RedisAddr:                  redis.Addr(),
		RegisterRateLimitPerMinute: 2,
	})

	for i := 0; i < 2; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		e.register(t, "User", email)
	}
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Late", "email": "late@example.com", "password": "password123",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("rate limited status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestCharacterAvatarUpload(t *testing.T) {
	e := newTestEnv(t, Config{})
	_, token := e.register(t, "Owner", "owner@example.com")
	p := e.createProject(t, token)

	rec := e.do(t, http.MethodPost, "/characters", token, map[string]any{
		"projectId": p.ID, "name": "Mira",
	})
	var character domain.Character
	decodeBody(t, rec, &character)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "mira.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/characters/"+character.ID+"/avatar", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	e.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("avatar upload: %d %s", res.Code, res.Body.String())
	}
	var updated domain.Character
	if err := json.Unmarshal(res.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Avatar != "https://objects.test/avatars/"+character.ID+".png?sig=abc" {
		t.Fatalf("avatar = %q", updated.Avatar)
	}
	if _, ok := e.avatars.objects["avatars/"+character.ID+".png"]; !ok {
		t.Fatal("object not stored")
	}

	// unsupported extension rejected
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("avatar", "mira.gif")
	fw.Write([]byte("gif"))
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/characters/"+character.ID+"/avatar", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res = httptest.NewRecorder()
	e.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("gif upload status = %d, want 400", res.Code)
	}
}
