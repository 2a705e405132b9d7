package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/openplaza/plaza/internal/services/social/cache"
	"github.com/openplaza/plaza/internal/services/social/cache/memory"
	"github.com/openplaza/plaza/internal/services/social/domain"
	"github.com/openplaza/plaza/internal/services/social/media"
	socialsqlite "github.com/openplaza/plaza/internal/services/social/storage/sqlite"
)

func TestCreateUser_RegistersAccountWithProfile(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)

	resp := doJSON(t, handler, http.MethodPost, "/api/users", "", map[string]string{
		"username": "ada",
		"email":    "ada@example.com",
		"name":     "Ada",
		"bio":      "first program",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", resp.Code, resp.Body)
	}
	var created struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" || created.Username != "ada" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	profileResp := doJSON(t, handler, http.MethodGet, "/api/profiles/"+created.ID, created.ID, nil)
	if profileResp.Code != http.StatusOK {
		t.Fatalf("get profile status = %d, body %s", profileResp.Code, profileResp.Body)
	}
	var profile struct {
		Bio         string `json:"bio"`
		PicturePath string `json:"picture_path"`
	}
	decodeBody(t, profileResp, &profile)
	if profile.Bio != "first program" || profile.PicturePath != media.DefaultProfilePicture {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestCreateUser_DuplicateUsernameRejected(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	mustCreateUser(t, handler, "ada")

	resp := doJSON(t, handler, http.MethodPost, "/api/users", "", map[string]string{
		"username": "ada",
		"email":    "other@example.com",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username status = %d, want 400", resp.Code)
	}
}

func TestRequireUser_MissingIdentityRejected(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	resp := doJSON(t, handler, http.MethodGet, "/api/notifications", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.Code)
	}
}

func TestFollow_NotifiesTargetAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	fan := mustCreateUser(t, handler, "fan")
	celeb := mustCreateUser(t, handler, "celeb")

	resp := doJSON(t, handler, http.MethodPost, "/api/users/"+celeb+"/follow", fan, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("follow status = %d, body %s", resp.Code, resp.Body)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/users/"+celeb+"/follow", fan, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate follow status = %d, want 400", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/users/"+fan+"/follow", fan, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("self follow status = %d, want 400", resp.Code)
	}

	inbox := listNotifications(t, handler, celeb)
	if len(inbox) != 1 || inbox[0].Kind != "follow" || inbox[0].SenderID != fan {
		t.Fatalf("unexpected inbox after follow: %+v", inbox)
	}
	// Unfollow retracts the edge but keeps the notification.
	resp = doJSON(t, handler, http.MethodDelete, "/api/users/"+celeb+"/follow", fan, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("unfollow status = %d, body %s", resp.Code, resp.Body)
	}
	if inbox := listNotifications(t, handler, celeb); len(inbox) != 1 {
		t.Fatalf("expected follow notification to survive unfollow, got %+v", inbox)
	}
}

func TestLikePost_NotifiesAuthorOnceAndEnforcesEdgeState(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	liker := mustCreateUser(t, handler, "liker")
	postID := mustCreatePost(t, handler, author, "hello world")

	resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", liker, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("like status = %d, body %s", resp.Code, resp.Body)
	}
	resp = doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", liker, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate like status = %d, want 400", resp.Code)
	}

	inbox := listNotifications(t, handler, author)
	if len(inbox) != 1 || inbox[0].Kind != "like_post" || inbox[0].PostID != postID {
		t.Fatalf("unexpected inbox after like: %+v", inbox)
	}

	resp = doJSON(t, handler, http.MethodDelete, "/api/posts/"+postID+"/like", liker, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("unlike status = %d, body %s", resp.Code, resp.Body)
	}
	resp = doJSON(t, handler, http.MethodDelete, "/api/posts/"+postID+"/like", liker, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("repeat unlike status = %d, want 400", resp.Code)
	}
	// Unlike keeps the earlier notification; re-like creates no duplicate.
	resp = doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", liker, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("re-like status = %d, body %s", resp.Code, resp.Body)
	}
	if inbox := listNotifications(t, handler, author); len(inbox) != 1 {
		t.Fatalf("expected single like notification after re-like, got %+v", inbox)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/posts/missing/like", liker, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("like missing post status = %d, want 404", resp.Code)
	}
}

func TestSelfLike_DoesNotNotify(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	postID := mustCreatePost(t, handler, author, "self promotion")

	resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", author, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("self like status = %d, body %s", resp.Code, resp.Body)
	}
	if inbox := listNotifications(t, handler, author); len(inbox) != 0 {
		t.Fatalf("expected no self-like notification, got %+v", inbox)
	}
}

func TestCreateComment_NotifiesPostAuthor(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	commenter := mustCreateUser(t, handler, "commenter")
	postID := mustCreatePost(t, handler, author, "discuss")

	resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/comments", commenter, map[string]string{
		"content": "great post",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create comment status = %d, body %s", resp.Code, resp.Body)
	}
	var comment struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	decodeBody(t, resp, &comment)
	if comment.PostID != postID {
		t.Fatalf("unexpected comment: %+v", comment)
	}

	inbox := listNotifications(t, handler, author)
	if len(inbox) != 1 || inbox[0].Kind != "comment" || inbox[0].CommentID != comment.ID {
		t.Fatalf("unexpected inbox after comment: %+v", inbox)
	}
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	commenter := mustCreateUser(t, handler, "commenter")
	intruder := mustCreateUser(t, handler, "intruder")
	postID := mustCreatePost(t, handler, author, "discuss")

	resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/comments", commenter, map[string]string{
		"content": "mine",
	})
	var comment struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &comment)

	resp = doJSON(t, handler, http.MethodDelete, "/api/comments/"+comment.ID, intruder, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d, want 403", resp.Code)
	}
	resp = doJSON(t, handler, http.MethodDelete, "/api/comments/"+comment.ID, commenter, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("own delete status = %d, body %s", resp.Code, resp.Body)
	}
}

func TestDeletePost_CascadesNotifications(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	liker := mustCreateUser(t, handler, "liker")
	postID := mustCreatePost(t, handler, author, "short lived")

	if resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", liker, nil); resp.Code != http.StatusOK {
		t.Fatalf("like status = %d", resp.Code)
	}
	if inbox := listNotifications(t, handler, author); len(inbox) != 1 {
		t.Fatalf("expected one notification before delete, got %+v", inbox)
	}

	if resp := doJSON(t, handler, http.MethodDelete, "/api/posts/"+postID, liker, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d, want 403", resp.Code)
	}
	if resp := doJSON(t, handler, http.MethodDelete, "/api/posts/"+postID, author, nil); resp.Code != http.StatusOK {
		t.Fatalf("own delete status = %d", resp.Code)
	}

	if inbox := listNotifications(t, handler, author); len(inbox) != 0 {
		t.Fatalf("expected notifications to cascade with post, got %+v", inbox)
	}
	if resp := doJSON(t, handler, http.MethodGet, "/api/posts/"+postID, author, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("get deleted post status = %d, want 404", resp.Code)
	}
}

func TestNewPost_FansOutToFollowers(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	follower := mustCreateUser(t, handler, "follower")

	if resp := doJSON(t, handler, http.MethodPost, "/api/users/"+author+"/follow", follower, nil); resp.Code != http.StatusOK {
		t.Fatalf("follow status = %d", resp.Code)
	}
	postID := mustCreatePost(t, handler, author, "fresh content")

	inbox := listNotifications(t, handler, follower)
	if len(inbox) != 1 || inbox[0].Kind != "new_post" || inbox[0].PostID != postID {
		t.Fatalf("unexpected follower inbox: %+v", inbox)
	}
	if inbox := listNotifications(t, handler, author); len(inbox) != 1 {
		// The author keeps only the follow notification.
		t.Fatalf("unexpected author inbox: %+v", inbox)
	}
}

func TestNotifications_UnreadCountAndMarkRead(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")
	liker := mustCreateUser(t, handler, "liker")
	postID := mustCreatePost(t, handler, author, "count me")
	if resp := doJSON(t, handler, http.MethodPost, "/api/posts/"+postID+"/like", liker, nil); resp.Code != http.StatusOK {
		t.Fatalf("like status = %d", resp.Code)
	}

	countResp := doJSON(t, handler, http.MethodGet, "/api/notifications/unread_count", author, nil)
	var count struct {
		UnreadCount int `json:"unread_count"`
	}
	decodeBody(t, countResp, &count)
	if count.UnreadCount != 1 {
		t.Fatalf("unread count = %d, want 1", count.UnreadCount)
	}

	inbox := listNotifications(t, handler, author)
	resp := doJSON(t, handler, http.MethodPost, "/api/notifications/"+inbox[0].ID+"/read", author, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("mark read status = %d, body %s", resp.Code, resp.Body)
	}

	// Reading someone else's notification is a 404, not a forbidden leak.
	resp = doJSON(t, handler, http.MethodPost, "/api/notifications/"+inbox[0].ID+"/read", liker, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("foreign mark read status = %d, want 404", resp.Code)
	}

	countResp = doJSON(t, handler, http.MethodGet, "/api/notifications/unread_count", author, nil)
	decodeBody(t, countResp, &count)
	if count.UnreadCount != 0 {
		t.Fatalf("unread count after read = %d, want 0", count.UnreadCount)
	}
}

func TestSearchUsers_ExcludesCaller(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	alice := mustCreateUser(t, handler, "alice")
	mustCreateUser(t, handler, "alicia")
	mustCreateUser(t, handler, "bob")

	resp := doJSON(t, handler, http.MethodGet, "/api/search/users?query=ali", alice, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("search status = %d", resp.Code)
	}
	var result struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	decodeBody(t, resp, &result)
	if len(result.Users) != 1 || result.Users[0].Username != "alicia" {
		t.Fatalf("unexpected search results: %+v", result.Users)
	}
}

func TestDeleteUser_SelfOnly(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	leaving := mustCreateUser(t, handler, "leaving")
	other := mustCreateUser(t, handler, "other")

	if resp := doJSON(t, handler, http.MethodDelete, "/api/users/"+leaving, other, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("foreign account delete status = %d, want 403", resp.Code)
	}
	if resp := doJSON(t, handler, http.MethodDelete, "/api/users/"+leaving, leaving, nil); resp.Code != http.StatusOK {
		t.Fatalf("own account delete status = %d", resp.Code)
	}
	if resp := doJSON(t, handler, http.MethodGet, "/api/profiles/"+leaving, other, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("deleted profile status = %d, want 404", resp.Code)
	}
}

func TestBearerToken_IdentifiesCaller(t *testing.T) {
	t.Parallel()

	secret := []byte("test-signing-secret")
	handler, auth := newTestHandlerWithSecret(t, secret)
	userID := mustCreateUser(t, handler, "tokenuser")

	token, err := auth.IssueToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("token request status = %d, body %s", recorder.Code, recorder.Body)
	}

	// The dev header is ignored once a secret is configured.
	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set(devUserHeader, userID)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("header request status = %d, want 401", recorder.Code)
	}
}

func TestCreatePost_RequiresContent(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "author")

	resp := doJSON(t, handler, http.MethodPost, "/api/posts", author, map[string]string{
		"image_path": "post_images/cat.jpg",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("image-only post status = %d, body %s, want 400", resp.Code, resp.Body)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/posts", author, map[string]string{
		"content": "   ",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("blank post status = %d, body %s, want 400", resp.Code, resp.Body)
	}
}

func TestUpdatePost_RejectsEmptyContent(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := mustCreateUser(t, handler, "editor")
	postID := mustCreatePost(t, handler, author, "first draft")

	resp := doJSON(t, handler, http.MethodPut, "/api/posts/"+postID, author, map[string]string{
		"content": "",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty update status = %d, body %s, want 400", resp.Code, resp.Body)
	}

	resp = doJSON(t, handler, http.MethodGet, "/api/posts/"+postID, author, nil)
	var got struct {
		Content string `json:"content"`
	}
	decodeBody(t, resp, &got)
	if got.Content != "first draft" {
		t.Fatalf("content after rejected update = %q, want original", got.Content)
	}
}

func TestUnfollow_MissingUserNotFound(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	fan := mustCreateUser(t, handler, "drifter")

	resp := doJSON(t, handler, http.MethodDelete, "/api/users/no-such-user/follow", fan, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unfollow missing user status = %d, body %s, want 404", resp.Code, resp.Body)
	}

	// An existing user the caller never followed is still a 400.
	stranger := mustCreateUser(t, handler, "stranger")
	resp = doJSON(t, handler, http.MethodDelete, "/api/users/"+stranger+"/follow", fan, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unfollow stranger status = %d, body %s, want 400", resp.Code, resp.Body)
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	handler, _ := newTestHandlerWithSecret(t, nil)
	return handler
}

func newTestHandlerWithSecret(t *testing.T, secret []byte) (http.Handler, *Authenticator) {
	t.Helper()
	store, err := socialsqlite.Open(filepath.Join(t.TempDir(), "social.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close store: %v", closeErr)
		}
	})

	invalidator := cache.NewInvalidator(memory.New())
	mediaStore, err := media.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("open media store: %v", err)
	}
	auth := NewAuthenticator(secret)
	handler := NewHandler(Config{
		Store:       store,
		Engine:      domain.NewEngine(store, invalidator, nil, nil),
		Cascade:     domain.NewCascade(store, invalidator, mediaStore),
		Invalidator: invalidator,
		Media:       mediaStore,
		Auth:        auth,
	})
	return handler, auth
}

func doJSON(t *testing.T, handler http.Handler, method, target, callerID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, target, body)
	if callerID != "" {
		req.Header.Set(devUserHeader, callerID)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %s: %v", resp.Body, err)
	}
}

func mustCreateUser(t *testing.T, handler http.Handler, username string) string {
	t.Helper()
	resp := doJSON(t, handler, http.MethodPost, "/api/users", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"name":     username,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create user %s status = %d, body %s", username, resp.Code, resp.Body)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	return created.ID
}

func mustCreatePost(t *testing.T, handler http.Handler, authorID, content string) string {
	t.Helper()
	resp := doJSON(t, handler, http.MethodPost, "/api/posts", authorID, map[string]string{
		"content": content,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create post status = %d, body %s", resp.Code, resp.Body)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	return created.ID
}

type notificationView struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Kind      string `json:"kind"`
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	IsRead    bool   `json:"is_read"`
}

func listNotifications(t *testing.T, handler http.Handler, callerID string) []notificationView {
	t.Helper()
	resp := doJSON(t, handler, http.MethodGet, "/api/notifications", callerID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list notifications status = %d, body %s", resp.Code, resp.Body)
	}
	var page struct {
		Notifications []notificationView `json:"notifications"`
	}
	decodeBody(t, resp, &page)
	return page.Notifications
}
