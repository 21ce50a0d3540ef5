package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// These tests exercise the follow lifecycle end to end against a running
// server (TEST_BASE_URL, default http://localhost:8080). They register fresh
// accounts per run so no seed data is required, and skip when the server is
// unreachable.

var baseURL = getEnv("TEST_BASE_URL", "http://localhost:8080")

// ============================================================================
// HTTP Client Helpers
// ============================================================================

type apiClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newClient() *apiClient {
	return &apiClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (c *apiClient) withToken(token string) *apiClient {
	c.token = token
	return c
}

func (c *apiClient) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func (c *apiClient) get(path string) (*http.Response, error) {
	return c.do("GET", path, nil)
}

func (c *apiClient) post(path string, body interface{}) (*http.Response, error) {
	return c.do("POST", path, body)
}

func (c *apiClient) patch(path string, body interface{}) (*http.Response, error) {
	return c.do("PATCH", path, body)
}

func (c *apiClient) delete(path string) (*http.Response, error) {
	return c.do("DELETE", path, nil)
}

func parseJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ============================================================================
// Account Helpers
// ============================================================================

type account struct {
	ID       int64
	Username string
	Token    string
}

func requireServer(t *testing.T) {
	resp, err := newClient().get("/health")
	if err != nil {
		t.Skipf("Server not available at %s, skipping: %v", baseURL, err)
	}
	resp.Body.Close()
}

// registerAccount creates a fresh account and logs it in.
func registerAccount(t *testing.T, prefix string) *account {
	username := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())

	resp, err := newClient().post("/auth/register", map[string]string{
		"username": username,
		"password": "password123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Register failed with status %d: %s", resp.StatusCode, body)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := parseJSON(resp, &created); err != nil {
		t.Fatalf("Parse register response: %v", err)
	}

	resp, err = newClient().post("/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Login failed with status %d: %s", resp.StatusCode, body)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := parseJSON(resp, &login); err != nil {
		t.Fatalf("Parse login response: %v", err)
	}

	return &account{ID: created.ID, Username: username, Token: login.AccessToken}
}

func setVisibility(t *testing.T, acc *account, visibility string) {
	resp, err := newClient().withToken(acc.Token).patch("/me/privacy", map[string]string{
		"profile_visibility": visibility,
	})
	if err != nil {
		t.Fatalf("Set visibility: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Set visibility failed with status %d: %s", resp.StatusCode, body)
	}
}

type followResult struct {
	State string `json:"state"`
}

func follow(t *testing.T, follower, followee *account) followResult {
	resp, err := newClient().withToken(follower.Token).post(fmt.Sprintf("/users/%d/follow", followee.ID), nil)
	if err != nil {
		t.Fatalf("Follow request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Follow failed with status %d: %s", resp.StatusCode, body)
	}
	var result followResult
	if err := parseJSON(resp, &result); err != nil {
		t.Fatalf("Parse follow response: %v", err)
	}
	return result
}

type profileView struct {
	User struct {
		ID            int64 `json:"id"`
		FollowerCount int   `json:"follower_count"`
	} `json:"user"`
	CanViewContent   bool   `json:"can_view_content"`
	RequiresApproval bool   `json:"requires_approval"`
	FollowState      string `json:"follow_state"`
}

func getProfile(t *testing.T, viewer *account, target *account) profileView {
	client := newClient()
	if viewer != nil {
		client = client.withToken(viewer.Token)
	}
	resp, err := client.get(fmt.Sprintf("/users/%d", target.ID))
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Get profile failed with status %d: %s", resp.StatusCode, body)
	}
	var view profileView
	if err := parseJSON(resp, &view); err != nil {
		t.Fatalf("Parse profile: %v", err)
	}
	return view
}

// ============================================================================
// TEST CASES
// ============================================================================

// TestPublicFollowLifecycle: follow a public account -> instantly accepted,
// counts update, repeated follow is idempotent, unfollow reverts.
func TestPublicFollowLifecycle(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "alice")
	bob := registerAccount(t, "bob")

	// Bob follows Alice (public)
	result := follow(t, bob, alice)
	if result.State != "accepted" {
		t.Fatalf("Follow state = %q, want accepted", result.State)
	}

	// Counts are visible immediately after the follow returns
	view := getProfile(t, bob, alice)
	if view.User.FollowerCount != 1 {
		t.Errorf("follower_count = %d, want 1", view.User.FollowerCount)
	}
	if view.FollowState != "following" {
		t.Errorf("follow_state = %q, want following", view.FollowState)
	}
	if !view.CanViewContent {
		t.Error("public profile content should be viewable")
	}

	// Repeated follow reports the existing state, no double count
	result = follow(t, bob, alice)
	if result.State != "already_accepted" {
		t.Errorf("Repeat follow state = %q, want already_accepted", result.State)
	}
	view = getProfile(t, bob, alice)
	if view.User.FollowerCount != 1 {
		t.Errorf("follower_count after repeat = %d, want 1", view.User.FollowerCount)
	}

	// Unfollow
	resp, err := newClient().withToken(bob.Token).delete(fmt.Sprintf("/users/%d/follow", alice.ID))
	if err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unfollow failed with status %d", resp.StatusCode)
	}

	view = getProfile(t, bob, alice)
	if view.User.FollowerCount != 0 {
		t.Errorf("follower_count after unfollow = %d, want 0", view.User.FollowerCount)
	}
	if view.FollowState != "follow" {
		t.Errorf("follow_state after unfollow = %q, want follow", view.FollowState)
	}

	// Unfollowing again is a harmless no-op
	resp, err = newClient().withToken(bob.Token).delete(fmt.Sprintf("/users/%d/follow", alice.ID))
	if err != nil {
		t.Fatalf("Second unfollow: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Second unfollow status = %d, want 200", resp.StatusCode)
	}
}

// TestPrivateFollowApproval: follow a private account -> pending, approve ->
// accepted, content becomes visible.
func TestPrivateFollowApproval(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "alice")
	bob := registerAccount(t, "bob")
	setVisibility(t, alice, "private")

	// Bob cannot see Alice's posts yet
	resp, err := newClient().withToken(bob.Token).get(fmt.Sprintf("/users/%d/posts", alice.ID))
	if err != nil {
		t.Fatalf("Get posts: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Posts of private account: status = %d, want 403", resp.StatusCode)
	}

	// Follow queues a pending request
	result := follow(t, bob, alice)
	if result.State != "pending" {
		t.Fatalf("Follow state = %q, want pending", result.State)
	}

	view := getProfile(t, bob, alice)
	if view.FollowState != "pending" {
		t.Errorf("follow_state = %q, want pending", view.FollowState)
	}
	if view.CanViewContent {
		t.Error("pending request must not grant content access")
	}
	if view.User.FollowerCount != 0 {
		t.Errorf("follower_count while pending = %d, want 0", view.User.FollowerCount)
	}

	// Repeated follow while pending stays pending
	result = follow(t, bob, alice)
	if result.State != "already_pending" {
		t.Errorf("Repeat follow state = %q, want already_pending", result.State)
	}

	// Alice sees the request in her inbox
	resp, err = newClient().withToken(alice.Token).get("/me/follow-requests")
	if err != nil {
		t.Fatalf("Get requests: %v", err)
	}
	var inbox struct {
		Requests []struct {
			Requester struct {
				ID int64 `json:"id"`
			} `json:"requester"`
		} `json:"requests"`
	}
	if err := parseJSON(resp, &inbox); err != nil {
		t.Fatalf("Parse inbox: %v", err)
	}
	if len(inbox.Requests) != 1 || inbox.Requests[0].Requester.ID != bob.ID {
		t.Fatalf("Inbox should hold one request from bob, got %+v", inbox.Requests)
	}

	// Alice approves
	resp, err = newClient().withToken(alice.Token).post(fmt.Sprintf("/me/follow-requests/%d/approve", bob.ID), nil)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Approve failed with status %d", resp.StatusCode)
	}

	view = getProfile(t, bob, alice)
	if view.FollowState != "following" {
		t.Errorf("follow_state after approval = %q, want following", view.FollowState)
	}
	if !view.CanViewContent {
		t.Error("accepted follower should see private content")
	}
	if view.User.FollowerCount != 1 {
		t.Errorf("follower_count after approval = %d, want 1", view.User.FollowerCount)
	}

	// Approving the same request twice fails: nothing pending anymore
	resp, err = newClient().withToken(alice.Token).post(fmt.Sprintf("/me/follow-requests/%d/approve", bob.ID), nil)
	if err != nil {
		t.Fatalf("Second approve: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Second approve status = %d, want 404", resp.StatusCode)
	}
}

// TestDeclineThenRerequest: a declined requester can follow again.
func TestDeclineThenRerequest(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "alice")
	bob := registerAccount(t, "bob")
	setVisibility(t, alice, "followers")

	result := follow(t, bob, alice)
	if result.State != "pending" {
		t.Fatalf("Follow state = %q, want pending", result.State)
	}

	resp, err := newClient().withToken(alice.Token).post(fmt.Sprintf("/me/follow-requests/%d/decline", bob.ID), nil)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Decline failed with status %d", resp.StatusCode)
	}

	// Declined shows as a plain follow button, not pending
	view := getProfile(t, bob, alice)
	if view.FollowState != "follow" {
		t.Errorf("follow_state after decline = %q, want follow", view.FollowState)
	}

	// Bob may request again
	result = follow(t, bob, alice)
	if result.State != "pending" {
		t.Errorf("Re-request state = %q, want pending", result.State)
	}
}

// TestSelfFollowRejected: following yourself is a 400 before anything is
// stored.
func TestSelfFollowRejected(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "alice")

	resp, err := newClient().withToken(alice.Token).post(fmt.Sprintf("/users/%d/follow", alice.ID), nil)
	if err != nil {
		t.Fatalf("Self follow: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Self follow status = %d, want 400", resp.StatusCode)
	}

	view := getProfile(t, alice, alice)
	if view.User.FollowerCount != 0 {
		t.Errorf("follower_count after self follow = %d, want 0", view.User.FollowerCount)
	}
	if view.FollowState != "none" {
		t.Errorf("own profile follow_state = %q, want none", view.FollowState)
	}
}

// TestVisibilityChangeKeepsFollowers: tightening visibility does not revoke
// accepted followers, it only gates new follows.
func TestVisibilityChangeKeepsFollowers(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "alice")
	bob := registerAccount(t, "bob")
	carol := registerAccount(t, "carol")

	// Bob follows while Alice is public: instant
	result := follow(t, bob, alice)
	if result.State != "accepted" {
		t.Fatalf("Follow state = %q, want accepted", result.State)
	}

	setVisibility(t, alice, "private")

	// Bob keeps access
	view := getProfile(t, bob, alice)
	if !view.CanViewContent {
		t.Error("existing follower should keep access after visibility change")
	}
	if view.FollowState != "following" {
		t.Errorf("follow_state = %q, want following", view.FollowState)
	}

	// Carol now needs approval
	result = follow(t, carol, alice)
	if result.State != "pending" {
		t.Errorf("New follow state = %q, want pending", result.State)
	}
}

// Firing the same follow from several connections at once must resolve to a
// single accepted edge: exactly one follower counted, and every response a
// success (accepted or already_accepted, never an error or a duplicate).
func TestConcurrentFollowCreatesOneEdge(t *testing.T) {
	requireServer(t)

	alice := registerAccount(t, "race_alice")
	bob := registerAccount(t, "race_bob")

	const attempts = 6
	states := make([]string, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := newClient().withToken(bob.Token).post(fmt.Sprintf("/users/%d/follow", alice.ID), nil)
			if err != nil {
				errs[i] = err
				return
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				errs[i] = fmt.Errorf("status %d: %s", resp.StatusCode, body)
				return
			}
			var result followResult
			if err := parseJSON(resp, &result); err != nil {
				errs[i] = err
				return
			}
			states[i] = result.State
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("concurrent follow %d failed: %v", i, errs[i])
		}
		if states[i] != "accepted" && states[i] != "already_accepted" {
			t.Errorf("concurrent follow %d: state = %q, want accepted or already_accepted", i, states[i])
		}
	}

	// However the race interleaved, there is one edge and one counted follower.
	view := getProfile(t, bob, alice)
	if view.User.FollowerCount != 1 {
		t.Errorf("follower_count = %d after %d concurrent follows, want 1", view.User.FollowerCount, attempts)
	}
	if view.FollowState != "following" {
		t.Errorf("follow_state = %q, want following", view.FollowState)
	}

	unfollowResp, err := newClient().withToken(bob.Token).delete(fmt.Sprintf("/users/%d/follow", alice.ID))
	if err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	unfollowResp.Body.Close()

	view = getProfile(t, bob, alice)
	if view.User.FollowerCount != 0 {
		t.Errorf("follower_count = %d after unfollow, want 0", view.User.FollowerCount)
	}
}
