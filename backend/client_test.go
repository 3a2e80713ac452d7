package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinesorte/apperr"
	"cinesorte/catalog"
	"cinesorte/config"
	"cinesorte/identity"
	"cinesorte/lists"
)

// fakeService mimics the account service with one user and in-memory lists.
type fakeService struct {
	mu         sync.Mutex
	dropCookie bool
	lists      []wireList
	nextID     int
}

const sessionCookie = "sid"

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	authed := false
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value == "ok" {
		authed = true
	}
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/login":
		var in credentials
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Email != "ana@example.com" || in.Password != "Secret123" {
			reply(http.StatusUnauthorized, map[string]string{"message": "invalid"})
			return
		}
		if !f.dropCookie {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
		}
		reply(http.StatusOK, identity.User{ID: "u1", Name: "Ana", Email: in.Email})
	case r.Method == http.MethodPost && r.URL.Path == "/users/register":
		var in credentials
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Email == "ana@example.com" {
			reply(http.StatusConflict, map[string]string{"message": "email in use"})
			return
		}
		reply(http.StatusCreated, map[string]string{"id": "u2"})
	case r.Method == http.MethodPost && r.URL.Path == "/users/logout":
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
		reply(http.StatusOK, map[string]string{})
	case r.URL.Path == "/users/me":
		if !authed {
			reply(http.StatusUnauthorized, map[string]string{"message": "no session"})
			return
		}
		reply(http.StatusOK, identity.User{ID: "u1", Name: "Ana", Email: "ana@example.com"})
	case !authed:
		reply(http.StatusUnauthorized, map[string]string{"message": "no session"})
	case r.Method == http.MethodGet && r.URL.Path == "/users/lists":
		reply(http.StatusOK, f.lists)
	case r.Method == http.MethodPost && r.URL.Path == "/users/lists":
		var in saveRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		for i := range f.lists {
			if f.lists[i].ListName == in.ListName {
				f.lists[i].Movies = in.Movies
				reply(http.StatusOK, f.lists[i])
				return
			}
		}
		f.nextID++
		l := wireList{ID: fmt.Sprintf("l%d", f.nextID), ListName: in.ListName, Movies: in.Movies}
		f.lists = append(f.lists, l)
		reply(http.StatusCreated, l)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/users/lists/"):
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/lists/"), "/")
		for i := range f.lists {
			if f.lists[i].ID != parts[0] {
				continue
			}
			if len(parts) == 3 && parts[1] == "movies" {
				id, _ := strconv.Atoi(parts[2])
				kept := f.lists[i].Movies[:0]
				for _, m := range f.lists[i].Movies {
					if m.ID != id {
						kept = append(kept, m)
					}
				}
				f.lists[i].Movies = kept
			} else {
				f.lists = append(f.lists[:i], f.lists[i+1:]...)
			}
			reply(http.StatusOK, map[string]string{})
			return
		}
		reply(http.StatusNotFound, map[string]string{"message": "list not found"})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, svc *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	c, err := New(config.BackendConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(config.BackendConfig{})
	assert.Error(t, err)
}

func TestLoginKeepsSession(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	ctx := context.Background()

	_, err := c.CurrentUser(ctx)
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)

	u, err := c.Login(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)

	require.NoError(t, c.Logout(ctx))
	_, err = c.CurrentUser(ctx)
	assert.ErrorIs(t, err, identity.ErrNotAuthenticated)
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	_, err := c.Login(context.Background(), "ana@example.com", "nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, identity.ErrCookieBlocked)
}

func TestLoginCookieBlocked(t *testing.T) {
	c := newTestClient(t, &fakeService{dropCookie: true})
	_, err := c.Login(context.Background(), "ana@example.com", "Secret123")
	assert.ErrorIs(t, err, identity.ErrCookieBlocked)
	assert.Equal(t, apperr.KindCookieBlocked, apperr.KindOf(err))
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	ctx := context.Background()

	assert.NoError(t, c.Register(ctx, "Bia", "bia@example.com", "Passw0rd"))
	err := c.Register(ctx, "Ana", "ana@example.com", "Passw0rd")
	assert.ErrorIs(t, err, identity.ErrEmailInUse)
}

func TestSessionOverBackend(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	s := identity.NewSession(c)
	s.Init(context.Background())
	_, ok := s.CurrentUser()
	assert.False(t, ok)

	_, err := s.Login(context.Background(), "ana@example.com", "Secret123")
	require.NoError(t, err)
	u, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", u.Email)
}

func TestListsRoundTrip(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc)
	ctx := context.Background()

	_, err := c.ListAll(ctx)
	assert.ErrorIs(t, err, apperr.ErrNetwork)

	_, err = c.Login(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)

	all, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, c.Save(ctx, "Favoritos", nil))
	items := []catalog.Candidate{
		{ID: 1, Title: "Alien", MediaKind: catalog.Movie},
		{ID: 2, Title: "Dark", MediaKind: catalog.Series},
	}
	require.NoError(t, c.Save(ctx, "Favoritos", items))

	all, err = c.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "l1", all[0].ID)
	assert.Equal(t, "Favoritos", all[0].Name)
	assert.Equal(t, items, all[0].Items)

	require.NoError(t, c.RemoveItem(ctx, "Favoritos", 1))
	all, _ = c.ListAll(ctx)
	require.Len(t, all[0].Items, 1)
	assert.Equal(t, 2, all[0].Items[0].ID)

	assert.ErrorIs(t, c.Delete(ctx, "Outra"), lists.ErrNotFound)
	require.NoError(t, c.Delete(ctx, "Favoritos"))
	all, _ = c.ListAll(ctx)
	assert.Empty(t, all)
}

func TestManagerOverBackend(t *testing.T) {
	c := newTestClient(t, &fakeService{})
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)

	m := lists.NewManager(c, nil)
	require.NoError(t, m.Refresh(ctx))
	require.NoError(t, m.Create(ctx, "Fim de semana"))
	require.NoError(t, m.Add(ctx, "Fim de semana", catalog.Candidate{ID: 7, Title: "Heat"}))
	assert.ErrorIs(t, m.Add(ctx, "Fim de semana", catalog.Candidate{ID: 7, Title: "Heat"}), lists.ErrDuplicate)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Len(t, active.Items, 1)
}
