package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/api"
	"github.com/runcoach-ai/runcoach/internal/chat"
	"github.com/runcoach-ai/runcoach/internal/profile"
	"github.com/runcoach-ai/runcoach/internal/store"
)

func TestSend(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"response":"<thinking>x</thinking>Go easy.","success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithToken("tok"), WithHTTPClient(srv.Client()))
	p := profile.Default()
	reply, err := c.Send(context.Background(), "Hi", &p)
	require.NoError(t, err)

	assert.Equal(t, "<thinking>x</thinking>Go easy.", reply)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "Hi", got["message"])
	assert.Equal(t, "5K", got["user_profile"].(map[string]any)["goal"])
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"response":"I encountered an error","success":false}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   "Invalid token",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "missing response field",
			status: http.StatusOK,
			body:   `{"success":true}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "no response field")
			},
		},
		{
			name:   "reported failure",
			status: http.StatusOK,
			body:   `{"response":"quota","success":false}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "quota")
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).Send(context.Background(), "Hi", nil)
			tt.check(t, err)
		})
	}
}

func TestSendEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"","success":true}`))
	}))
	defer srv.Close()

	reply, err := New(srv.URL).Send(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestSendCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).Send(ctx, "Hi", nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadProfile(t *testing.T) {
	body := `{}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()
	c := New(srv.URL)

	p, err := c.LoadProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)

	body = `{"name":"Kip","goal":"Marathon"}`
	p, err = c.LoadProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Kip", p.Name)
	assert.Equal(t, "Marathon", p.Goal)
	assert.Equal(t, 3, p.TrainingDays)
}

type echoCoach struct{ resets int }

func (e *echoCoach) Chat(_ context.Context, message string, p *profile.Profile) (string, error) {
	if message == "break" {
		return "", errors.New("model down")
	}
	goal := "none"
	if p != nil {
		goal = p.Goal
	}
	return "<thinking>goal is " + goal + "</thinking>\n\n\n\nYou said: " + message, nil
}

func (e *echoCoach) Reset(context.Context) error {
	e.resets++
	return nil
}

type noSearch struct{}

func (noSearch) Search(context.Context, string, int) (string, []string, error) {
	return "", nil, nil
}

// The terminal client path end to end: Session -> Client -> API router.
func TestSessionAgainstAPI(t *testing.T) {
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "e2e.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	coach := &echoCoach{}
	srv := httptest.NewServer(api.NewRouter(api.NewAPIHandler(coach, db, noSearch{}, zap.NewNop())))
	defer srv.Close()

	c := New(srv.URL + "/api")
	ctx := context.Background()

	qs, err := c.QuickQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, qs, 6)
	assert.Equal(t, "Create a training plan for me", chat.NormalizeShortcut(qs[2]))

	p := profile.Default()
	require.NoError(t, p.Set("goal", "10K"))
	require.NoError(t, c.SaveProfile(ctx, p))
	loaded, err := c.LoadProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "10K", loaded.Goal)

	session := chat.NewSession(c, zap.NewNop())
	require.NoError(t, session.SendUserMessage(ctx, "Plan please", loaded))
	require.NoError(t, session.SendUserMessage(ctx, "break", loaded))

	msgs := session.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "You said: Plan please", msgs[1].Content)
	require.NotNil(t, msgs[1].Thinking)
	assert.Equal(t, "goal is 10K", *msgs[1].Thinking)
	assert.Equal(t, chat.RoleError, msgs[3].Role)
	assert.Equal(t, chat.ErrorReplyText, msgs[3].Content)

	require.NoError(t, session.ResetSession(ctx))
	assert.Zero(t, session.Len())
	assert.Equal(t, 1, coach.resets)

	res, err := c.Search(ctx, "shin & knee")
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
}
