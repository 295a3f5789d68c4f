package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	storyverse "github.com/opd-ai/storyverse/src"
	"github.com/opd-ai/storyverse/src/mocks"
	"github.com/opd-ai/storyverse/srv/generator"
)

const suggestionReply = `1. The gate swung open.
Commentary: Momentum.
2. A raven spoke her name.
Commentary: Strangeness.
3. Mara drew her sword.
Commentary: Action.
Bonus Idea: Her mentor is the villain.
Commentary: Betrayal.
Visual Concept: A cracked castle gate at dawn.
Commentary: Cover art.`

const endingReply = `1. Mara rode into the sunrise.
2. The castle crumbled behind her.
3. She took the crown.`

var startForm = url.Values{
	"character_name": {"Mara"},
	"character_role": {"Knight"},
	"genre":          {"Fantasy"},
	"language":       {"English"},
	"format":         {"Short Story"},
	"opening":        {"Mara waited at the gate."},
}

type testClient struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, gen storyverse.TextGenerator) (*StoryUI, *testClient) {
	t.Helper()
	cfg := &storyverse.Config{
		DataDir:        t.TempDir(),
		Protocol:       storyverse.ProtocolRich,
		RequestTimeout: time.Second,
		RateLimit:      1000,
	}
	logger := zaptest.NewLogger(t)
	ui, err := NewStoryUI(cfg, storyverse.NewEngine(gen, logger), nil, logger)
	require.NoError(t, err)

	server := httptest.NewServer(ui)
	t.Cleanup(server.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ui, &testClient{t: t, server: server, client: &http.Client{Jar: jar}}
}

// testView is the subset of the JSON view the tests look at.
type testView struct {
	State       string `json:"state"`
	Story       string `json:"story"`
	Suggestions []struct {
		Text string `json:"text"`
		Kind string `json:"kind"`
	} `json:"suggestions"`
	Endings []string `json:"endings"`
	CanEnd  bool     `json:"can_end"`
}

func (c *testClient) post(path string, form url.Values) (*http.Response, testView) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var view testView
	if resp.StatusCode == http.StatusOK {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&view))
	}
	return resp, view
}

func (c *testClient) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.client.Get(c.server.URL + path)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStoryUI_FullFlow(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	gen.On("SendMessage", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return !strings.Contains(user, "ending")
	})).Return(suggestionReply, nil)
	gen.On("SendMessage", mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, "ending")
	})).Return(endingReply, nil)

	_, c := newTestServer(t, gen)

	resp, view := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awaiting_suggestions", view.State)
	assert.False(t, view.CanEnd)

	resp, view = c.post("/story/suggestions", url.Values{"tone": {"darker"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "presenting_suggestions", view.State)
	require.Len(t, view.Suggestions, 5)
	assert.Equal(t, "visual_concept", view.Suggestions[4].Kind)

	resp, view = c.post("/story/choose", url.Values{"choice": {"2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Mara waited at the gate. A raven spoke her name.", view.Story)
	assert.True(t, view.CanEnd)

	resp, view = c.post("/story/endings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "presenting_endings", view.State)
	require.Len(t, view.Endings, 3)

	resp, view = c.post("/story/ending", url.Values{"choice": {"3"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "concluded", view.State)
	assert.True(t, strings.HasSuffix(view.Story, "She took the crown."))

	resp, _ = c.post("/story/suggestions", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	txt := c.get("/story/download?format=txt")
	assert.Equal(t, http.StatusOK, txt.StatusCode)
	assert.Contains(t, txt.Header.Get("Content-Disposition"), storyverse.StoryFileName)

	pdf := c.get("/story/download?format=pdf")
	assert.Equal(t, "application/pdf", pdf.Header.Get("Content-Type"))
}

func TestStoryUI_Validation(t *testing.T) {
	_, c := newTestServer(t, mocks.NewMockTextGenerator(t))

	form := url.Values{}
	for k, v := range startForm {
		form[k] = v
	}
	form.Del("genre")
	resp, _ := c.post("/story", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	form.Set("genre", "Fantasy")
	form.Set("opening", "   ")
	resp, _ = c.post("/story", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.post("/story/choose", url.Values{"choice": {"1"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoryUI_TransitionsAndChoices(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	gen.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(suggestionReply, nil)
	_, c := newTestServer(t, gen)

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/story", startForm)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "second start on the same session")

	resp, _ = c.post("/story/choose", url.Values{"choice": {"1"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing presented yet")

	resp, _ = c.post("/story/endings", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "only the opening so far")

	resp, _ = c.post("/story/suggestions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/story/choose", url.Values{"choice": {"5"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "visual concept is not selectable")

	resp, _ = c.post("/story/choose", url.Values{"choice": {"nine"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, view := c.post("/story/choose", url.Values{"text": {"She knocked twice."}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "awaiting_suggestions", view.State)
}

func TestStoryUI_GenerationFailure(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	gen.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("overloaded"))
	_, c := newTestServer(t, gen)

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/story/suggestions", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	events := c.get("/api/events")
	var msgs []generator.WSMessage
	require.NoError(t, json.NewDecoder(events.Body).Decode(&msgs))
	require.NotEmpty(t, msgs)
	assert.Equal(t, string(generator.StateError), msgs[len(msgs)-1].Status)
}

func TestStoryUI_ResumeFromDisk(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ui, c := newTestServer(t, gen)

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get("X-Session-Id")
	require.True(t, isValidSession(id))

	_, err := os.Stat(ui.store.logPath(id))
	require.NoError(t, err)

	ui.sessions.Flush()
	story := c.get("/api/story")
	require.Equal(t, http.StatusOK, story.StatusCode)
	var view testView
	require.NoError(t, json.NewDecoder(story.Body).Decode(&view))
	assert.Equal(t, "awaiting_suggestions", view.State)
	assert.Equal(t, "Mara waited at the gate.", view.Story)
}

func TestStoryUI_NewStory(t *testing.T) {
	_, c := newTestServer(t, mocks.NewMockTextGenerator(t))

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := resp.Header.Get("X-Session-Id")

	resp, _ = c.post("/story/new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, first, resp.Header.Get("X-Session-Id"))

	assert.Equal(t, http.StatusNotFound, c.get("/api/story").StatusCode)
	resp, _ = c.post("/story", startForm)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStoryUI_HomePage(t *testing.T) {
	_, c := newTestServer(t, mocks.NewMockTextGenerator(t))

	home := c.get("/")
	require.Equal(t, http.StatusOK, home.StatusCode)
	assert.Contains(t, home.Header.Get("Content-Type"), "text/html")

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	home = c.get("/")
	require.Equal(t, http.StatusOK, home.StatusCode)
}

func TestStoryUI_WebSocketReplaysHistory(t *testing.T) {
	_, c := newTestServer(t, mocks.NewMockTextGenerator(t))
	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(c.server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, cookie := range c.client.Jar.Cookies(u) {
		header.Add("Cookie", cookie.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(c.server.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	var first, second generator.WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "Connection established", first.Message)
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "Story started.", second.Message)
}

func TestStoryUI_DownloadWhileWriting(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	gen.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(suggestionReply, nil)
	_, c := newTestServer(t, gen)

	resp, _ := c.post("/story", startForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	send := func(path string, form url.Values) error {
		req, err := http.NewRequest(http.MethodPost, c.server.URL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errors.New(path + ": " + resp.Status)
		}
		return nil
	}

	const rounds = 10
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, send("/story/suggestions", nil))
			assert.NoError(t, send("/story/choose", url.Values{"text": {"Another knock."}}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 3*rounds; i++ {
			for _, format := range []string{"txt", "json"} {
				resp, err := c.client.Get(c.server.URL + "/story/download?format=" + format)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				resp.Body.Close()
			}
		}
	}()
	wg.Wait()

	resp = c.get("/story/download?format=json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var segments []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&segments))
	assert.Len(t, segments, rounds+1)
}

func TestStoryUI_Health(t *testing.T) {
	_, c := newTestServer(t, mocks.NewMockTextGenerator(t))
	assert.Equal(t, http.StatusOK, c.get("/healthz").StatusCode)
	assert.Equal(t, http.StatusOK, c.get("/metrics").StatusCode)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errorStatus(&storyverse.MissingFieldError{Field: "genre"}))
	assert.Equal(t, http.StatusConflict, errorStatus(&storyverse.TransitionError{Op: "choose", State: storyverse.StateSetup}))
	assert.Equal(t, http.StatusConflict, errorStatus(storyverse.ErrRequestInFlight))
	assert.Equal(t, http.StatusBadGateway, errorStatus(storyverse.ErrGenerationUnavailable))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("disk full")))
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Plot Twist", kindLabel(storyverse.KindPlotTwist))
	assert.Equal(t, "Continuation", kindLabel(storyverse.KindContinuation))
}
