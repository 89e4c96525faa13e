package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/router"
	mocktest "pkdindustries/toolshack/internal/testing"
)

type fakeAPI struct {
	mu         sync.Mutex
	history    []*discordgo.Message
	historyErr error
	sendErr    error
	sent       []*discordgo.MessageSend
	edits      []*discordgo.MessageEdit
	deleted    []string
	typing     int
	limit      int
	nextID     int
}

var _ API = (*fakeAPI)(nil)

func (f *fakeAPI) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: strconv.Itoa(f.nextID), ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeAPI) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

var botUser = &discordgo.User{ID: "100", Username: "testbot"}

func newFrontend(t *testing.T) *Frontend {
	t.Helper()
	store, err := router.NewMediaStore(t.TempDir())
	require.NoError(t, err)
	f, err := New(mocktest.DefaultTestConfig(), commands.NewRegistry(), store, zap.NewNop().Sugar())
	require.NoError(t, err)
	return f
}

func testMessage(id, author, content string, at time.Time, mentioned ...*discordgo.User) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: "chan",
		GuildID:   "guild",
		Content:   content,
		Timestamp: at,
		Author:    &discordgo.User{ID: "u-" + author, Username: author},
		Mentions:  mentioned,
	}
}

func TestWindow_RelevantMessagesOldestFirst(t *testing.T) {
	f := newFrontend(t)
	at := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	own := &discordgo.Message{ID: "4", ChannelID: "chan", Content: "an earlier answer", Author: botUser, Timestamp: at}

	api := &fakeAPI{history: []*discordgo.Message{
		testMessage("5", "alice", "<@100> and now?", at.Add(time.Minute), botUser),
		own,
		testMessage("3", "bob", "chatter", at),
		testMessage("2", "carol", "<@100> first", at, botUser),
		testMessage("1", "dave", "<@100> too old", at, botUser),
	}}
	trigger := testMessage("5", "alice", "<@100> and now?", at.Add(time.Minute), botUser)
	req, cancel := f.newRequest(context.Background(), api, botUser, trigger, "general")
	defer cancel()

	window, err := req.Window(context.Background())
	require.NoError(t, err)
	require.Len(t, window, 3)

	assert.Equal(t, chat.RoleUser, window[0].Role)
	assert.Equal(t, "At 12:00:05 carol wrote: @testbot first", window[0].Content)
	assert.Equal(t, chat.Assistant("an earlier answer"), window[1])
	assert.Equal(t, "At 12:01:05 alice wrote: @testbot and now?", window[2].Content)
	assert.Equal(t, 20, api.limit)
}

func TestWindow_DirectMessagesAreAllRelevant(t *testing.T) {
	f := newFrontend(t)
	dm := testMessage("1", "alice", "hello", time.Now())
	dm.GuildID = ""
	api := &fakeAPI{history: []*discordgo.Message{dm}}

	req, cancel := f.newRequest(context.Background(), api, botUser, dm, "")
	defer cancel()

	window, err := req.Window(context.Background())
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.True(t, strings.HasSuffix(window[0].Content, "alice wrote: hello"))
	assert.Contains(t, req.Instructions(), "direct message (DM) chat with alice")
}

func TestWindow_DownloadsImages(t *testing.T) {
	downloads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads++
		_, _ = io.WriteString(w, "\x89PNG\r\n\x1a\n")
	}))
	defer srv.Close()

	f := newFrontend(t)
	m := testMessage("1", "alice", "<@100> what is this?", time.Now(), botUser)
	m.Attachments = []*discordgo.MessageAttachment{
		{ID: "a1", Filename: "cat.png", ContentType: "image/png", URL: srv.URL + "/cat.png"},
		{ID: "a2", Filename: "notes.txt", ContentType: "text/plain", URL: srv.URL + "/notes.txt"},
	}
	api := &fakeAPI{history: []*discordgo.Message{m}}
	req, cancel := f.newRequest(context.Background(), api, botUser, m, "general")
	defer cancel()

	for range 2 {
		window, err := req.Window(context.Background())
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Contains(t, window[0].Content, "\nImage name: cat.png")
		assert.Contains(t, window[0].Content, "\nFile name: notes.txt")
		require.Len(t, window[0].Attachments, 1)
		assert.FileExists(t, window[0].Attachments[0])
	}
	assert.Equal(t, 1, downloads, "stored attachments are not downloaded again")
}

type countingTransport struct {
	next  http.RoundTripper
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestConfigure_DownloadsThroughSessionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "payload")
	}))
	defer srv.Close()

	dg, err := discordgo.New("Bot token")
	require.NoError(t, err)
	transport := &countingTransport{next: srv.Client().Transport}
	dg.Client = &http.Client{Transport: transport}

	f := newFrontend(t)
	f.configure(dg)

	data, err := f.download(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, 1, transport.calls)
	assert.Equal(t, discordgo.IntentsGuildMessages|discordgo.IntentsDirectMessages|discordgo.IntentsMessageContent, dg.Identify.Intents)
}

func TestWindow_FetchError(t *testing.T) {
	f := newFrontend(t)
	m := testMessage("1", "alice", "<@100> hi", time.Now(), botUser)
	api := &fakeAPI{historyErr: errors.New("missing access")}
	req, cancel := f.newRequest(context.Background(), api, botUser, m, "general")
	defer cancel()

	_, err := req.Window(context.Background())
	assert.ErrorContains(t, err, "missing access")
}

func TestRequest_InstructionsAndArgs(t *testing.T) {
	f := newFrontend(t)
	m := testMessage("1", "alice", "<@100> /forget", time.Now(), botUser)
	req, cancel := f.newRequest(context.Background(), &fakeAPI{}, botUser, m, "general")
	defer cancel()

	assert.Equal(t, "/forget", req.GetCommand())
	assert.Equal(t, "chan", req.GetChannel())
	assert.Equal(t, "You are testbot. You are in the Discord channel: general.\n\nYou are a test bot.", req.Instructions())
}

func TestRequest_IsAdmin(t *testing.T) {
	f := newFrontend(t)
	m := testMessage("1", "alice", "hi", time.Now())
	req, cancel := f.newRequest(context.Background(), &fakeAPI{}, botUser, m, "general")
	defer cancel()

	assert.True(t, req.IsAdmin(), "empty admin list admits everyone")
	f.cfg.Bot.Admins = []string{"u-bob"}
	assert.False(t, req.IsAdmin())
	f.cfg.Bot.Admins = []string{"alice"}
	assert.True(t, req.IsAdmin())
}

func newSink(api *fakeAPI) *Sink {
	return NewSink(api, "chan", "testbot answer.txt", 20*time.Millisecond, time.Second, zap.NewNop().Sugar())
}

func TestSink_LongReplyIsSentAsFile(t *testing.T) {
	api := &fakeAPI{}
	s := newSink(api)

	require.NoError(t, s.Emit(context.Background(), events.Reply{Text: "short"}))
	require.NoError(t, s.Emit(context.Background(), events.Reply{Text: strings.Repeat("x", 2001)}))
	require.NoError(t, s.Emit(context.Background(), events.Reply{Text: "   "}))

	require.Len(t, api.sent, 2)
	assert.Equal(t, "short", api.sent[0].Content)
	require.Len(t, api.sent[1].Files, 1)
	assert.Equal(t, "testbot answer.txt", api.sent[1].Files[0].Name)
}

func TestSink_ReplyFailureIsReturned(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("rate limited")}
	err := newSink(api).Emit(context.Background(), events.Reply{Text: "hi"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestSink_StatusEditedInPlace(t *testing.T) {
	api := &fakeAPI{}
	s := newSink(api)
	ctx := context.Background()

	require.NoError(t, s.Emit(ctx, events.Status{Key: "draw", Text: "Calling tool **draw**:"}))
	require.NoError(t, s.Emit(ctx, events.Status{Key: "draw", Text: "still drawing"}))

	assert.Len(t, api.sent, 1)
	assert.Len(t, api.edits, 1)
	assert.Equal(t, "still drawing", s.temps["draw"].embed.Description)

	require.NoError(t, s.Emit(ctx, events.RemoveStatus{Key: "draw"}))
	assert.Equal(t, []string{"1"}, api.deletedIDs())
	assert.Empty(t, s.temps)
}

func TestSink_ProgressIsThrottled(t *testing.T) {
	api := &fakeAPI{}
	s := newSink(api)
	now := time.Unix(0, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Emit(ctx, events.Progress{Key: "progress", Current: 1, Total: 10}))
	require.NoError(t, s.Emit(ctx, events.Progress{Key: "progress", Current: 2, Total: 10}))
	now = now.Add(2 * time.Second)
	require.NoError(t, s.Emit(ctx, events.Progress{Key: "progress", Current: 3, Total: 10}))
	require.NoError(t, s.Emit(ctx, events.Progress{Key: "progress", Current: 10, Total: 10}))

	assert.Len(t, api.sent, 1)
	assert.Len(t, api.edits, 2, "throttled updates are dropped, completion always shows")
	assert.Contains(t, s.temps["progress"].embed.Description, "100%")
}

func TestSink_PreviewAttachesImage(t *testing.T) {
	api := &fakeAPI{}
	s := newSink(api)

	require.NoError(t, s.Emit(context.Background(), events.Progress{Key: "progress", Current: 1, Total: 2}))
	require.NoError(t, s.Emit(context.Background(), events.Preview{Key: "progress", Data: []byte("img"), Filename: "preview.png"}))

	require.Len(t, api.edits, 1)
	require.Len(t, api.edits[0].Files, 1)
	assert.Equal(t, "attachment://preview.png", s.temps["progress"].embed.Image.URL)
}

func TestSink_CloseKeepsErrorsForDelay(t *testing.T) {
	api := &fakeAPI{}
	s := newSink(api)
	ctx := context.Background()

	require.NoError(t, s.Emit(ctx, events.Status{Key: "search", Text: "Calling tool"}))
	require.NoError(t, s.Emit(ctx, events.Error{Text: "the model is busy"}))
	assert.Equal(t, colorError, api.sent[1].Embeds[0].Color)

	s.Close()
	assert.Equal(t, []string{"1"}, api.deletedIDs())
	assert.Eventually(t, func() bool {
		return len(api.deletedIDs()) == 2
	}, time.Second, 5*time.Millisecond)
}

type recordingCommand struct {
	requests []commands.Request
}

func (c *recordingCommand) Name() string    { return "" }
func (c *recordingCommand) AdminOnly() bool { return false }
func (c *recordingCommand) Execute(req commands.Request) {
	c.requests = append(c.requests, req)
	_ = req.Sink().Emit(req, events.Status{Key: "tool", Text: "working"})
	req.Reply("done")
}

func TestHandle_DispatchesAndCleansUp(t *testing.T) {
	f := newFrontend(t)
	cmd := &recordingCommand{}
	f.registry.Register(cmd)
	api := &fakeAPI{}

	m := testMessage("1", "alice", "<@100> hello", time.Now(), botUser)
	f.handle(context.Background(), api, botUser, m, "general")

	require.Len(t, cmd.requests, 1)
	assert.Equal(t, []string{"hello"}, cmd.requests[0].GetArgs())
	require.Len(t, api.sent, 2)
	assert.Equal(t, "done", api.sent[1].Content)
	assert.Equal(t, []string{"1"}, api.deletedIDs(), "temporary status removed at turn end")
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, []string{"/help"}, commandArgs("<@100> /help", "100"))
	assert.Equal(t, []string{"hi", "there"}, commandArgs("hi <@!100> there", "100"))
	assert.Empty(t, commandArgs("<@100>", "100"))
}
