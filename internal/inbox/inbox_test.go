package inbox

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"support-inbox/internal/adapter"
	"support-inbox/internal/feed"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository with per-method failure injection.
// Safe for concurrent use: the refresh worker reads it while tests
// mutate it.
type fakeRepo struct {
	mu        sync.Mutex
	customers map[string]models.Customer
	messages  map[string]models.Message
	templates map[string]models.ResponseTemplate

	fetchMessagesErr error
	updateMessageErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		customers: map[string]models.Customer{},
		messages:  map[string]models.Message{},
		templates: map[string]models.ResponseTemplate{},
	}
}

func (r *fakeRepo) FetchCustomers(context.Context) ([]models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) FetchMessages(context.Context) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchMessagesErr != nil {
		return nil, r.fetchMessagesErr
	}
	out := make([]models.Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeRepo) FetchTemplates(context.Context) ([]models.ResponseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ResponseTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRepo) FetchCustomerByID(_ context.Context, id string) (models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeNotFound, "customer not found")
	}
	return c, nil
}

func (r *fakeRepo) FetchMessageByID(_ context.Context, id string) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return models.Message{}, apperrors.New(apperrors.ErrCodeNotFound, "message not found")
	}
	return m, nil
}

func (r *fakeRepo) CreateCustomer(_ context.Context, c models.Customer) (models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = "generated"
	}
	r.customers[c.ID] = c
	return c, nil
}

func (r *fakeRepo) CreateMessage(_ context.Context, m models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = "generated"
	}
	r.messages[m.ID] = m
	return m, nil
}

func (r *fakeRepo) CreateTemplate(_ context.Context, t models.ResponseTemplate) (models.ResponseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = "generated"
	}
	r.templates[t.ID] = t
	return t, nil
}

func (r *fakeRepo) UpdateCustomer(_ context.Context, id string, patch adapter.CustomerPatch) (models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeNotFound, "customer not found")
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.Notes != nil {
		c.Notes = *patch.Notes
	}
	r.customers[id] = c
	return c, nil
}

func (r *fakeRepo) UpdateMessage(_ context.Context, id string, patch adapter.MessagePatch) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateMessageErr != nil {
		return models.Message{}, r.updateMessageErr
	}
	m, ok := r.messages[id]
	if !ok {
		return models.Message{}, apperrors.New(apperrors.ErrCodeNotFound, "message not found")
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.IsRead != nil {
		m.IsRead = *patch.IsRead
	}
	if patch.Category != nil {
		m.Category = *patch.Category
	}
	if patch.IsReplied != nil {
		m.IsReplied = *patch.IsReplied
	}
	if patch.ReplyContent != nil {
		m.ReplyContent = *patch.ReplyContent
	}
	if patch.ReplyTimestamp != nil {
		ts := *patch.ReplyTimestamp
		m.ReplyTimestamp = &ts
	}
	r.messages[id] = m
	return m, nil
}

func (r *fakeRepo) UpdateTemplate(_ context.Context, id string, patch adapter.TemplatePatch) (models.ResponseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeNotFound, "template not found")
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if patch.Keywords != nil {
		t.Keywords = patch.Keywords
	}
	r.templates[id] = t
	return t, nil
}

func (r *fakeRepo) DeleteTemplate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, "template not found")
	}
	delete(r.templates, id)
	return nil
}

type stubDispatcher struct {
	err      error
	messages []models.Message
	contents []string
}

func (d *stubDispatcher) DispatchReply(_ context.Context, message models.Message, _ models.Customer, content string) error {
	d.messages = append(d.messages, message)
	d.contents = append(d.contents, content)
	return d.err
}

func seededRepo(t *testing.T) *fakeRepo {
	t.Helper()
	repo := newFakeRepo()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.customers["c1"] = models.Customer{ID: "c1", Name: "Alex", Email: "alex@example.com", Phone: "+15551234567", Status: models.StatusActive}
	repo.customers["c2"] = models.Customer{ID: "c2", Name: "Sarah", Email: "sarah@example.com", Status: models.StatusNew}
	repo.messages["m1"] = models.Message{ID: "m1", CustomerID: "c1", Channel: models.ChannelEmail, Subject: "Order #42", Content: "Where is my order?", Category: models.CategorySupport, Timestamp: base}
	repo.messages["m2"] = models.Message{ID: "m2", CustomerID: "c2", Channel: models.ChannelWhatsApp, Content: "Do you ship to Berlin?", Category: models.CategoryInquiry, Timestamp: base.Add(time.Hour)}
	repo.messages["m3"] = models.Message{ID: "m3", CustomerID: "c1", Channel: models.ChannelEmail, Content: "Thanks for the quick order fix!", Category: models.CategoryFeedback, Timestamp: base.Add(2 * time.Hour)}
	repo.templates["t1"] = models.ResponseTemplate{ID: "t1", Name: "Shipping delay", Content: "..."}
	return repo
}

func startedInbox(t *testing.T, repo *fakeRepo, dispatcher ReplyDispatcher) *Inbox {
	t.Helper()
	if dispatcher == nil {
		dispatcher = &stubDispatcher{}
	}
	in := New(repo, dispatcher, nil)
	require.NoError(t, in.Start(context.Background()))
	t.Cleanup(in.Close)
	return in
}

func messageIDs(messages []models.Message) []string {
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return ids
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	status, err := in.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Len(t, in.VisibleMessages(), 3)
	assert.Len(t, in.Customers(), 2)
	assert.Len(t, in.Templates(), 1)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	repo := seededRepo(t)
	in := startedInbox(t, repo, nil)

	repo.fetchMessagesErr = apperrors.New(apperrors.ErrCodeInternal, "db gone")
	err := in.Refresh(context.Background())
	require.Error(t, err)

	status, loadErr := in.Status()
	assert.Equal(t, StatusFailed, status)
	assert.Error(t, loadErr)
	// The last good snapshot stays visible.
	assert.Len(t, in.VisibleMessages(), 3)
}

func TestVisibleMessagesOrderedNewestFirst(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)
	assert.Equal(t, []string{"m3", "m2", "m1"}, messageIDs(in.VisibleMessages()))
}

func TestFiltersCompose(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	in.SetChannelFilter(string(models.ChannelEmail))
	assert.Equal(t, []string{"m3", "m1"}, messageIDs(in.VisibleMessages()))

	in.SetCategoryFilter(string(models.CategorySupport))
	assert.Equal(t, []string{"m1"}, messageIDs(in.VisibleMessages()))

	// The query matches content and subject case-insensitively.
	in.SetSearchQuery("ORDER")
	assert.Equal(t, []string{"m1"}, messageIDs(in.VisibleMessages()))

	in.SetSearchQuery("berlin")
	assert.Empty(t, in.VisibleMessages())

	// Resetting to "all" widens the view again.
	in.SetChannelFilter(FilterAll)
	in.SetCategoryFilter(FilterAll)
	in.SetSearchQuery("")
	assert.Len(t, in.VisibleMessages(), 3)
}

func TestSearchMatchesSubject(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)
	in.SetSearchQuery("#42")
	assert.Equal(t, []string{"m1"}, messageIDs(in.VisibleMessages()))
}

func TestSelectMessage(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	in.SelectMessage("m2")
	message, customer, ok := in.SelectedMessage()
	require.True(t, ok)
	assert.Equal(t, "m2", message.ID)
	assert.Equal(t, "Sarah", customer.Name)

	// Unknown ids clear the selection.
	in.SelectMessage("nope")
	_, _, ok = in.SelectedMessage()
	assert.False(t, ok)
}

func TestMarkReadTouchesOnlyReadFlag(t *testing.T) {
	repo := seededRepo(t)
	in := startedInbox(t, repo, nil)
	before := repo.messages["m1"]

	updated, err := in.MarkRead(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.Equal(t, before.Content, updated.Content)
	assert.Equal(t, before.Category, updated.Category)
	assert.False(t, updated.IsReplied)
}

func TestCategorize(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	updated, err := in.Categorize(context.Background(), "m2", models.CategoryComplaint)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryComplaint, updated.Category)

	in.SetCategoryFilter(string(models.CategoryComplaint))
	assert.Equal(t, []string{"m2"}, messageIDs(in.VisibleMessages()))
}

func TestReplyPersistsAndDispatches(t *testing.T) {
	repo := seededRepo(t)
	dispatcher := &stubDispatcher{}
	in := startedInbox(t, repo, dispatcher)

	start := time.Now().UTC()
	updated, err := in.Reply(context.Background(), "m1", "It ships tomorrow.")
	require.NoError(t, err)

	assert.True(t, updated.IsReplied)
	assert.Equal(t, "It ships tomorrow.", updated.ReplyContent)
	require.NotNil(t, updated.ReplyTimestamp)
	assert.False(t, updated.ReplyTimestamp.Before(start))

	require.Len(t, dispatcher.messages, 1)
	assert.Equal(t, "m1", dispatcher.messages[0].ID)
	assert.Equal(t, "It ships tomorrow.", dispatcher.contents[0])

	// The stored row reflects the reply.
	assert.True(t, repo.messages["m1"].IsReplied)
}

func TestReplyPersistsDespiteDispatchFailure(t *testing.T) {
	repo := seededRepo(t)
	dispatcher := &stubDispatcher{err: apperrors.New(apperrors.ErrCodeMissingContactInfo, "customer has no phone number")}
	in := startedInbox(t, repo, dispatcher)

	updated, err := in.Reply(context.Background(), "m2", "Yes, we ship to Berlin.")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingContactInfo, apperrors.CodeOf(err))

	// The conversation record wins over delivery.
	assert.True(t, updated.IsReplied)
	assert.Equal(t, "Yes, we ship to Berlin.", updated.ReplyContent)
	assert.True(t, repo.messages["m2"].IsReplied)
}

func TestReplyPersistenceFailureLeavesSnapshotUntouched(t *testing.T) {
	repo := seededRepo(t)
	in := startedInbox(t, repo, &stubDispatcher{})

	repo.updateMessageErr = apperrors.New(apperrors.ErrCodeInternal, "db gone")
	updated, err := in.Reply(context.Background(), "m1", "hello")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
	assert.Empty(t, updated.ID)

	for _, m := range in.VisibleMessages() {
		assert.False(t, m.IsReplied, "message %s must not be marked replied", m.ID)
	}
}

func TestReplyUnknownMessage(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	_, err := in.Reply(context.Background(), "missing", "hello")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestCategorizeRejectsUnknownCategory(t *testing.T) {
	repo := seededRepo(t)
	in := startedInbox(t, repo, nil)

	_, err := in.Categorize(context.Background(), "m2", models.MessageCategory("spam"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))

	// Nothing reached the repository.
	stored, err := repo.FetchMessageByID(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryInquiry, stored.Category)
}

func TestUpdateCustomerStatusRejectsUnknownValue(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	_, err := in.UpdateCustomerStatus(context.Background(), "c1", models.CustomerStatus("platinum"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestUpdateCustomerNotes(t *testing.T) {
	repo := seededRepo(t)
	in := startedInbox(t, repo, nil)

	updated, err := in.UpdateCustomerNotes(context.Background(), "c1", "prefers email")
	require.NoError(t, err)
	assert.Equal(t, "prefers email", updated.Notes)
	// Only notes changed.
	assert.Equal(t, models.StatusActive, repo.customers["c1"].Status)
}

func TestCreateMessageMergesIntoSnapshot(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	created, err := in.CreateMessage(context.Background(), models.Message{
		ID:         "m4",
		CustomerID: "c1",
		Channel:    models.ChannelInstagram,
		Content:    "Love the new collection!",
		Timestamp:  time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "m4", created.ID)
	assert.Equal(t, []string{"m4", "m3", "m2", "m1"}, messageIDs(in.VisibleMessages()))
}

// slowRepo stretches FetchMessages so overlapping refresh cycles would
// be observable.
type slowRepo struct {
	*fakeRepo
	inflight    int32
	maxInflight int32
}

func (r *slowRepo) FetchMessages(ctx context.Context) ([]models.Message, error) {
	n := atomic.AddInt32(&r.inflight, 1)
	for {
		max := atomic.LoadInt32(&r.maxInflight)
		if n <= max || atomic.CompareAndSwapInt32(&r.maxInflight, max, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&r.inflight, -1)
	return r.fakeRepo.FetchMessages(ctx)
}

func TestRefreshCyclesNeverOverlap(t *testing.T) {
	repo := &slowRepo{fakeRepo: seededRepo(t)}
	in := New(repo, &stubDispatcher{}, nil)
	t.Cleanup(in.Close)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, in.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.maxInflight),
		"an older refresh must never run concurrently with a newer one")
}

func TestFeedPingTriggersRefresh(t *testing.T) {
	repo := seededRepo(t)
	bus := feed.NewBus()
	go bus.Run()
	t.Cleanup(bus.Close)

	in := New(repo, &stubDispatcher{}, bus)
	require.NoError(t, in.Start(context.Background()))
	t.Cleanup(in.Close)

	repo.mu.Lock()
	repo.messages["m9"] = models.Message{
		ID:         "m9",
		CustomerID: "c1",
		Channel:    models.ChannelEmail,
		Content:    "late arrival",
		Timestamp:  time.Now().UTC(),
	}
	repo.mu.Unlock()

	// A burst of pings coalesces; the snapshot still converges.
	for i := 0; i < 5; i++ {
		bus.Publish(feed.Event{Table: "messages", Kind: feed.KindInsert})
	}

	require.Eventually(t, func() bool {
		for _, m := range in.VisibleMessages() {
			if m.ID == "m9" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTemplateLifecycle(t *testing.T) {
	in := startedInbox(t, seededRepo(t), nil)

	created, err := in.AddTemplate(context.Background(), models.ResponseTemplate{ID: "t2", Name: "Refund", Content: "Refund issued."})
	require.NoError(t, err)
	assert.Len(t, in.Templates(), 2)

	name := "Refund policy"
	updated, err := in.UpdateTemplate(context.Background(), created.ID, adapter.TemplatePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Refund policy", updated.Name)

	require.NoError(t, in.DeleteTemplate(context.Background(), created.ID))
	assert.Len(t, in.Templates(), 1)

	err = in.DeleteTemplate(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}
