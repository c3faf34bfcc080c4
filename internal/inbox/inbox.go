// Package inbox holds the unified, filterable session view over
// customers, messages and response templates. The Inbox is the single
// source of truth the presentation layer reads from: data flows in via
// repository fetches and change-feed pings, mutations flow out through
// the repository and merge the canonical server response back in.
package inbox

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"support-inbox/internal/adapter"
	"support-inbox/internal/feed"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"
)

// Repository is the slice of the store the aggregator depends on.
type Repository interface {
	FetchCustomers(ctx context.Context) ([]models.Customer, error)
	FetchMessages(ctx context.Context) ([]models.Message, error)
	FetchTemplates(ctx context.Context) ([]models.ResponseTemplate, error)
	FetchCustomerByID(ctx context.Context, id string) (models.Customer, error)
	FetchMessageByID(ctx context.Context, id string) (models.Message, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error)
	CreateMessage(ctx context.Context, message models.Message) (models.Message, error)
	CreateTemplate(ctx context.Context, template models.ResponseTemplate) (models.ResponseTemplate, error)
	UpdateCustomer(ctx context.Context, id string, patch adapter.CustomerPatch) (models.Customer, error)
	UpdateMessage(ctx context.Context, id string, patch adapter.MessagePatch) (models.Message, error)
	UpdateTemplate(ctx context.Context, id string, patch adapter.TemplatePatch) (models.ResponseTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// ReplyDispatcher routes a reply to the message's originating channel.
type ReplyDispatcher interface {
	DispatchReply(ctx context.Context, message models.Message, customer models.Customer, content string) error
}

type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
	StatusFailed  LoadStatus = "failed"
)

// FilterAll disables a channel or category filter.
const FilterAll = "all"

// Filters is the session-scoped filter state.
type Filters struct {
	Channel  string // a Channel value or "all"
	Category string // a MessageCategory value or "all"
	Query    string
}

type Inbox struct {
	repo       Repository
	dispatcher ReplyDispatcher
	bus        *feed.Bus

	mu         sync.Mutex
	customers  map[string]models.Customer
	messages   map[string]models.Message
	templates  map[string]models.ResponseTemplate
	filters    Filters
	selectedID string
	status     LoadStatus
	loadErr    error
	unsubs     []func()

	// refreshMu serializes whole refresh cycles so an older snapshot can
	// never land after a newer one. refreshCh coalesces feed pings.
	refreshMu sync.Mutex
	refreshCh chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New builds an idle Inbox. bus may be nil for sessions without live
// refresh (tests, one-shot tools).
func New(repo Repository, dispatcher ReplyDispatcher, bus *feed.Bus) *Inbox {
	return &Inbox{
		repo:       repo,
		dispatcher: dispatcher,
		bus:        bus,
		customers:  map[string]models.Customer{},
		messages:   map[string]models.Message{},
		templates:  map[string]models.ResponseTemplate{},
		filters:    Filters{Channel: FilterAll, Category: FilterAll},
		status:     StatusIdle,
		refreshCh:  make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start subscribes to change-feed pings on the messages and customers
// tables; each ping triggers a full re-synchronization. Close releases
// the subscriptions.
func (in *Inbox) Start(ctx context.Context) error {
	if in.bus != nil {
		onChange := func() {
			// Callbacks fire on the bus dispatch goroutine; hand the IO
			// off to the refresh worker. A ping arriving while one is
			// already queued is covered by the queued refresh.
			select {
			case in.refreshCh <- struct{}{}:
			default:
			}
		}
		in.mu.Lock()
		in.unsubs = append(in.unsubs,
			in.bus.SubscribeTable("messages", onChange),
			in.bus.SubscribeTable("customers", onChange),
			in.bus.SubscribeTable("response_templates", onChange),
		)
		in.mu.Unlock()
		go in.refreshLoop()
	}
	return in.Refresh(ctx)
}

func (in *Inbox) refreshLoop() {
	for {
		select {
		case <-in.refreshCh:
			if err := in.Refresh(context.Background()); err != nil {
				log.Printf("Inbox refresh after change event failed: %v", err)
			}
		case <-in.done:
			return
		}
	}
}

func (in *Inbox) Close() {
	in.closeOnce.Do(func() { close(in.done) })
	in.mu.Lock()
	unsubs := in.unsubs
	in.unsubs = nil
	in.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Refresh re-synchronizes the snapshot from the repository. The three
// fetches run in parallel; on any failure the previous snapshot is kept
// and the status moves to Failed. Refresh cycles never overlap.
func (in *Inbox) Refresh(ctx context.Context) error {
	in.refreshMu.Lock()
	defer in.refreshMu.Unlock()

	in.mu.Lock()
	in.status = StatusLoading
	in.mu.Unlock()

	var (
		wg                       sync.WaitGroup
		customers                []models.Customer
		messages                 []models.Message
		templates                []models.ResponseTemplate
		custErr, msgErr, tmplErr error
	)
	wg.Add(3)
	go func() { defer wg.Done(); customers, custErr = in.repo.FetchCustomers(ctx) }()
	go func() { defer wg.Done(); messages, msgErr = in.repo.FetchMessages(ctx) }()
	go func() { defer wg.Done(); templates, tmplErr = in.repo.FetchTemplates(ctx) }()
	wg.Wait()

	err := custErr
	if err == nil {
		err = msgErr
	}
	if err == nil {
		err = tmplErr
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if err != nil {
		in.status = StatusFailed
		in.loadErr = err
		return err
	}

	in.customers = make(map[string]models.Customer, len(customers))
	for _, customer := range customers {
		in.customers[customer.ID] = customer
	}
	in.messages = make(map[string]models.Message, len(messages))
	for _, message := range messages {
		in.messages[message.ID] = message
	}
	in.templates = make(map[string]models.ResponseTemplate, len(templates))
	for _, template := range templates {
		in.templates[template.ID] = template
	}
	in.status = StatusReady
	in.loadErr = nil
	return nil
}

func (in *Inbox) Status() (LoadStatus, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.status, in.loadErr
}

// --- filter & selection state ---

func (in *Inbox) SetChannelFilter(channel string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.filters.Channel = channel
}

func (in *Inbox) SetCategoryFilter(category string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.filters.Category = category
}

func (in *Inbox) SetSearchQuery(query string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.filters.Query = query
}

func (in *Inbox) CurrentFilters() Filters {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.filters
}

// SelectMessage marks a message as the active one; unknown ids clear the
// selection.
func (in *Inbox) SelectMessage(id string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.messages[id]; ok {
		in.selectedID = id
	} else {
		in.selectedID = ""
	}
}

// SelectedMessage resolves the selection and its related customer.
func (in *Inbox) SelectedMessage() (models.Message, models.Customer, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	message, ok := in.messages[in.selectedID]
	if !ok {
		return models.Message{}, models.Customer{}, false
	}
	customer := in.customers[message.CustomerID]
	return message, customer, true
}

// --- derived views ---

// VisibleMessages applies the three filters conjunctively and sorts the
// result newest-first. Pure function of current state, recomputed per
// call.
func (in *Inbox) VisibleMessages() []models.Message {
	in.mu.Lock()
	filters := in.filters
	visible := make([]models.Message, 0, len(in.messages))
	for _, message := range in.messages {
		if matches(message, filters) {
			visible = append(visible, message)
		}
	}
	in.mu.Unlock()

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Timestamp.Equal(visible[j].Timestamp) {
			return visible[i].ID > visible[j].ID
		}
		return visible[i].Timestamp.After(visible[j].Timestamp)
	})
	return visible
}

func matches(message models.Message, filters Filters) bool {
	if filters.Channel != FilterAll && filters.Channel != "" && string(message.Channel) != filters.Channel {
		return false
	}
	if filters.Category != FilterAll && filters.Category != "" && string(message.Category) != filters.Category {
		return false
	}
	if filters.Query != "" {
		query := strings.ToLower(filters.Query)
		if !strings.Contains(strings.ToLower(message.Content), query) &&
			!strings.Contains(strings.ToLower(message.Subject), query) {
			return false
		}
	}
	return true
}

// Customers returns the cached customers ordered by name.
func (in *Inbox) Customers() []models.Customer {
	in.mu.Lock()
	customers := make([]models.Customer, 0, len(in.customers))
	for _, customer := range in.customers {
		customers = append(customers, customer)
	}
	in.mu.Unlock()

	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers
}

// Templates returns the cached response templates ordered by name.
func (in *Inbox) Templates() []models.ResponseTemplate {
	in.mu.Lock()
	templates := make([]models.ResponseTemplate, 0, len(in.templates))
	for _, template := range in.templates {
		templates = append(templates, template)
	}
	in.mu.Unlock()

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates
}

// --- mutations ---
// All mutations persist first and merge the canonical server response on
// success; on failure the snapshot is left untouched. No optimistic
// pre-update is applied.

func (in *Inbox) MarkRead(ctx context.Context, id string) (models.Message, error) {
	isRead := true
	updated, err := in.repo.UpdateMessage(ctx, id, adapter.MessagePatch{IsRead: &isRead})
	if err != nil {
		return models.Message{}, err
	}
	in.mergeMessage(updated)
	return updated, nil
}

func (in *Inbox) Categorize(ctx context.Context, id string, category models.MessageCategory) (models.Message, error) {
	if _, ok := models.ParseCategory(string(category)); !ok {
		return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "unknown message category "+string(category))
	}
	updated, err := in.repo.UpdateMessage(ctx, id, adapter.MessagePatch{Category: &category})
	if err != nil {
		return models.Message{}, err
	}
	in.mergeMessage(updated)
	return updated, nil
}

// Reply records the reply on the message and dispatches it over the
// originating channel. The persistence outcome and the dispatch outcome
// are independent: a persistence failure leaves state untouched and is
// returned as-is, while a dispatch failure (TRANSPORT_ERROR or
// MISSING_CONTACT_INFO) is returned alongside the persisted message —
// the local conversation record takes priority over delivery.
func (in *Inbox) Reply(ctx context.Context, id, content string) (models.Message, error) {
	in.mu.Lock()
	message, ok := in.messages[id]
	customer, hasCustomer := in.customers[message.CustomerID]
	in.mu.Unlock()

	var err error
	if !ok {
		message, err = in.repo.FetchMessageByID(ctx, id)
		if err != nil {
			return models.Message{}, err
		}
	}
	if !hasCustomer {
		customer, err = in.repo.FetchCustomerByID(ctx, message.CustomerID)
		if err != nil {
			return models.Message{}, err
		}
	}

	dispatchErr := in.dispatcher.DispatchReply(ctx, message, customer, content)
	if dispatchErr != nil {
		log.Printf("Reply dispatch for message %s failed: %v", id, dispatchErr)
	}

	isReplied := true
	now := time.Now().UTC()
	updated, err := in.repo.UpdateMessage(ctx, id, adapter.MessagePatch{
		IsReplied:      &isReplied,
		ReplyContent:   &content,
		ReplyTimestamp: &now,
	})
	if err != nil {
		return models.Message{}, err
	}
	in.mergeMessage(updated)
	return updated, dispatchErr
}

func (in *Inbox) UpdateCustomerNotes(ctx context.Context, id, notes string) (models.Customer, error) {
	updated, err := in.repo.UpdateCustomer(ctx, id, adapter.CustomerPatch{Notes: &notes})
	if err != nil {
		return models.Customer{}, err
	}
	in.mergeCustomer(updated)
	return updated, nil
}

func (in *Inbox) UpdateCustomerStatus(ctx context.Context, id string, status models.CustomerStatus) (models.Customer, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeValidation, "unknown customer status "+string(status))
	}
	updated, err := in.repo.UpdateCustomer(ctx, id, adapter.CustomerPatch{Status: &status})
	if err != nil {
		return models.Customer{}, err
	}
	in.mergeCustomer(updated)
	return updated, nil
}

// CreateMessage persists a new message and appends it to the snapshot,
// returning the stored entity so callers can chain further operations on
// the fresh id.
func (in *Inbox) CreateMessage(ctx context.Context, message models.Message) (models.Message, error) {
	created, err := in.repo.CreateMessage(ctx, message)
	if err != nil {
		return models.Message{}, err
	}
	in.mergeMessage(created)
	return created, nil
}

func (in *Inbox) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	created, err := in.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return models.Customer{}, err
	}
	in.mergeCustomer(created)
	return created, nil
}

func (in *Inbox) AddTemplate(ctx context.Context, template models.ResponseTemplate) (models.ResponseTemplate, error) {
	created, err := in.repo.CreateTemplate(ctx, template)
	if err != nil {
		return models.ResponseTemplate{}, err
	}
	in.mu.Lock()
	in.templates[created.ID] = created
	in.mu.Unlock()
	return created, nil
}

func (in *Inbox) UpdateTemplate(ctx context.Context, id string, patch adapter.TemplatePatch) (models.ResponseTemplate, error) {
	updated, err := in.repo.UpdateTemplate(ctx, id, patch)
	if err != nil {
		return models.ResponseTemplate{}, err
	}
	in.mu.Lock()
	in.templates[updated.ID] = updated
	in.mu.Unlock()
	return updated, nil
}

func (in *Inbox) DeleteTemplate(ctx context.Context, id string) error {
	if err := in.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	in.mu.Lock()
	delete(in.templates, id)
	in.mu.Unlock()
	return nil
}

// mergeMessage applies the canonical server response to the snapshot.
// The merge is atomic with respect to other state access; a concurrent
// feed-triggered refresh may briefly overwrite it and the next refresh
// re-converges (documented staleness window).
func (in *Inbox) mergeMessage(message models.Message) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.messages[message.ID] = message
}

func (in *Inbox) mergeCustomer(customer models.Customer) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.customers[customer.ID] = customer
}
