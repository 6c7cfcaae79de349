package handler

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// cmdHandler is the dispatcher-facing surface every handler under test
// implements.
type cmdHandler interface {
	Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error)
}

// testConn drives one protocol session over an in-process pipe. A background
// goroutine drains response lines so handler writes never block.
type testConn struct {
	sess   *protocol.Session
	client net.Conn
	lines  chan string
}

func newTestConn(t *testing.T) *testConn {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	tc := &testConn{
		sess:   protocol.NewSession(serverEnd, nil),
		client: clientEnd,
		lines:  make(chan string, 64),
	}
	go func() {
		r := bufio.NewReader(clientEnd)
		for {
			l, err := r.ReadString('\n')
			if err != nil {
				close(tc.lines)
				return
			}
			tc.lines <- strings.TrimSuffix(l, "\n")
		}
	}()
	t.Cleanup(func() {
		_ = serverEnd.Close()
		_ = clientEnd.Close()
	})
	return tc
}

// call runs one command to completion: the handler consumes the argument
// lines while the test feeds them in, then call waits for the handler to
// return. Responses are collected by the drain goroutine; assert them with
// expect.
func (c *testConn) call(t *testing.T, h cmdHandler, cmd string, args ...string) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		claimed, err := h.Handle(context.Background(), cmd, c.sess)
		if err == nil && !claimed {
			err = errors.New("command not claimed: " + cmd)
		}
		done <- err
	}()
	for _, a := range args {
		if _, err := c.client.Write([]byte(a + "\n")); err != nil {
			t.Fatalf("write arg %q: %v", a, err)
		}
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handle %s: %v", cmd, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handle %s did not finish", cmd)
	}
}

// expect asserts the next response lines in order.
func (c *testConn) expect(t *testing.T, want ...string) {
	t.Helper()
	for i, w := range want {
		select {
		case got, ok := <-c.lines:
			if !ok {
				t.Fatalf("stream closed before line %d (%q)", i, w)
			}
			if got != w {
				t.Fatalf("response line %d = %q, want %q", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no response line %d (want %q)", i, w)
		}
	}
}

// next returns the next response line without asserting its value.
func (c *testConn) next(t *testing.T) string {
	t.Helper()
	select {
	case got, ok := <-c.lines:
		if !ok {
			t.Fatal("stream closed")
		}
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no response line")
	}
	return ""
}

type memReview struct {
	id       uint64
	userID   uint64
	venueID  uint64
	stars    int
	text     string
	response string
}

// memStore is an in-memory implementation of every store interface, with the
// same sentinel-error contract as the SQL repositories.
type memStore struct {
	mu         sync.Mutex
	users      map[uint64]repository.User
	byUsername map[string]uint64
	venues     map[uint64]repository.Restaurant
	reviews    map[uint64]*memReview
	favourites map[[2]uint64]bool
	nextUser   uint64
	nextVenue  uint64
	nextReview uint64
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[uint64]repository.User),
		byUsername: make(map[string]uint64),
		venues:     make(map[uint64]repository.Restaurant),
		reviews:    make(map[uint64]*memReview),
		favourites: make(map[[2]uint64]bool),
	}
}

func (m *memStore) Create(ctx context.Context, u *repository.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, taken := m.byUsername[key]; taken {
		return repository.ErrUsernameExists
	}
	m.nextUser++
	u.ID = m.nextUser
	u.Username = key
	m.users[u.ID] = *u
	m.byUsername[key] = u.ID
	return nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, found := m.byUsername[strings.ToLower(username)]
	if !found {
		return repository.User{}, repository.ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, found := m.users[id]
	if !found {
		return repository.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) CreateVenue(ctx context.Context, v *repository.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextVenue++
	v.ID = m.nextVenue
	m.venues[v.ID] = *v
	return nil
}

func (m *memStore) Update(ctx context.Context, v *repository.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.venues[v.ID]; !found {
		return repository.ErrVenueNotFound
	}
	m.venues[v.ID] = *v
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.venues[id]; !found {
		return repository.ErrVenueNotFound
	}
	delete(m.venues, id)
	for rid, v := range m.reviews {
		if v.venueID == id {
			delete(m.reviews, rid)
		}
	}
	for key := range m.favourites {
		if key[1] == id {
			delete(m.favourites, key)
		}
	}
	return nil
}

func (m *memStore) HasAccess(ctx context.Context, ownerID, venueID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.venues[venueID]
	return found && v.OwnerID == ownerID, nil
}

func (m *memStore) Info(ctx context.Context, id uint64) (repository.RestaurantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.venues[id]
	if !found {
		return repository.RestaurantInfo{}, repository.ErrVenueNotFound
	}
	info := repository.RestaurantInfo{Restaurant: v}
	sum := 0
	for _, rv := range m.reviews {
		if rv.venueID == id {
			info.ReviewCount++
			sum += rv.stars
		}
	}
	if info.ReviewCount > 0 {
		info.AvgStars = float64(sum) / float64(info.ReviewCount)
	}
	return info, nil
}

func (m *memStore) ListByOwner(ctx context.Context, ownerID uint64) ([]repository.RestaurantRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.RestaurantRow
	for _, v := range m.venues {
		if v.OwnerID == ownerID {
			out = append(out, repository.RestaurantRow{ID: v.ID, Name: v.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) avgStarsLocked(venueID uint64) float64 {
	sum, n := 0, 0
	for _, rv := range m.reviews {
		if rv.venueID == venueID {
			sum += rv.stars
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func (m *memStore) Search(ctx context.Context, q repository.FilterCriteria, viewerID uint64) (int, []repository.RestaurantRow, error) {
	if err := q.Validate(); err != nil {
		return 0, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []repository.RestaurantRow
	for _, v := range m.venues {
		if q.Lat != nil {
			rd := *q.RadiusKM / 111.045
			dLat, dLon := v.Latitude-*q.Lat, v.Longitude-*q.Lon
			if dLat*dLat+dLon*dLon > rd*rd {
				continue
			}
		}
		if q.PriceMin != nil && v.Price < *q.PriceMin {
			continue
		}
		if q.PriceMax != nil && v.Price > *q.PriceMax {
			continue
		}
		if q.Delivery != nil && v.Delivery != *q.Delivery {
			continue
		}
		if q.Online != nil && v.OnlineBooking != *q.Online {
			continue
		}
		if q.StarsMin != nil && m.avgStarsLocked(v.ID) < float64(*q.StarsMin) {
			continue
		}
		if q.StarsMax != nil && m.avgStarsLocked(v.ID) > float64(*q.StarsMax) {
			continue
		}
		if q.Category != "" &&
			!strings.Contains(strings.ToLower(v.Category), strings.ToLower(q.Category)) {
			continue
		}
		if q.OnlyFavourites && !m.favourites[[2]uint64{viewerID, v.ID}] {
			continue
		}
		matched = append(matched, repository.RestaurantRow{ID: v.ID, Name: v.Name})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	pages := (len(matched) + repository.PageSize - 1) / repository.PageSize
	lo := q.Page * repository.PageSize
	if lo > len(matched) {
		return pages, nil, nil
	}
	hi := lo + repository.PageSize
	if hi > len(matched) {
		hi = len(matched)
	}
	return pages, matched[lo:hi], nil
}

func (m *memStore) findReviewLocked(userID, venueID uint64) *memReview {
	for _, rv := range m.reviews {
		if rv.userID == userID && rv.venueID == venueID {
			return rv
		}
	}
	return nil
}

func (m *memStore) Add(ctx context.Context, userID, venueID uint64, stars int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.venues[venueID]; !found {
		return repository.ErrVenueNotFound
	}
	if m.findReviewLocked(userID, venueID) != nil {
		return repository.ErrDuplicateReview
	}
	m.nextReview++
	m.reviews[m.nextReview] = &memReview{
		id: m.nextReview, userID: userID, venueID: venueID, stars: stars, text: text,
	}
	return nil
}

func (m *memStore) Edit(ctx context.Context, userID, venueID uint64, stars int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv := m.findReviewLocked(userID, venueID)
	if rv == nil {
		return repository.ErrReviewNotFound
	}
	rv.stars, rv.text = stars, text
	return nil
}

func (m *memStore) Remove(ctx context.Context, userID, venueID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv := m.findReviewLocked(userID, venueID)
	if rv == nil {
		return repository.ErrReviewNotFound
	}
	delete(m.reviews, rv.id)
	return nil
}

func (m *memStore) Mine(ctx context.Context, userID, venueID uint64) (repository.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv := m.findReviewLocked(userID, venueID)
	if rv == nil {
		return repository.Review{}, repository.ErrReviewNotFound
	}
	return m.reviewViewLocked(rv), nil
}

func (m *memStore) reviewViewLocked(rv *memReview) repository.Review {
	author := ""
	if u, found := m.users[rv.userID]; found {
		author = u.Name + " " + u.Surname
	}
	return repository.Review{
		ID:           rv.id,
		UserID:       rv.userID,
		RestaurantID: rv.venueID,
		Stars:        rv.stars,
		Text:         rv.text,
		Author:       author,
		Response:     rv.response,
	}
}

func (m *memStore) ListByVenue(ctx context.Context, venueID uint64) ([]repository.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Review
	for _, rv := range m.reviews {
		if rv.venueID == venueID {
			out = append(out, m.reviewViewLocked(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CanRespond(ctx context.Context, ownerID, reviewID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, found := m.reviews[reviewID]
	if !found {
		return false, nil
	}
	v, found := m.venues[rv.venueID]
	return found && v.OwnerID == ownerID, nil
}

func (m *memStore) AddResponse(ctx context.Context, reviewID uint64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, found := m.reviews[reviewID]
	if !found || rv.response != "" {
		return repository.ErrResponseExists
	}
	rv.response = text
	return nil
}

func (m *memStore) EditResponse(ctx context.Context, reviewID uint64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, found := m.reviews[reviewID]
	if !found || rv.response == "" {
		return repository.ErrResponseNotFound
	}
	rv.response = text
	return nil
}

func (m *memStore) RemoveResponse(ctx context.Context, reviewID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv, found := m.reviews[reviewID]
	if !found || rv.response == "" {
		return repository.ErrResponseNotFound
	}
	rv.response = ""
	return nil
}

func (m *memStore) AddFavourite(ctx context.Context, userID, venueID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.venues[venueID]; !found {
		return repository.ErrVenueNotFound
	}
	m.favourites[[2]uint64{userID, venueID}] = true
	return nil
}

func (m *memStore) RemoveFavourite(ctx context.Context, userID, venueID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favourites, [2]uint64{userID, venueID})
	return nil
}

func (m *memStore) Is(ctx context.Context, userID, venueID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.favourites[[2]uint64{userID, venueID}], nil
}

// Interface adapters: Create/Add/Remove collide across the narrow store
// interfaces, so venue and favourite views get their own wrapper types.

type memVenues struct{ *memStore }

func (m memVenues) Create(ctx context.Context, v *repository.Restaurant) error {
	return m.CreateVenue(ctx, v)
}

type memFavourites struct{ *memStore }

func (m memFavourites) Add(ctx context.Context, userID, venueID uint64) error {
	return m.AddFavourite(ctx, userID, venueID)
}

func (m memFavourites) Remove(ctx context.Context, userID, venueID uint64) error {
	return m.RemoveFavourite(ctx, userID, venueID)
}

var (
	_ UserStore      = (*memStore)(nil)
	_ VenueStore     = memVenues{}
	_ ReviewStore    = (*memStore)(nil)
	_ ResponseStore  = (*memStore)(nil)
	_ FavouriteStore = memFavourites{}
)

// seedUser registers a user directly in the store and returns its id.
func seedUser(t *testing.T, m *memStore, username, passwordHash string, owner bool) uint64 {
	t.Helper()
	u := repository.User{
		Name:         "Ada",
		Surname:      "Lovelace",
		Username:     username,
		PasswordHash: passwordHash,
		IsOwner:      owner,
	}
	if err := m.Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u.ID
}

// seedVenue inserts a venue directly in the store and returns its id.
func seedVenue(t *testing.T, m *memStore, ownerID uint64, name string) uint64 {
	t.Helper()
	v := repository.Restaurant{
		OwnerID:  ownerID,
		Name:     name,
		Nation:   "Italy",
		City:     "Milan",
		Address:  "Via Roma 1",
		Latitude: 45.46, Longitude: 9.19,
		Price:    20,
		Category: "Pizza",
	}
	if err := m.CreateVenue(context.Background(), &v); err != nil {
		t.Fatalf("seed venue %s: %v", name, err)
	}
	return v.ID
}
