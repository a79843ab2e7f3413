package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	auth "github.com/mercatohq/go-auth"
	"github.com/stretchr/testify/mock"
)

// MockRoleStore implements auth.RoleStore
type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) GetRole(ctx context.Context, userID string) (auth.Role, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockRoleStore) UpsertDefaultRole(ctx context.Context, userID, email string, role auth.Role) error {
	args := m.Called(ctx, userID, email, role)
	return args.Error(0)
}

// fakeProvider is a hand-driven auth.IdentityClient. Tests emit events
// synchronously through it and inspect the calls it received.
type fakeProvider struct {
	mu           sync.Mutex
	session      *auth.SessionObject
	sessionErr   error
	signInErr    error
	signOutErr   error
	signOutCalls int
	subscriber   func(auth.Event)
	unsubscribed bool
}

func (f *fakeProvider) CurrentSession(_ context.Context) (*auth.SessionObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeProvider) Subscribe(fn func(auth.Event)) func() {
	f.mu.Lock()
	f.subscriber = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.subscriber = nil
		f.mu.Unlock()
	}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInErr
}

func (f *fakeProvider) SignOut(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.session = nil
	return nil
}

func (f *fakeProvider) emit(evt auth.Event) {
	f.mu.Lock()
	fn := f.subscriber
	f.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

func (f *fakeProvider) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

// recorderNotifier captures emitted notifications in order.
type recorderNotifier struct {
	mu    sync.Mutex
	seen  []auth.Notification
	kinds map[auth.NotificationKind]int
}

func newRecorderNotifier() *recorderNotifier {
	return &recorderNotifier{kinds: map[auth.NotificationKind]int{}}
}

func (r *recorderNotifier) Notify(n auth.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	r.kinds[n.Kind]++
}

func (r *recorderNotifier) count(kind auth.NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kinds[kind]
}

// fakeTimer and fakeScheduler drive the timeout guard on a simulated clock.
type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	mu     sync.Mutex
	nowAt  time.Time
	timers []*fakeTimer
}

func newFakeScheduler(start time.Time) *fakeScheduler {
	return &fakeScheduler{nowAt: start}
}

func (s *fakeScheduler) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowAt
}

func (s *fakeScheduler) after(d time.Duration, fn func()) auth.TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{deadline: s.nowAt.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// advance moves the clock forward and fires every due timer in deadline
// order, mirroring how a real runtime would deliver them.
func (s *fakeScheduler) advance(d time.Duration) {
	s.mu.Lock()
	s.nowAt = s.nowAt.Add(d)
	now := s.nowAt
	s.mu.Unlock()

	for {
		var next *fakeTimer
		s.mu.Lock()
		for _, t := range s.timers {
			if t.stopped || t.deadline.After(now) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next != nil {
			next.stopped = true
		}
		s.mu.Unlock()

		if next == nil {
			return
		}
		next.fn()
	}
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
