package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	args := m.Called(ctx, routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var testCfg = Config{
	AppName:      "Stock Insight",
	FrontendHost: "http://localhost:3000/",
	RoutingKey:   "email",
}

var bob = &models.User{ID: 1, Username: "bob", Email: "bob+1@x.com"}

func TestDispatcher_SendVerification(t *testing.T) {
	pub := new(PublisherMock)
	var got models.EmailMessage
	pub.On("Publish", mock.Anything, "email", mock.AnythingOfType("models.EmailMessage")).
		Run(func(args mock.Arguments) { got = args.Get(2).(models.EmailMessage) }).
		Return(nil).Once()

	d := New(newNoopLogger(), pub, testCfg)
	d.SendVerification(context.Background(), bob, "$2a$10$tok/en")
	d.Wait()

	pub.AssertExpectations(t)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.EmailAccountVerification, got.Kind)
	assert.Equal(t, "bob+1@x.com", got.To)
	assert.Equal(t, "Account Verification - Stock Insight", got.Subject)
	assert.Equal(t, "bob", got.Username)

	u, err := url.Parse(got.URL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", u.Host)
	assert.Equal(t, "/account-verify", u.Path)
	assert.Equal(t, "$2a$10$tok/en", u.Query().Get("token"))
	assert.Equal(t, "bob+1@x.com", u.Query().Get("email"))
}

func TestDispatcher_SendActivationConfirmation(t *testing.T) {
	pub := new(PublisherMock)
	var got models.EmailMessage
	pub.On("Publish", mock.Anything, "email", mock.AnythingOfType("models.EmailMessage")).
		Run(func(args mock.Arguments) { got = args.Get(2).(models.EmailMessage) }).
		Return(nil).Once()

	d := New(newNoopLogger(), pub, testCfg)
	d.SendActivationConfirmation(context.Background(), bob)
	d.Wait()

	assert.Equal(t, models.EmailAccountActivated, got.Kind)
	assert.Equal(t, "Welcome - Stock Insight", got.Subject)
	assert.Equal(t, "http://localhost:3000", got.URL)
}

func TestDispatcher_PublishErrorIsSwallowed(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, "email", mock.Anything).Return(errors.New("broker down")).Once()

	d := New(newNoopLogger(), pub, testCfg)
	assert.NotPanics(t, func() {
		d.SendVerification(context.Background(), bob, "token")
		d.Wait()
	})
	pub.AssertExpectations(t)
}

func TestDispatcher_PanicIsRecovered(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, "email", mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil).Once()

	d := New(newNoopLogger(), pub, testCfg)
	d.SendVerification(context.Background(), bob, "token")
	d.Wait()
}

func TestDispatcher_OutlivesRequestContext(t *testing.T) {
	pub := new(PublisherMock)
	release := make(chan struct{})
	var ctxErr error
	pub.On("Publish", mock.Anything, "email", mock.Anything).Run(func(args mock.Arguments) {
		<-release
		ctxErr = args.Get(0).(context.Context).Err()
	}).Return(nil).Once()

	d := New(newNoopLogger(), pub, Config{AppName: "A", RoutingKey: "email", Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	d.SendVerification(ctx, bob, "token")
	cancel()
	close(release)
	d.Wait()

	assert.NoError(t, ctxErr)
}

func TestDispatcher_VerificationURLEscapes(t *testing.T) {
	d := New(newNoopLogger(), new(PublisherMock), testCfg)
	assert.Equal(t,
		"http://localhost:3000/account-verify?token=%242a%2410%24x%2Fy&email=a%2Bb%40x.com",
		d.VerificationURL("a+b@x.com", "$2a$10$x/y"))
}
