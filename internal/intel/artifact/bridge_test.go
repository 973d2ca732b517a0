package artifact_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"forensics/internal/intel/artifact"
	"forensics/internal/intel/artifact/mocks"
	"forensics/internal/intel/models"
)

// =============================================================================
// Bridge Test Suite
// =============================================================================
// Justification: the future must exist before the collector runs and must be
// fulfilled exactly once, whatever the collector does afterwards.

type BridgeSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	collector *mocks.MockCollector
	bridge    *artifact.Bridge
	ctx       context.Context
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.collector = mocks.NewMockCollector(s.ctrl)
	var err error
	s.bridge, err = artifact.NewBridge(s.collector, 200*time.Millisecond)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func reply(id string, cookies string) models.ArtifactMessage {
	return models.ArtifactMessage{
		Type:      models.ArtifactMessageType,
		RequestID: id,
		Metadata:  map[string]string{"description": "d"},
		Artifacts: models.Artifacts{Cookies: cookies},
		URL:       "https://example.com/",
	}
}

func (s *BridgeSuite) TestNewBridge() {
	s.Run("nil collector", func() {
		_, err := artifact.NewBridge(nil, time.Second)
		s.ErrorContains(err, "collector is required")
	})
	s.Run("non-positive timeout", func() {
		_, err := artifact.NewBridge(s.collector, 0)
		s.Error(err)
	})
}

func (s *BridgeSuite) TestFutureRegisteredBeforeTrigger() {
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req artifact.Request, r artifact.Replier) error {
			s.Equal(1, s.bridge.Pending(), "future exists when the collector starts")
			s.Equal("https://example.com/", req.URL)
			s.True(r.Deliver(reply(req.ID, "a=1")))
			return nil
		})

	f := s.bridge.Start(s.ctx, "https://example.com/")
	msg, ok := f.Await(s.ctx)
	s.True(ok)
	s.Equal(f.ID(), msg.RequestID)
	s.Equal("a=1", msg.Artifacts.Cookies)
	s.Zero(s.bridge.Pending())
}

func (s *BridgeSuite) TestRepeatedRepliesIgnored() {
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req artifact.Request, r artifact.Replier) error {
			s.True(r.Deliver(reply(req.ID, "first")))
			s.False(r.Deliver(reply(req.ID, "second")))
			return nil
		})

	f := s.bridge.Start(s.ctx, "https://example.com/")
	msg, ok := f.Await(s.ctx)
	s.True(ok)
	s.Equal("first", msg.Artifacts.Cookies)
}

func (s *BridgeSuite) TestForeignMessagesIgnored() {
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req artifact.Request, r artifact.Replier) error {
			other := reply(req.ID, "x")
			other.Type = "somethingElse"
			s.False(r.Deliver(other))
			s.False(r.Deliver(reply("unknown-id", "x")))
			s.True(r.Deliver(reply(req.ID, "ok")))
			return nil
		})

	msg, ok := s.bridge.Start(s.ctx, "https://example.com/").Await(s.ctx)
	s.True(ok)
	s.Equal("ok", msg.Artifacts.Cookies)
}

func (s *BridgeSuite) TestCollectorErrorResolvesEmpty() {
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("no browser"))

	_, ok := s.bridge.Start(s.ctx, "https://example.com/").Await(s.ctx)
	s.False(ok)
	s.Zero(s.bridge.Pending())
}

func (s *BridgeSuite) TestTimeoutAbandonsRequest() {
	late := make(chan artifact.Replier, 1)
	var id string
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req artifact.Request, r artifact.Replier) error {
			id = req.ID
			late <- r
			return nil
		})

	f := s.bridge.Start(s.ctx, "https://slow.example/")
	_, ok := f.Await(s.ctx)
	s.False(ok)
	s.Zero(s.bridge.Pending())

	r := <-late
	s.False(r.Deliver(reply(id, "too late")), "replies after abandonment are ignored")
}

func (s *BridgeSuite) TestAwaitHonoursContext() {
	called := make(chan struct{})
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, artifact.Request, artifact.Replier) error {
			close(called)
			return nil
		})

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	f := s.bridge.Start(s.ctx, "https://example.com/")
	_, ok := f.Await(ctx)
	s.False(ok)

	<-called
	<-f.Done()
}

func (s *BridgeSuite) TestRepliesAreSanitized() {
	s.collector.EXPECT().Collect(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req artifact.Request, r artifact.Replier) error {
			msg := reply(req.ID, "<script>")
			msg.Metadata = map[string]string{"x": "a &amp; b & c"}
			r.Deliver(msg)
			return nil
		})

	msg, ok := s.bridge.Start(s.ctx, "https://example.com/").Await(s.ctx)
	s.Require().True(ok)
	s.Equal("&lt;script&gt;", msg.Artifacts.Cookies)
	s.Equal("a &amp; b &amp; c", msg.Metadata["x"])
}
