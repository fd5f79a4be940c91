package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	payload []byte
	qos     byte
	retain  bool
}

// fakeClient records publishes; methods it does not override panic.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	messages     []message
	err          error
	disconnected int
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic: topic, payload: payload.([]byte), qos: qos, retain: retained})
	return newToken(c.err)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected++
	c.mu.Unlock()
}

func testObjects(t *testing.T) []metadata.Object {
	t.Helper()
	common := metadata.Common{Time: mediatime.New(1, 30), Duration: mediatime.New(1, 30), Bounds: geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10}}
	face, err := metadata.NewFace(metadata.FaceParams{Common: common, FaceID: 3, Roll: metadata.AngleOf(15)})
	require.NoError(t, err)
	code, err := metadata.NewCode(metadata.CodeParams{Common: common, Type: metadata.TypeQRCode, StringValue: metadata.StringPtr("hi")})
	require.NoError(t, err)
	other, err := metadata.NewUnknown("com.example.Hand", common)
	require.NoError(t, err)
	return []metadata.Object{face, code, other}
}

func TestTopic(t *testing.T) {
	objs := testObjects(t)
	assert.Equal(t, "metascan/cam1/face", Topic("metascan", "cam1", objs[0]))
	assert.Equal(t, "metascan/cam1/qr", Topic("metascan/", "cam1", objs[1]))
	assert.Equal(t, "x/default/unknown", Topic("x", "  ", objs[2]))
	assert.Equal(t, "x/a_b_c_d/qr", Topic("x", "a/b+c#d", objs[1]))
}

func TestMQTTPublish(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTWithClient(client, MQTTOptions{Prefix: "scan", QoS: 1, Retain: true})

	objs := testObjects(t)
	require.NoError(t, p.Publish(context.Background(), "photo.png", objs))
	require.Len(t, client.messages, 3)

	assert.Equal(t, "scan/photo.png/face", client.messages[0].topic)
	assert.Equal(t, "scan/photo.png/qr", client.messages[1].topic)
	assert.Equal(t, "scan/photo.png/unknown", client.messages[2].topic)
	assert.Equal(t, byte(1), client.messages[0].qos)
	assert.True(t, client.messages[0].retain)

	back, err := codec.UnmarshalObject(client.messages[0].payload)
	require.NoError(t, err)
	face, ok := back.(*metadata.Face)
	require.True(t, ok)
	assert.Equal(t, int64(3), face.FaceID())
	roll, err := face.RollAngle()
	require.NoError(t, err)
	assert.InDelta(t, 15, roll, 1e-9)
}

func TestMQTTPublishError(t *testing.T) {
	boom := errors.New("broker gone")
	client := &fakeClient{err: boom}
	p := newMQTTWithClient(client, MQTTOptions{})

	err := p.Publish(context.Background(), "s", testObjects(t))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, client.messages, 1)
}

func TestMQTTPublishCancelled(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTWithClient(client, MQTTOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "s", testObjects(t)), context.Canceled)
	assert.Empty(t, client.messages)
}

func TestMQTTClose(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTWithClient(client, MQTTOptions{})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, client.disconnected)
	assert.ErrorIs(t, p.Publish(context.Background(), "s", testObjects(t)), ErrClosed)
}

func TestNewMQTTRequiresBroker(t *testing.T) {
	_, err := NewMQTT(MQTTOptions{})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), "s", nil))
	assert.NoError(t, p.Close())
}
