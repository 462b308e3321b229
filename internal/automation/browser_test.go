package automation

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalArgsPassesElementsByReference(t *testing.T) {
	obj := &proto.RuntimeRemoteObject{ObjectID: "node-42"}
	el := &rodElement{el: &rod.Element{Object: obj}}

	params := evalArgs([]any{el, 7, "see more", nil})
	require.Len(t, params, 4)

	ref, ok := params[0].(*proto.RuntimeRemoteObject)
	require.True(t, ok, "element must be sent as a remote object, got %T", params[0])
	assert.Same(t, obj, ref)
	assert.Equal(t, proto.RuntimeRemoteObjectID("node-42"), ref.ObjectID)

	assert.Equal(t, 7, params[1])
	assert.Equal(t, "see more", params[2])
	assert.Nil(t, params[3])
}

func TestEvalArgsEmpty(t *testing.T) {
	assert.Empty(t, evalArgs(nil))
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
