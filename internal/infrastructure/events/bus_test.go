package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe("first", func(_ context.Context, c Change) { got = append(got, "first:"+string(c.Kind)) })
	bus.Subscribe("second", func(_ context.Context, c Change) { got = append(got, "second:"+string(c.Kind)) })

	bus.Publish(context.Background(), Change{Kind: ItemCreated})

	assert.Equal(t, []string{"first:item.created", "second:item.created"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe("counter", func(context.Context, Change) { calls++ })

	bus.Publish(context.Background(), Change{Kind: ItemDeleted})
	unsubscribe()
	bus.Publish(context.Background(), Change{Kind: ItemDeleted})

	assert.Equal(t, 1, calls)
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	bus := NewBus()
	delivered := false

	bus.Subscribe("bad", func(context.Context, Change) { panic("boom") })
	bus.Subscribe("good", func(context.Context, Change) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(context.Background(), Change{Kind: ItemUpdated}) })
	assert.True(t, delivered)
}

func TestBus_StampsTime(t *testing.T) {
	bus := NewBus()
	var got Change
	bus.Subscribe("capture", func(_ context.Context, c Change) { got = c })

	bus.Publish(context.Background(), Change{Kind: ItemCreated})
	assert.False(t, got.At.IsZero())
}

func TestItemChange_Scopes(t *testing.T) {
	owner := uuid.New()
	c := ItemChange(ItemMoved, 7, owner, true, 3, 5, 3, 0)

	assert.Equal(t, []int64{3, 5}, c.CollectionIDs)
	assert.Equal(t, []string{"items", "item:7", "collection:3", "collection:5"}, c.Scopes)
	assert.Equal(t, owner, c.OwnerID)
	assert.True(t, c.Public)
}

func TestCollectionChange_DeleteDropsItemLists(t *testing.T) {
	c := CollectionChange(CollectionDeleted, 9, uuid.New(), false)
	assert.Equal(t, []string{"collection:9", "items"}, c.Scopes)

	u := CollectionChange(CollectionUpdated, 9, uuid.New(), false)
	assert.Equal(t, []string{"collection:9"}, u.Scopes)
}

func TestRedisRelay_ForwardAndReceiveFiltering(t *testing.T) {
	bus := NewBus()
	relay := NewRedisRelay(nil, "ch", "api-1", bus)

	var local []Change
	bus.Subscribe("capture", func(_ context.Context, c Change) { local = append(local, c) })

	own, _ := json.Marshal(Change{Kind: ItemCreated, Origin: "api-1"})
	relay.receive(context.Background(), string(own))
	assert.Empty(t, local, "own echo must be ignored")

	remote, _ := json.Marshal(Change{Kind: ItemDeleted, ItemID: 4, Origin: "api-2"})
	relay.receive(context.Background(), string(remote))
	require.Len(t, local, 1)
	assert.Equal(t, ItemDeleted, local[0].Kind)
	assert.Equal(t, "api-2", local[0].Origin)

	relay.receive(context.Background(), "{not json")
	assert.Len(t, local, 1)
}

func TestRedisRelay_DoesNotEchoRemoteChanges(t *testing.T) {
	relay := NewRedisRelay(nil, "ch", "api-1", NewBus())

	// A nil client would panic if the remote change were published again.
	assert.NotPanics(t, func() {
		relay.forward(context.Background(), Change{Kind: ItemCreated, Origin: "api-2"})
	})
}
