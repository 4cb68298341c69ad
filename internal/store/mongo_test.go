package store

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type hashedDoc struct {
	Hash string `bson:"hash"`
}

func testCollection(mt *mtest.T) *Collection[hashedDoc] {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := &Client{mc: mt.Client, db: mt.DB}
	return NewCollection[hashedDoc](c, mt.Coll.Name(), RetryPolicy{Delay: time.Millisecond, MaxAttempts: 2}, log)
}

func TestInsertOneSwallowsDuplicateKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate insert is not an error", func(mt *mtest.T) {
		col := testCollection(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
		)

		require.NoError(mt, col.InsertOne(context.Background(), hashedDoc{Hash: "h1"}))
		require.NoError(mt, col.InsertOne(context.Background(), hashedDoc{Hash: "h1"}), "re-inserting an existing hash is a no-op")
	})

	mt.Run("other write errors surface", func(mt *mtest.T) {
		col := testCollection(mt)
		// one response per retry attempt
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "Document failed validation"}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "Document failed validation"}),
		)

		err := col.InsertOne(context.Background(), hashedDoc{Hash: "h1"})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "after 2 attempts")
	})
}

func TestEnsureIndexCommands(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ttl index carries the expiry", func(mt *mtest.T) {
		col := testCollection(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, col.EnsureIndex(context.Background(), bson.D{{Key: "operation_timestamp", Value: 1}}, false, 45*time.Minute))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "createIndexes", evt.CommandName)

		expiry, err := evt.Command.LookupErr("indexes", "0", "expireAfterSeconds")
		require.NoError(mt, err)
		assert.Equal(mt, int32(2700), expiry.Int32())

		_, err = evt.Command.LookupErr("indexes", "0", "unique")
		assert.Error(mt, err, "a ttl index is not unique")
	})

	mt.Run("unique index has no expiry", func(mt *mtest.T) {
		col := testCollection(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, col.EnsureIndex(context.Background(), bson.D{{Key: "hash", Value: 1}}, true, 0))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)

		unique, err := evt.Command.LookupErr("indexes", "0", "unique")
		require.NoError(mt, err)
		assert.True(mt, unique.Boolean())

		_, err = evt.Command.LookupErr("indexes", "0", "expireAfterSeconds")
		assert.Error(mt, err)
	})
}

func TestFindOneMissReturnsNil(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no documents", func(mt *mtest.T) {
		col := testCollection(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+"."+mt.Coll.Name(), mtest.FirstBatch))

		doc, err := col.FindOne(context.Background(), bson.M{"hash": "missing"}, nil)
		require.NoError(mt, err)
		assert.Nil(mt, doc)
	})
}
